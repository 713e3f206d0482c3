package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"sessionauth/internal/cache"
	"sessionauth/internal/db"
	"sessionauth/internal/repository"
	"sessionauth/internal/repository/memory"
)

// sessionRepositoryTests runs the common suite against any SessionRepository.
// putRaw writes bytes under a session id bypassing the encoder; it is nil for
// backends that keep decoded records.
func sessionRepositoryTests(t *testing.T, repo repository.SessionRepository, putRaw func(t *testing.T, id string, data []byte)) {
	t.Helper()
	ctx := context.Background()

	t.Run("InsertAndFind", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
		id, err := repo.Insert(ctx, 7, expiresAt, `{"user":{"userId":7}}`)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		sess, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, sess.ID)
		assert.Equal(t, uint(7), sess.UserID)
		assert.True(t, expiresAt.Equal(sess.ExpiresAt))
		assert.Equal(t, `{"user":{"userId":7}}`, sess.PublicData)
	})

	t.Run("FindMissing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "no-such-session")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		id, err := repo.Insert(ctx, 3, time.Now().Add(time.Hour), `{"v":1}`)
		require.NoError(t, err)

		newExpiry := time.Now().Add(48 * time.Hour).Truncate(time.Second)
		require.NoError(t, repo.Update(ctx, id, newExpiry, `{"v":2}`))

		sess, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, `{"v":2}`, sess.PublicData)
		assert.True(t, newExpiry.Equal(sess.ExpiresAt))
		assert.Equal(t, uint(3), sess.UserID)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := repo.Update(ctx, "no-such-session", time.Now().Add(time.Hour), `{}`)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		id, err := repo.Insert(ctx, 1, time.Now().Add(time.Hour), `{}`)
		require.NoError(t, err)

		require.NoError(t, repo.DeleteByID(ctx, id))
		require.NoError(t, repo.DeleteByID(ctx, id))

		_, err = repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ExpiredRecordIsStillStored", func(t *testing.T) {
		id, err := repo.Insert(ctx, 1, time.Now().Add(-time.Minute), `{}`)
		require.NoError(t, err)

		sess, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, sess.Expired(time.Now()))
	})

	t.Run("CorruptRecord", func(t *testing.T) {
		if putRaw == nil {
			t.Skip("backend stores decoded records")
		}
		putRaw(t, "corrupt-id", []byte("{garbage"))

		_, err := repo.FindByID(ctx, "corrupt-id")
		assert.ErrorIs(t, err, repository.ErrCorruptRecord)
		assert.NotErrorIs(t, err, repository.ErrNotFound)

		require.NoError(t, repo.DeleteByID(ctx, "corrupt-id"))
		_, err = repo.FindByID(ctx, "corrupt-id")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	sessionRepositoryTests(t, memory.NewSessionRepository(), nil)
}

func TestRedisSessionRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	sessionRepositoryTests(t, repository.NewRedisSessionRepository(cache.NewFromClient(rdb)), func(t *testing.T, id string, data []byte) {
		require.NoError(t, mr.Set("session:"+id, string(data)))
	})
}

func TestRedisSessionRepository_KeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := repository.NewRedisSessionRepository(cache.NewFromClient(rdb))
	ctx := context.Background()

	id, err := repo.Insert(ctx, 1, time.Now().Add(time.Hour), `{}`)
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("session:"+id), 59*time.Minute)

	mr.FastForward(2 * time.Hour)
	_, err = repo.FindByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRedisSessionRepository_AlreadyExpiredKeyStillExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	repo := repository.NewRedisSessionRepository(cache.NewFromClient(rdb))
	ctx := context.Background()

	id, err := repo.Insert(ctx, 1, time.Now().Add(-time.Minute), `{}`)
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("session:"+id), time.Duration(0), "key must carry a TTL")

	mr.FastForward(time.Second)
	assert.False(t, mr.Exists("session:"+id))
}

func TestBoltSessionRepository(t *testing.T) {
	boltDB, err := db.NewBolt(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltDB.Close() })

	repo, err := repository.NewBoltSessionRepository(boltDB)
	require.NoError(t, err)

	sessionRepositoryTests(t, repo, func(t *testing.T, id string, data []byte) {
		require.NoError(t, boltDB.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte("sessions")).Put([]byte(id), data)
		}))
	})
}
