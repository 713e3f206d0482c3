package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sessionauth/internal/cache"
	"sessionauth/internal/model"
)

const sessionKeyPrefix = "session:"

// minExpiredTTL is used for records whose expiry has already passed. A zero
// TTL would keep the key forever.
const minExpiredTTL = time.Millisecond

// redisSessionRepository stores each session under session:<id>. Keys carry
// a TTL matching expires_at, so Redis drops them on its own. Records that
// were already expired when written get minExpiredTTL so they never linger.
type redisSessionRepository struct {
	cache *cache.Client
}

// NewRedisSessionRepository builds a Redis-backed session repository.
func NewRedisSessionRepository(c *cache.Client) SessionRepository {
	return &redisSessionRepository{cache: c}
}

func (r *redisSessionRepository) key(id string) string {
	return sessionKeyPrefix + id
}

func ttlUntil(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return minExpiredTTL
	}
	return ttl
}

func (r *redisSessionRepository) Insert(ctx context.Context, userID uint, expiresAt time.Time, payload string) (string, error) {
	id := uuid.NewString()
	now := time.Now()
	data, err := encodeRecord(sessionRecord{
		UserID:     userID,
		ExpiresAt:  expiresAt,
		PublicData: payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	if err := r.cache.Set(ctx, r.key(id), data, ttlUntil(expiresAt)); err != nil {
		return "", err
	}
	return id, nil
}

func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.cache.Get(ctx, r.key(id))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	sess, err := decodeRecord(id, data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sess, nil
}

// Update overwrites the record with SET XX, so a session that disappeared in
// the meantime is not resurrected.
func (r *redisSessionRepository) Update(ctx context.Context, id string, expiresAt time.Time, payload string) error {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	data, err := encodeRecord(sessionRecord{
		UserID:     current.UserID,
		ExpiresAt:  expiresAt,
		PublicData: payload,
		CreatedAt:  current.CreatedAt,
		UpdatedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := r.cache.SetExisting(ctx, r.key(id), data, ttlUntil(expiresAt))
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *redisSessionRepository) DeleteByID(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, r.key(id))
}
