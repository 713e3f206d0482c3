package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestClose(t *testing.T) {
	// No server is contacted: the pool is lazy and the version probe and
	// ping are both disabled.
	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:password@tcp(127.0.0.1:1)/app?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	require.NoError(t, Close(gormDB))

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "pool must be closed")
}

func TestNewMySQL_RejectsBadDSN(t *testing.T) {
	_, err := NewMySQL("not a dsn")
	assert.Error(t, err)
}

func TestNewBolt(t *testing.T) {
	boltDB, err := NewBolt(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	assert.NoError(t, boltDB.Close())
}
