package db

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// NewBolt opens (or creates) the bbolt file used by the embedded session backend.
func NewBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	return db, nil
}
