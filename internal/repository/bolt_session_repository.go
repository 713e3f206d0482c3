package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"sessionauth/internal/model"
)

var sessionsBucket = []byte("sessions")

// boltSessionRepository keeps sessions in a single bbolt bucket keyed by id.
// bbolt serializes write transactions, which covers concurrent updates.
type boltSessionRepository struct {
	db *bbolt.DB
}

// NewBoltSessionRepository builds a bbolt-backed session repository and
// makes sure its bucket exists.
func NewBoltSessionRepository(db *bbolt.DB) (SessionRepository, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &boltSessionRepository{db: db}, nil
}

func (r *boltSessionRepository) Insert(ctx context.Context, userID uint, expiresAt time.Time, payload string) (string, error) {
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
	err = r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(id), data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *boltSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var sess *model.Session
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(sessionsBucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var err error
		sess, err = decodeRecord(id, data)
		if err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *boltSessionRepository) Update(ctx context.Context, id string, expiresAt time.Time, payload string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		current, err := decodeRecord(id, data)
		if err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		updated, err := encodeRecord(sessionRecord{
			UserID:     current.UserID,
			ExpiresAt:  expiresAt,
			PublicData: payload,
			CreatedAt:  current.CreatedAt,
			UpdatedAt:  time.Now(),
		})
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		return b.Put([]byte(id), updated)
	})
}

func (r *boltSessionRepository) DeleteByID(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(id))
	})
}
