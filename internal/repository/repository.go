package repository

import (
	"context"
	"errors"
	"time"

	"sessionauth/internal/model"
)

// ErrNotFound is returned by every backend when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrCorruptRecord is returned when a stored session cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt session record")

// UserRepository is the credential store.
type UserRepository interface {
	// Create inserts the user and fills in its ID. It fails with
	// ErrDuplicateEmail when the email is already registered.
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionRepository persists session records. Implementations must make a
// single write to one id atomic; concurrent writes resolve last-writer-wins.
type SessionRepository interface {
	Insert(ctx context.Context, userID uint, expiresAt time.Time, payload string) (string, error)
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, id string, expiresAt time.Time, payload string) error
	// DeleteByID removes the record; deleting a missing id is not an error.
	DeleteByID(ctx context.Context, id string) error
}
