// Package memory provides in-process repositories for development mode and
// tests. Nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/model"
	"sessionauth/internal/repository"
)

// UserRepository is a mutex-guarded map of users keyed by id.
type UserRepository struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]model.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[uint]model.User)}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.ErrDuplicateEmail
		}
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Count returns the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// SessionRepository is a mutex-guarded map of session records.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]model.Session
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]model.Session)}
}

func (r *SessionRepository) Insert(ctx context.Context, userID uint, expiresAt time.Time, payload string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	id := uuid.NewString()
	r.sessions[id] = model.Session{
		ID:         id,
		UserID:     userID,
		ExpiresAt:  expiresAt,
		PublicData: payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return id, nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, expiresAt time.Time, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	s.PublicData = payload
	s.UpdatedAt = time.Now()
	r.sessions[id] = s
	return nil
}

func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// Len returns the number of stored session records, expired ones included.
func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
