package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/logging"
	"sessionauth/internal/repository"
)

// Store owns the lifecycle of session records: Active until expires_at,
// then Expired, and Deleted on the first read after that. There is no
// background sweep, so expired records stay in storage until read again.
type Store struct {
	repo repository.SessionRepository
	now  func() time.Time
}

// NewStore creates a session store over repo.
func NewStore(repo repository.SessionRepository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Create persists a new session and returns its opaque id.
func (s *Store) Create(ctx context.Context, data Data, expiresAt time.Time) (string, error) {
	if !data.hasUser() {
		return "", apperrors.ErrNoUser
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session data: %w", err)
	}
	id, err := s.repo.Insert(ctx, data.User.UserID, expiresAt, string(payload))
	if err != nil {
		return "", apperrors.NewStorageError("insert session", err)
	}
	return id, nil
}

// Read returns the session payload, or nil when the session does not exist,
// has expired or cannot be decoded. Only storage failures are errors.
func (s *Store) Read(ctx context.Context, id string) (*Data, error) {
	if id == "" {
		return nil, nil
	}

	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, repository.ErrCorruptRecord) {
		logging.Error().Err(err).Str("session_id", id).Msg("dropping undecodable session record")
		if err := s.repo.DeleteByID(ctx, id); err != nil {
			logging.Warn().Err(err).Str("session_id", id).Msg("failed to delete corrupt session")
		}
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("find session", err)
	}

	if rec.Expired(s.now()) {
		if err := s.repo.DeleteByID(ctx, id); err != nil {
			logging.Warn().Err(err).Str("session_id", id).Msg("failed to delete expired session")
		}
		return nil, nil
	}

	var data Data
	if err := json.Unmarshal([]byte(rec.PublicData), &data); err != nil {
		logging.Error().Err(err).Str("session_id", id).Msg("failed to decode session data")
		return nil, nil
	}
	if !data.hasUser() {
		logging.Error().Str("session_id", id).Msg("session data has no user")
		return nil, nil
	}
	return &data, nil
}

// Update replaces the payload and expiry of an existing session. An expiry
// in the past deletes the session instead.
func (s *Store) Update(ctx context.Context, id string, data Data, expiresAt time.Time) error {
	if !data.hasUser() {
		return apperrors.ErrNoUser
	}
	if !expiresAt.After(s.now()) {
		return s.Delete(ctx, id)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session data: %w", err)
	}
	if err := s.repo.Update(ctx, id, expiresAt, string(payload)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return apperrors.NewStorageError("update session", err)
	}
	return nil
}

// Delete removes the session. Deleting an unknown id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return apperrors.NewStorageError("delete session", err)
	}
	return nil
}
