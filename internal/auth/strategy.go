package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/model"
	"sessionauth/internal/repository"
	"sessionauth/internal/session"
)

// Strategy names registered by the application.
const (
	StrategyCredentials = "credentials"
	StrategySignup      = "signup"
)

// Input is what a strategy receives from a request. User carries an already
// validated payload injected by the caller.
type Input struct {
	Email    string
	Password string
	User     *session.PublicData
}

// Strategy turns an Input into a session payload or rejects it. Strategies
// have no side effects beyond reading the credential store.
type Strategy interface {
	Name() string
	Authenticate(ctx context.Context, in Input) (*session.PublicData, error)
}

// CredentialsStrategy checks an email and password against the credential store.
type CredentialsStrategy struct {
	users  repository.UserRepository
	hasher *Hasher
	// dummy is compared against when no usable hash exists, so unknown
	// emails cost the same bcrypt work as wrong passwords.
	dummy string
}

// NewCredentialsStrategy builds the credentials strategy.
func NewCredentialsStrategy(users repository.UserRepository, hasher *Hasher) (*CredentialsStrategy, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, err
	}
	return &CredentialsStrategy{users: users, hasher: hasher, dummy: dummy}, nil
}

func (s *CredentialsStrategy) Name() string {
	return StrategyCredentials
}

// Authenticate never says whether the email exists: every rejection is
// ErrInvalidCredentials.
func (s *CredentialsStrategy) Authenticate(ctx context.Context, in Input) (*session.PublicData, error) {
	email := model.NormalizeEmail(in.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewStorageError("find user by email", err)
	}

	if user == nil || !user.HasPassword() {
		_, _ = s.hasher.Verify(in.Password, s.dummy)
		return nil, apperrors.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(in.Password, *user.HashedPassword)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, apperrors.ErrInvalidCredentials
	}

	return &session.PublicData{
		Username: user.Name,
		UserID:   user.ID,
		Role:     string(user.Role),
	}, nil
}

// SignupStrategy trusts the payload injected by the signup handler, which has
// just created the user.
type SignupStrategy struct{}

func (SignupStrategy) Name() string {
	return StrategySignup
}

func (SignupStrategy) Authenticate(ctx context.Context, in Input) (*session.PublicData, error) {
	if in.User == nil || in.User.UserID == 0 {
		return nil, apperrors.ErrNoUser
	}
	data := *in.User
	return &data, nil
}

// Registry holds strategies by name.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry registers the given strategies. Names must be unique.
func NewRegistry(list ...Strategy) *Registry {
	m := make(map[string]Strategy, len(list))
	for _, s := range list {
		m[s.Name()] = s
	}
	return &Registry{strategies: m}
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown auth strategy: %s", name)
	}
	return s, nil
}
