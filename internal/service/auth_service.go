package service

import (
	"context"
	"fmt"

	"sessionauth/internal/auth"
	apperrors "sessionauth/internal/errors"
	"sessionauth/internal/model"
	"sessionauth/internal/repository"
)

// AuthService handles account creation.
type AuthService interface {
	// Signup registers a USER account.
	Signup(ctx context.Context, email, password string) (*model.User, error)
	// CreateUser registers an account with an explicit role.
	CreateUser(ctx context.Context, email, password string, role model.Role) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	hasher   *auth.Hasher
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, hasher *auth.Hasher) AuthService {
	return &authService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

func (s *authService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	return s.CreateUser(ctx, email, password, model.RoleUser)
}

// CreateUser relies on the unique email index rather than a prior lookup, so
// two concurrent signups cannot both succeed.
func (s *authService) CreateUser(ctx context.Context, email, password string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          model.NormalizeEmail(email),
		HashedPassword: &hashedPassword,
		Role:           role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if err == apperrors.ErrDuplicateEmail {
			return nil, err
		}
		return nil, apperrors.NewStorageError("create user", err)
	}

	return user, nil
}
