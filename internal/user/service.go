package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookrec/internal/platform/crypto"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an account. Usernames are trimmed; passwords are stored
// only as a bcrypt hash.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrEmptyCredentials
	}

	_, err := s.repo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return User{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: hash}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, err
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return *u, nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrEmptyCredentials
	}

	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}
