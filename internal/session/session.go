package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, expired or ended sessions.
var ErrNotFound = errors.New("session not found")

// Session binds a login to a user until it expires or is ended.
type Session struct {
	ID        string
	UserID    string
	UserAgent string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
}

//go:generate mockgen -source=session.go -destination=mock_repository.go -package=session

type Repository interface {
	Create(ctx context.Context, s Session) error
	// Get returns a live session; expired rows are reported as ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
