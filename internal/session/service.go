package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Create opens a session for userID.
func (s *Service) Create(ctx context.Context, userID, userAgent, ipAddress string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Resolve returns the user that owns a live session.
func (s *Service) Resolve(ctx context.Context, sessionID string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", ErrNotFound
	}
	sess, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !sess.ExpiresAt.After(s.now()) {
		return "", ErrNotFound
	}
	return sess.UserID, nil
}

// End deletes a session. Ending an unknown session is not an error.
func (s *Service) End(ctx context.Context, sessionID string) error {
	if err := s.repo.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// RunCleanup deletes expired sessions every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.DeleteExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("session cleanup failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("expired sessions removed")
			}
		}
	}
}
