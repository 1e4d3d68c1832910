package auth

import (
	"context"
	"errors"
	"fmt"

	"bookrec/internal/platform/crypto"
	"bookrec/internal/session"
	"bookrec/internal/user"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Service struct {
	secret         string
	userService    *user.Service
	sessionService *session.Service
}

func NewService(secret string, userService *user.Service, sessionService *session.Service) *Service {
	return &Service{
		secret:         secret,
		userService:    userService,
		sessionService: sessionService,
	}
}

// Token is what a successful login hands back to the client.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
}

// Login verifies credentials, opens a session and signs a token bound to it.
func (s *Service) Login(ctx context.Context, username, password, userAgent, ipAddress string) (Token, error) {
	u, err := s.userService.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) || errors.Is(err, user.ErrEmptyCredentials) {
			return Token{}, ErrUnauthorized
		}
		return Token{}, err
	}

	sess, err := s.sessionService.Create(ctx, u.ID, userAgent, ipAddress)
	if err != nil {
		return Token{}, err
	}

	ttl := s.sessionService.TTL()
	accessToken, err := crypto.GenerateToken(s.secret, u.ID, sess.ID, ttl)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
		UserID:      u.ID,
		Username:    u.Username,
	}, nil
}

// Logout ends the session the token was issued for.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrUnauthorized
	}
	return s.sessionService.End(ctx, sessionID)
}
