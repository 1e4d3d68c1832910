package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Create(ctx context.Context, s Session) error {
	const query = `
	INSERT INTO sessions (id, user_id, user_agent, ip_address, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(timeoutCtx, query, s.ID, s.UserID, s.UserAgent, s.IPAddress, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Session, error) {
	const query = `
	SELECT id, user_id, user_agent, ip_address, created_at, expires_at
	FROM sessions
	WHERE id = $1 AND expires_at > now()
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var s Session
	err := r.db.QueryRow(timeoutCtx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.UserAgent,
		&s.IPAddress,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM sessions WHERE id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	result, err := r.db.Exec(timeoutCtx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < now()`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	result, err := r.db.Exec(timeoutCtx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
