package rating

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

func (repo *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, repo.timeout)
}

// Upsert is a single statement keyed by (user_id, book_id). xmax is zero only
// for a freshly inserted row, which tells an insert from an update.
func (repo *PostgresRepo) Upsert(ctx context.Context, r Rating) (bool, error) {
	const query = `
		INSERT INTO ratings (user_id, book_id, value, rated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, book_id)
		DO UPDATE SET value = EXCLUDED.value, rated_at = EXCLUDED.rated_at
		RETURNING (xmax = 0) AS inserted
	`
	timeoutCtx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var inserted bool
	if err := repo.db.QueryRow(timeoutCtx, query, r.UserID, r.BookID, r.Value, r.RatedAt).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

func (repo *PostgresRepo) Get(ctx context.Context, userID string, bookID int64) (Rating, error) {
	const query = `
		SELECT user_id, book_id, value, rated_at
		FROM ratings
		WHERE user_id = $1 AND book_id = $2
	`
	timeoutCtx, cancel := repo.withTimeout(ctx)
	defer cancel()

	var r Rating
	if err := repo.db.QueryRow(timeoutCtx, query, userID, bookID).Scan(&r.UserID, &r.BookID, &r.Value, &r.RatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rating{}, ErrNotFound
		}
		return Rating{}, err
	}
	return r, nil
}

func (repo *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Rating, error) {
	const query = `
		SELECT user_id, book_id, value, rated_at
		FROM ratings
		WHERE user_id = $1
		ORDER BY rated_at DESC, book_id
	`
	timeoutCtx, cancel := repo.withTimeout(ctx)
	defer cancel()

	rows, err := repo.db.Query(timeoutCtx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Rating, error) {
		var r Rating
		err := row.Scan(&r.UserID, &r.BookID, &r.Value, &r.RatedAt)
		return r, err
	})
}
