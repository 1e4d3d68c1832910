package wishlist

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const (
	lockPairQuery   = `SELECT pg_advisory_xact_lock(hashtextextended($1::text, $2::bigint))`
	deletePairQuery = `DELETE FROM wishlist WHERE user_id = $1 AND book_id = $2`
	insertPairQuery = `
		INSERT INTO wishlist (user_id, book_id, added_at)
		VALUES ($1, $2, now())
	`
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Toggle deletes the pair if present and inserts it otherwise. A transaction
// scoped advisory lock on the pair serializes concurrent toggles, including
// the case where no row exists yet.
func (r *PostgresRepo) Toggle(ctx context.Context, userID string, bookID int64) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var on bool
	err := pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		var err error
		on, err = togglePair(timeoutCtx, tx, userID, bookID)
		return err
	})
	if err != nil {
		return false, err
	}
	return on, nil
}

func togglePair(ctx context.Context, tx execer, userID string, bookID int64) (bool, error) {
	if _, err := tx.Exec(ctx, lockPairQuery, userID, bookID); err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, deletePairQuery, userID, bookID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, insertPairQuery, userID, bookID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresRepo) ListBookIDs(ctx context.Context, userID string) ([]int64, error) {
	const query = `
		SELECT book_id
		FROM wishlist
		WHERE user_id = $1
		ORDER BY added_at DESC, book_id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
