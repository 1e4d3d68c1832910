package book

import (
	"context"
	"fmt"
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

// LoadAll returns the whole catalog ordered by id, which is the catalog order
// used for stable tie-breaking.
func (r *PostgresRepo) LoadAll(ctx context.Context) ([]Book, error) {
	const query = `
	SELECT id, title, authors, genres, average_rating, COALESCE(isbn, ''), publication_year
	FROM books
	ORDER BY id
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Authors,
			&b.Genres,
			&b.AverageRating,
			&b.ISBN,
			&b.PublicationYear,
		); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		if b.Genres == nil {
			b.Genres = []string{}
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Import upserts books keyed by (title, authors) in a single transaction and
// returns the number of rows written.
func (r *PostgresRepo) Import(ctx context.Context, books []Book) (int, error) {
	const query = `
	INSERT INTO books (title, authors, genres, average_rating, isbn, publication_year)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	ON CONFLICT (title, authors) DO UPDATE SET
		genres = EXCLUDED.genres,
		average_rating = EXCLUDED.average_rating,
		isbn = COALESCE(EXCLUDED.isbn, books.isbn),
		publication_year = EXCLUDED.publication_year
	`
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range books {
		authors := b.Authors
		if authors == nil {
			authors = []string{}
		}
		genres := b.Genres
		if genres == nil {
			genres = []string{}
		}
		batch.Queue(query, b.Title, authors, genres, b.AverageRating, b.ISBN, b.PublicationYear)
	}

	results := tx.SendBatch(ctx, batch)
	written := 0
	for range books {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("import book: %w", err)
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close import batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return written, nil
}
