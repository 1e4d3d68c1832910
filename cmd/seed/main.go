package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"bookrec/internal/book"
	"bookrec/internal/config"
	"bookrec/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	var (
		csvPath  = flag.String("csv", "", "Path to a books.csv catalog (title,author,genre,average_rating,isbn,release_year)")
		generate = flag.Int("generate", 0, "Number of synthetic books to insert instead of a CSV")
	)
	flag.Parse()

	config.LoadEnvFiles()
	log := logger.Init(logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	books, err := loadBooks(*csvPath, *generate)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot build seed data")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = config.Default().DSN
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", config.RedactDSN(dsn)).Msg("failed to connect to database")
	}
	defer pool.Close()

	repo := book.NewPostgresRepo(pool, 5*time.Minute)
	n, err := repo.Import(ctx, books)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import books")
	}

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		log.Warn().Err(err).Msg("cannot count books")
	}
	log.Info().Int("imported", n).Int("total", total).Msg("seed finished")
}

func loadBooks(csvPath string, generate int) ([]book.Book, error) {
	switch {
	case csvPath != "" && generate > 0:
		return nil, errors.New("use either -csv or -generate, not both")
	case csvPath != "":
		f, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return book.ParseCSV(f)
	case generate > 0:
		return generateBooks(rand.New(rand.NewSource(time.Now().UnixNano())), generate), nil
	default:
		return nil, errors.New("nothing to seed: pass -csv or -generate")
	}
}

var (
	seedGenres  = []string{"Fiction", "Science Fiction", "History", "Science", "Fantasy", "Romance", "Mystery", "Biography", "Philosophy", "Poetry"}
	seedAuthors = []string{"Ada Byron", "Ben Okri", "Clara Reyes", "Dan Brown", "Eve Moss", "Frank Ito", "Gail Honda", "Hugo Lind"}
	seedWords   = []string{"River", "Night", "Garden", "Empire", "Signal", "Winter", "Mirror", "Harbor", "Atlas", "Echo"}
)

// generateBooks builds n synthetic catalog entries with distinct titles.
func generateBooks(rng *rand.Rand, n int) []book.Book {
	books := make([]book.Book, 0, n)
	for i := 0; i < n; i++ {
		year := 1950 + rng.Intn(75)
		avg := float64(10+rng.Intn(41)) / 10
		books = append(books, book.Book{
			Title:           fmt.Sprintf("The %s %s #%d", seedWords[rng.Intn(len(seedWords))], seedWords[rng.Intn(len(seedWords))], i+1),
			Authors:         []string{seedAuthors[rng.Intn(len(seedAuthors))]},
			Genres:          []string{seedGenres[rng.Intn(len(seedGenres))]},
			AverageRating:   &avg,
			ISBN:            fmt.Sprintf("978%010d", i+1),
			PublicationYear: &year,
		})
	}
	return books
}
