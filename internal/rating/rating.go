package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookrec/internal/book"
)

const (
	MinValue = 1
	MaxValue = 5
)

var (
	// ErrInvalidRating is returned for values outside [MinValue, MaxValue].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrNotFound is returned when the user has not rated the book.
	ErrNotFound = errors.New("rating not found")
)

// Rating is a user's current score for a book. Only the latest one is kept.
type Rating struct {
	UserID  string    `json:"user_id"`
	BookID  int64     `json:"book_id"`
	Value   int       `json:"value"`
	RatedAt time.Time `json:"rated_at"`
}

// RatedBook pairs a catalog book with the user's rating of it.
type RatedBook struct {
	Book    book.Book `json:"book"`
	Value   int       `json:"value"`
	RatedAt time.Time `json:"rated_at"`
}

//go:generate mockgen -source=rating.go -destination=mock_repository.go -package=rating

type Repository interface {
	// Upsert stores r, replacing any previous rating for the same user and
	// book. created reports whether no rating existed before.
	Upsert(ctx context.Context, r Rating) (created bool, err error)
	Get(ctx context.Context, userID string, bookID int64) (Rating, error)
	ListByUser(ctx context.Context, userID string) ([]Rating, error)
}

// BookLookup resolves catalog books.
type BookLookup interface {
	Get(id int64) (book.Book, error)
	FindByIDs(ids []int64) []book.Book
}

type Service struct {
	repo  Repository
	books BookLookup
	now   func() time.Time
}

func NewService(repo Repository, books BookLookup) *Service {
	return &Service{repo: repo, books: books, now: time.Now}
}

// Validate reports ErrInvalidRating for out-of-range values.
func Validate(value int) error {
	if value < MinValue || value > MaxValue {
		return ErrInvalidRating
	}
	return nil
}

// Rate records value as userID's rating of bookID. Out-of-range values and
// unknown books are rejected before anything is stored.
func (s *Service) Rate(ctx context.Context, userID string, bookID int64, value int) (created bool, err error) {
	if err := Validate(value); err != nil {
		return false, err
	}
	if _, err := s.books.Get(bookID); err != nil {
		return false, err
	}

	created, err = s.repo.Upsert(ctx, Rating{
		UserID:  userID,
		BookID:  bookID,
		Value:   value,
		RatedAt: s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("upsert rating: %w", err)
	}
	return created, nil
}

func (s *Service) UserRating(ctx context.Context, userID string, bookID int64) (Rating, error) {
	r, err := s.repo.Get(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Rating{}, err
		}
		return Rating{}, fmt.Errorf("get rating: %w", err)
	}
	return r, nil
}

// RatedBooks returns the user's ratings joined with the catalog, most recent
// first. Ratings of books missing from the catalog are skipped.
func (s *Service) RatedBooks(ctx context.Context, userID string) ([]RatedBook, error) {
	ratings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}

	ids := make([]int64, len(ratings))
	for i, r := range ratings {
		ids[i] = r.BookID
	}
	byID := make(map[int64]book.Book, len(ratings))
	for _, b := range s.books.FindByIDs(ids) {
		byID[b.ID] = b
	}

	out := make([]RatedBook, 0, len(ratings))
	for _, r := range ratings {
		b, ok := byID[r.BookID]
		if !ok {
			continue
		}
		out = append(out, RatedBook{Book: b, Value: r.Value, RatedAt: r.RatedAt})
	}
	return out, nil
}
