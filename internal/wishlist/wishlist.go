package wishlist

import (
	"context"
	"fmt"

	"bookrec/internal/book"
)

//go:generate mockgen -source=wishlist.go -destination=mock_repository.go -package=wishlist

// Repository stores wishlist membership as a set of (user, book) pairs.
type Repository interface {
	// Toggle flips membership and returns the state after the flip.
	Toggle(ctx context.Context, userID string, bookID int64) (bool, error)
	ListBookIDs(ctx context.Context, userID string) ([]int64, error)
}

// BookLookup resolves catalog books.
type BookLookup interface {
	Get(id int64) (book.Book, error)
	FindByIDs(ids []int64) []book.Book
}

type Service struct {
	repo  Repository
	books BookLookup
}

func NewService(repo Repository, books BookLookup) *Service {
	return &Service{repo: repo, books: books}
}

// Toggle adds bookID to the user's wishlist, or removes it if present.
func (s *Service) Toggle(ctx context.Context, userID string, bookID int64) (bool, error) {
	if _, err := s.books.Get(bookID); err != nil {
		return false, err
	}
	on, err := s.repo.Toggle(ctx, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("toggle wishlist: %w", err)
	}
	return on, nil
}

func (s *Service) BookIDs(ctx context.Context, userID string) ([]int64, error) {
	ids, err := s.repo.ListBookIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return ids, nil
}

func (s *Service) Books(ctx context.Context, userID string) ([]book.Book, error) {
	ids, err := s.BookIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.books.FindByIDs(ids), nil
}
