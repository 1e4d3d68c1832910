package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	LoadAll(ctx context.Context) ([]Book, error)
	Import(ctx context.Context, books []Book) (int, error)
}
