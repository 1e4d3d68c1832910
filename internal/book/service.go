package book

import (
	"context"

	"bookrec/internal/metadata"
)

// MetadataFetcher resolves external metadata for an ISBN.
type MetadataFetcher interface {
	Fetch(ctx context.Context, identifier string) metadata.Result
}

// Service provides book-related business logic.
type Service struct {
	catalog *Catalog
	meta    MetadataFetcher
}

// NewService creates a new book service.
func NewService(catalog *Catalog, meta MetadataFetcher) *Service {
	return &Service{catalog: catalog, meta: meta}
}

func (s *Service) List(limit, offset int) Page {
	return s.catalog.List(limit, offset)
}

func (s *Service) Search(q string, limit int) []Book {
	return s.catalog.Search(q, limit)
}

func (s *Service) Get(id int64) (Book, error) {
	return s.catalog.Get(id)
}

// Metadata fetches the description and genres of a catalog book. It never
// fails for a known book: upstream failures resolve to placeholders.
func (s *Service) Metadata(ctx context.Context, id int64) (metadata.Result, error) {
	b, err := s.catalog.Get(id)
	if err != nil {
		return metadata.Result{}, err
	}
	res := s.meta.Fetch(ctx, b.ISBN)
	res.Identifier = b.ISBN
	return res, nil
}
