package book

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

const defaultSearchLimit = 10

type snapshot struct {
	books []Book
	index map[int64]int
}

func newSnapshot(books []Book) *snapshot {
	s := &snapshot{
		books: books,
		index: make(map[int64]int, len(books)),
	}
	for i, b := range books {
		s.index[b.ID] = i
	}
	return s
}

// Catalog is a read-only, in-memory view of every book. Readers never block;
// Reload swaps the whole snapshot atomically.
type Catalog struct {
	repo Repository
	cur  atomic.Pointer[snapshot]
}

// NewCatalog builds a catalog over a fixed book list.
func NewCatalog(books []Book) *Catalog {
	c := &Catalog{}
	c.cur.Store(newSnapshot(books))
	return c
}

// LoadCatalog reads every book from repo into a new catalog.
func LoadCatalog(ctx context.Context, repo Repository) (*Catalog, error) {
	c := &Catalog{repo: repo}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog from its repository.
func (c *Catalog) Reload(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	books, err := c.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c.cur.Store(newSnapshot(books))
	return nil
}

// All returns every book in catalog order. Callers must not modify the slice.
func (c *Catalog) All() []Book {
	return c.cur.Load().books
}

func (c *Catalog) Len() int {
	return len(c.cur.Load().books)
}

func (c *Catalog) Get(id int64) (Book, error) {
	s := c.cur.Load()
	i, ok := s.index[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return s.books[i], nil
}

// FindByIDs returns the known books among ids, in the order given. Unknown
// ids are skipped.
func (c *Catalog) FindByIDs(ids []int64) []Book {
	s := c.cur.Load()
	out := make([]Book, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, s.books[i])
		}
	}
	return out
}

// Search matches q case-insensitively against titles and authors and returns
// at most limit books in catalog order.
func (c *Catalog) Search(q string, limit int) []Book {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}

	var out []Book
	for _, b := range c.cur.Load().books {
		if matches(b, q) {
			out = append(out, b)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func matches(b Book, q string) bool {
	if strings.Contains(strings.ToLower(b.Title), q) {
		return true
	}
	for _, a := range b.Authors {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}

// List pages through the catalog in catalog order.
func (c *Catalog) List(limit, offset int) Page {
	books := c.cur.Load().books
	total := len(books)
	if offset >= total {
		return Page{Books: []Book{}, Total: total}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return Page{Books: books[offset:end], Total: total}
}
