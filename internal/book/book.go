package book

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

// Book represents a catalog entry. Books are immutable once loaded.
type Book struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Genres          []string `json:"genres"`
	AverageRating   *float64 `json:"average_rating"`
	ISBN            string   `json:"isbn,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
}

// HasAuthor reports whether any of the book's authors is in set.
func (b Book) HasAuthor(set map[string]struct{}) bool {
	for _, a := range b.Authors {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

// SplitAuthors tokenizes a comma-separated author field.
func SplitAuthors(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Page is a window over the catalog.
type Page struct {
	Books []Book
	Total int
}
