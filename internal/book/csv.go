package book

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bookrec/internal/httpx"
)

// ErrMissingColumn is returned when a catalog CSV lacks a required header.
var ErrMissingColumn = errors.New("catalog csv: missing column")

// ParseCSV reads a catalog export with the headers title, author, genre,
// average_rating and release_year, plus an optional isbn column. Header
// matching is case-insensitive. Rows without a title are skipped and
// malformed ISBNs are cleared. IDs are not assigned; the store does that on
// import.
func ParseCSV(r io.Reader) ([]Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog csv: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"title", "author"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var books []Book
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("catalog csv: line %d: %w", line, err)
		}

		b := Book{
			Title:   field(rec, "title"),
			Authors: SplitAuthors(field(rec, "author")),
			Genres:  splitGenres(field(rec, "genre")),
		}
		if b.Title == "" {
			continue
		}
		// Spreadsheet exports mangle ISBNs into floats; those are dropped.
		if isbn := field(rec, "isbn"); httpx.ValidISBN(isbn) {
			b.ISBN = httpx.NormalizeISBN(isbn)
		}
		if v := field(rec, "average_rating"); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				b.AverageRating = &f
			}
		}
		if v := field(rec, "release_year"); v != "" {
			if y, err := strconv.Atoi(strings.TrimSuffix(v, ".0")); err == nil {
				b.PublicationYear = &y
			}
		}
		books = append(books, b)
	}
	return books, nil
}

func splitGenres(s string) []string {
	out := []string{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.EqualFold(tok, "unknown") {
			continue
		}
		out = append(out, tok)
	}
	return out
}
