package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// NotAvailable is returned when no genre information could be produced.
	NotAvailable = "N/A"
	// DescriptionNotFound is returned when no service had a matching record.
	DescriptionNotFound = "No description found."
	// DescriptionMissing is returned when a record exists but carries no description.
	DescriptionMissing = "No description available."

	maxGenres = 5
)

// ErrMalformedResponse is returned by sources whose payload cannot be decoded.
var ErrMalformedResponse = errors.New("malformed metadata response")

// Record is what a source knows about one book. A nil *Record means no match.
type Record struct {
	Description string
	Genres      []string
}

// Result is the normalized metadata for one book.
type Result struct {
	Identifier  string    `json:"identifier"`
	Description string    `json:"description"`
	Genres      []string  `json:"genres"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Source looks up metadata for an external identifier (ISBN).
type Source interface {
	Name() string
	Lookup(ctx context.Context, identifier string) (*Record, error)
}

// StatusError reports a non-200 response from a source.
type StatusError struct {
	Source string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.Source, e.Code)
}

// Retryable reports whether the status is a transient gateway failure.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Retryable()
}
