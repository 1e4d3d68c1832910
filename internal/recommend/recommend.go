package recommend

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"bookrec/internal/book"
	"bookrec/internal/metadata"
	"bookrec/internal/rating"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit      = 10
	minRatedBooks     = 3
	minSignalRating   = 4
	profileSize       = 3
	defaultConcurrent = 4
)

// Status tells the caller whether a recommendation list could be produced.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	StatusNoHighRatings    Status = "no_high_ratings"
)

const (
	MessageInsufficientData = "Please rate at least 3 books to get recommendations."
	MessageNoHighRatings    = "Rate a few books 4 stars or higher so we can learn what you like."
)

// Profile is the reader's inferred taste.
type Profile struct {
	Authors []string `json:"authors"`
	Genres  []string `json:"genres"`
}

type Recommendation struct {
	Status  Status      `json:"status"`
	Books   []book.Book `json:"books"`
	Profile Profile     `json:"profile"`
	Summary string      `json:"summary"`
}

type GenreFetcher interface {
	FetchGenres(ctx context.Context, identifier string) string
}

type RatingSource interface {
	RatedBooks(ctx context.Context, userID string) ([]rating.RatedBook, error)
}

type WishlistSource interface {
	BookIDs(ctx context.Context, userID string) ([]int64, error)
}

type Catalog interface {
	All() []book.Book
}

type Scorer struct {
	ratings     RatingSource
	wishlist    WishlistSource
	catalog     Catalog
	genres      GenreFetcher
	concurrency int
}

// NewScorer wires a Scorer. concurrency bounds the genre lookups in flight
// for one request; values below 1 use a small default.
func NewScorer(ratings RatingSource, wishlist WishlistSource, catalog Catalog, genres GenreFetcher, concurrency int) *Scorer {
	if concurrency < 1 {
		concurrency = defaultConcurrent
	}
	return &Scorer{
		ratings:     ratings,
		wishlist:    wishlist,
		catalog:     catalog,
		genres:      genres,
		concurrency: concurrency,
	}
}

// Recommend returns up to limit unseen books for userID. Too little history
// is reported through Status with a nil error; only storage failures and
// cancellation return an error.
func (s *Scorer) Recommend(ctx context.Context, userID string, limit int) (Recommendation, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rated, err := s.ratings.RatedBooks(ctx, userID)
	if err != nil {
		return Recommendation{}, fmt.Errorf("load ratings: %w", err)
	}
	wished, err := s.wishlist.BookIDs(ctx, userID)
	if err != nil {
		return Recommendation{}, fmt.Errorf("load wishlist: %w", err)
	}

	if len(rated) < minRatedBooks {
		return empty(StatusInsufficientData, MessageInsufficientData), nil
	}

	var signal []book.Book
	for _, rb := range rated {
		if rb.Value >= minSignalRating {
			signal = append(signal, rb.Book)
		}
	}
	if len(signal) == 0 {
		return empty(StatusNoHighRatings, MessageNoHighRatings), nil
	}

	genreTags, err := s.fetchGenres(ctx, signal)
	if err != nil {
		return Recommendation{}, err
	}

	var authorTokens, genreTokens []string
	for i, b := range signal {
		for _, a := range b.Authors {
			authorTokens = append(authorTokens, book.SplitAuthors(a)...)
		}
		genreTokens = append(genreTokens, metadata.SplitGenres(genreTags[i])...)
	}
	profile := Profile{
		Authors: topN(authorTokens, profileSize),
		Genres:  topN(genreTokens, profileSize),
	}

	excluded := make(map[int64]struct{}, len(rated)+len(wished))
	for _, rb := range rated {
		excluded[rb.Book.ID] = struct{}{}
	}
	for _, id := range wished {
		excluded[id] = struct{}{}
	}

	return Recommendation{
		Status:  StatusOK,
		Books:   selectCandidates(s.catalog.All(), profile.Authors, excluded, limit),
		Profile: profile,
		Summary: summarize(profile),
	}, nil
}

// fetchGenres looks up genres for every book concurrently. The result at
// index i belongs to books[i]. Books without an ISBN get NotAvailable.
func (s *Scorer) fetchGenres(ctx context.Context, books []book.Book) ([]string, error) {
	out := make([]string, len(books))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range books {
		if b.ISBN == "" {
			out[i] = metadata.NotAvailable
			continue
		}
		g.Go(func() error {
			out[i] = s.genres.FetchGenres(gctx, b.ISBN)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch genres: %w", err)
	}
	return out, nil
}

func empty(status Status, msg string) Recommendation {
	return Recommendation{
		Status:  status,
		Books:   []book.Book{},
		Profile: Profile{Authors: []string{}, Genres: []string{}},
		Summary: msg,
	}
}

// topN ranks distinct tokens by descending frequency. Ties keep the order in
// which tokens first appeared.
func topN(tokens []string, n int) []string {
	counts := make(map[string]int, len(tokens))
	var order []string
	for _, t := range tokens {
		if t == "" || t == metadata.NotAvailable {
			continue
		}
		if counts[t] == 0 {
			order = append(order, t)
		}
		counts[t]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// selectCandidates fills up to limit slots with unseen books by the profile
// authors, then backfills from the rest of the catalog. Both passes order by
// descending average rating, unknown ratings last, ties in catalog order.
func selectCandidates(catalog []book.Book, authors []string, excluded map[int64]struct{}, limit int) []book.Book {
	authorSet := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		authorSet[a] = struct{}{}
	}

	var primary, rest []book.Book
	for _, b := range catalog {
		if _, seen := excluded[b.ID]; seen {
			continue
		}
		if b.HasAuthor(authorSet) {
			primary = append(primary, b)
		} else {
			rest = append(rest, b)
		}
	}
	slices.SortStableFunc(primary, byRatingDesc)
	slices.SortStableFunc(rest, byRatingDesc)

	out := make([]book.Book, 0, limit)
	for _, pool := range [][]book.Book{primary, rest} {
		for _, b := range pool {
			if len(out) == limit {
				return out
			}
			out = append(out, b)
		}
	}
	return out
}

func byRatingDesc(a, b book.Book) int {
	switch {
	case a.AverageRating == nil && b.AverageRating == nil:
		return 0
	case a.AverageRating == nil:
		return 1
	case b.AverageRating == nil:
		return -1
	}
	return cmp.Compare(*b.AverageRating, *a.AverageRating)
}

func summarize(p Profile) string {
	var sb strings.Builder
	if len(p.Authors) > 0 {
		sb.WriteString("Based on your highly rated books, you seem to enjoy ")
		sb.WriteString(joinList(p.Authors))
		sb.WriteString(".")
	} else {
		sb.WriteString("Here are some of the highest rated books you have not read yet.")
	}
	if len(p.Genres) > 0 {
		sb.WriteString(" Your favorite genres look like ")
		sb.WriteString(joinList(p.Genres))
		sb.WriteString(".")
	}
	return sb.String()
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
