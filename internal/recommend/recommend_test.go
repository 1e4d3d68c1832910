package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookrec/internal/book"
	"bookrec/internal/metadata"
	"bookrec/internal/rating"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeRatings struct {
	rated []rating.RatedBook
	err   error
}

func (f fakeRatings) RatedBooks(context.Context, string) ([]rating.RatedBook, error) {
	return f.rated, f.err
}

type fakeWishlist struct {
	ids []int64
	err error
}

func (f fakeWishlist) BookIDs(context.Context, string) ([]int64, error) {
	return f.ids, f.err
}

type staticCatalog []book.Book

func (c staticCatalog) All() []book.Book { return c }

// fakeGenres answers from a map keyed by ISBN, optionally after a delay.
type fakeGenres struct {
	mu     sync.Mutex
	tags   map[string]string
	delay  map[string]time.Duration
	called []string
}

func (f *fakeGenres) FetchGenres(ctx context.Context, isbn string) string {
	f.mu.Lock()
	f.called = append(f.called, isbn)
	d := f.delay[isbn]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return metadata.NotAvailable
		}
	}
	if tags, ok := f.tags[isbn]; ok {
		return tags
	}
	return metadata.NotAvailable
}

func ptr(f float64) *float64 { return &f }

func rated(b book.Book, value int) rating.RatedBook {
	return rating.RatedBook{Book: b, Value: value}
}

func ids(books []book.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

// twentyBooks has 8 books by Ann (ids 1-8) and 12 by other authors.
func twentyBooks() []book.Book {
	ratings := map[int64]*float64{
		1: ptr(4.2), 2: ptr(4.1), 3: ptr(3.8),
		4: ptr(4.0), 5: ptr(4.5), 6: ptr(3.0), 7: ptr(4.9), 8: ptr(3.5),
		9: ptr(3.9), 10: ptr(4.8), 11: ptr(4.8), 12: ptr(2.0), 13: ptr(4.1),
		14: nil, 15: ptr(4.0), 16: ptr(3.0), 17: ptr(4.5), 18: ptr(1.0), 19: ptr(3.3), 20: ptr(5.0),
	}
	books := make([]book.Book, 0, 20)
	for id := int64(1); id <= 20; id++ {
		author := "Other"
		if id <= 8 {
			author = "Ann"
		}
		books = append(books, book.Book{
			ID:            id,
			Title:         "Book",
			Authors:       []string{author},
			AverageRating: ratings[id],
		})
	}
	books[0].ISBN = "isbn-1"
	books[1].ISBN = "isbn-2"
	books[2].ISBN = "isbn-3"
	return books
}

func TestRecommend_PrimaryPoolThenBackfill(t *testing.T) {
	catalog := twentyBooks()
	genres := &fakeGenres{tags: map[string]string{
		"isbn-1": "Fantasy, Adventure",
		"isbn-2": "Fantasy",
	}}
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 4), rated(catalog[2], 5)}},
		fakeWishlist{ids: []int64{20}},
		staticCatalog(catalog),
		genres,
		2,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 10)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, rec.Status)
	assert.Equal(t, []string{"Ann"}, rec.Profile.Authors)
	assert.Equal(t, []string{"Fantasy", "Adventure"}, rec.Profile.Genres)

	// Ann's five unseen books by rating, then the best of the rest with the
	// 4.8 tie kept in catalog order and the wishlisted book 20 left out.
	assert.Equal(t, []int64{7, 5, 4, 8, 6, 10, 11, 17, 13, 15}, ids(rec.Books))
	assert.ElementsMatch(t, []string{"isbn-1", "isbn-2", "isbn-3"}, genres.called)
	assert.Contains(t, rec.Summary, "Ann")
	assert.Contains(t, rec.Summary, "Fantasy and Adventure")
}

func TestRecommend_InsufficientData(t *testing.T) {
	catalog := twentyBooks()
	genres := &fakeGenres{}
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 5)}},
		fakeWishlist{},
		staticCatalog(catalog),
		genres,
		0,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientData, rec.Status)
	assert.Empty(t, rec.Books)
	assert.Equal(t, MessageInsufficientData, rec.Summary)
	assert.Empty(t, genres.called)
}

func TestRecommend_NoHighRatings(t *testing.T) {
	catalog := twentyBooks()
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 3), rated(catalog[1], 1), rated(catalog[2], 2)}},
		fakeWishlist{},
		staticCatalog(catalog),
		&fakeGenres{},
		0,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, StatusNoHighRatings, rec.Status)
	assert.Empty(t, rec.Books)
	assert.Equal(t, MessageNoHighRatings, rec.Summary)
}

func TestRecommend_MissingISBNStillCountsAuthors(t *testing.T) {
	catalog := []book.Book{
		{ID: 1, Authors: []string{"Kim, Lee"}},
		{ID: 2, Authors: []string{"Kim"}},
		{ID: 3, Authors: []string{"Park"}},
		{ID: 4, Authors: []string{"Lee"}, AverageRating: ptr(3.0)},
		{ID: 5, Authors: []string{"Cho"}, AverageRating: ptr(5.0)},
	}
	genres := &fakeGenres{}
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 4), rated(catalog[2], 2)}},
		fakeWishlist{},
		staticCatalog(catalog),
		genres,
		0,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, rec.Status)
	assert.Equal(t, []string{"Kim", "Lee"}, rec.Profile.Authors)
	assert.Empty(t, rec.Profile.Genres)
	assert.Empty(t, genres.called)
	assert.Equal(t, []int64{4, 5}, ids(rec.Books))
	assert.NotContains(t, rec.Summary, "genres")
}

func TestRecommend_GenresMatchedByPosition(t *testing.T) {
	catalog := []book.Book{
		{ID: 1, Authors: []string{"A"}, ISBN: "slow"},
		{ID: 2, Authors: []string{"B"}, ISBN: "medium"},
		{ID: 3, Authors: []string{"C"}, ISBN: "fast"},
	}
	genres := &fakeGenres{
		tags: map[string]string{
			"slow":   "Horror",
			"medium": "Horror, Poetry",
			"fast":   "Poetry",
		},
		delay: map[string]time.Duration{
			"slow":   30 * time.Millisecond,
			"medium": 15 * time.Millisecond,
		},
	}
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 5), rated(catalog[2], 5)}},
		fakeWishlist{},
		staticCatalog(catalog),
		genres,
		3,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Horror", "Poetry"}, rec.Profile.Genres)
	assert.Equal(t, []string{"A", "B", "C"}, rec.Profile.Authors)
}

func TestRecommend_StorageErrorsAbort(t *testing.T) {
	catalog := twentyBooks()
	three := []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 5), rated(catalog[2], 5)}

	tests := []struct {
		name     string
		ratings  fakeRatings
		wishlist fakeWishlist
	}{
		{name: "ratings", ratings: fakeRatings{err: errors.New("db down")}},
		{name: "wishlist", ratings: fakeRatings{rated: three}, wishlist: fakeWishlist{err: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewScorer(tt.ratings, tt.wishlist, staticCatalog(catalog), &fakeGenres{}, 0)
			rec, err := scorer.Recommend(context.Background(), "user-1", 10)
			require.Error(t, err)
			assert.Empty(t, rec.Books)
		})
	}
}

func TestRecommend_CanceledContext(t *testing.T) {
	catalog := twentyBooks()
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 5), rated(catalog[2], 5)}},
		fakeWishlist{},
		staticCatalog(catalog),
		&fakeGenres{},
		0,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scorer.Recommend(ctx, "user-1", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecommend_DefaultLimit(t *testing.T) {
	catalog := twentyBooks()
	scorer := NewScorer(
		fakeRatings{rated: []rating.RatedBook{rated(catalog[0], 5), rated(catalog[1], 5), rated(catalog[2], 5)}},
		fakeWishlist{},
		staticCatalog(catalog),
		&fakeGenres{},
		0,
	)

	rec, err := scorer.Recommend(context.Background(), "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, rec.Books, DefaultLimit)
}

func TestRecommend_CandidatesNeverRepeatOrLeakExclusions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(3, 30).Draw(t, "size")
		authors := []string{"Ann", "Bo", "Cy", "Di"}
		catalog := make([]book.Book, size)
		for i := range catalog {
			var avg *float64
			if rapid.Bool().Draw(t, "rated") {
				avg = ptr(float64(rapid.IntRange(10, 50).Draw(t, "avg")) / 10)
			}
			catalog[i] = book.Book{
				ID:            int64(i + 1),
				Authors:       []string{rapid.SampledFrom(authors).Draw(t, "author")},
				AverageRating: avg,
			}
		}

		ratedIDs := rapid.SliceOfNDistinct(rapid.Int64Range(1, int64(size)), 3, size, func(id int64) int64 { return id }).Draw(t, "rated")
		var history []rating.RatedBook
		for _, id := range ratedIDs {
			history = append(history, rated(catalog[id-1], rapid.IntRange(1, 5).Draw(t, "value")))
		}
		wished := rapid.SliceOfDistinct(rapid.Int64Range(1, int64(size)), func(id int64) int64 { return id }).Draw(t, "wished")
		limit := rapid.IntRange(1, 15).Draw(t, "limit")

		scorer := NewScorer(fakeRatings{rated: history}, fakeWishlist{ids: wished}, staticCatalog(catalog), &fakeGenres{}, 0)
		rec, err := scorer.Recommend(context.Background(), "user-1", limit)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Status != StatusOK {
			return
		}

		excluded := map[int64]bool{}
		for _, id := range ratedIDs {
			excluded[id] = true
		}
		for _, id := range wished {
			excluded[id] = true
		}
		want := size - len(excluded)
		if want > limit {
			want = limit
		}
		if len(rec.Books) != want {
			t.Fatalf("got %d books, want %d", len(rec.Books), want)
		}
		seen := map[int64]bool{}
		for _, b := range rec.Books {
			if excluded[b.ID] {
				t.Fatalf("book %d is excluded", b.ID)
			}
			if seen[b.ID] {
				t.Fatalf("book %d repeated", b.ID)
			}
			seen[b.ID] = true
		}
	})
}

func TestTopN(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, topN([]string{"a", "b", "b", "c", "a", "b", "d"}, 3))
	assert.Equal(t, []string{}, topN(nil, 3))
	assert.Equal(t, []string{"x"}, topN([]string{"", metadata.NotAvailable, "x"}, 3))
}

func TestJoinList(t *testing.T) {
	assert.Equal(t, "", joinList(nil))
	assert.Equal(t, "A", joinList([]string{"A"}))
	assert.Equal(t, "A and B", joinList([]string{"A", "B"}))
	assert.Equal(t, "A, B and C", joinList([]string{"A", "B", "C"}))
}
