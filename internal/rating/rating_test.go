package rating

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"bookrec/internal/book"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type ratingKey struct {
	userID string
	bookID int64
}

// memRepo keeps one rating per (user, book), like the ratings table.
type memRepo struct {
	mu      sync.Mutex
	ratings map[ratingKey]Rating
	writes  int
}

func newMemRepo() *memRepo {
	return &memRepo{ratings: make(map[ratingKey]Rating)}
}

func (m *memRepo) Upsert(_ context.Context, r Rating) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	k := ratingKey{r.UserID, r.BookID}
	_, existed := m.ratings[k]
	m.ratings[k] = r
	return !existed, nil
}

func (m *memRepo) Get(_ context.Context, userID string, bookID int64) (Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ratings[ratingKey{userID, bookID}]
	if !ok {
		return Rating{}, ErrNotFound
	}
	return r, nil
}

func (m *memRepo) ListByUser(_ context.Context, userID string) ([]Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Rating
	for k, r := range m.ratings {
		if k.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookID < out[j].BookID })
	return out, nil
}

func testCatalog() *book.Catalog {
	return book.NewCatalog([]book.Book{
		{ID: 1, Title: "Emma", Authors: []string{"Jane Austen"}},
		{ID: 2, Title: "Persuasion", Authors: []string{"Jane Austen"}},
	})
}

func TestRate_OutOfRangeNeverStored(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.OneOf(rapid.IntMax(MinValue-1), rapid.IntMin(MaxValue+1)).Draw(t, "value")
		repo := newMemRepo()
		svc := NewService(repo, testCatalog())

		_, err := svc.Rate(context.Background(), "u1", 1, value)

		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.Zero(t, repo.writes)
		assert.Empty(t, repo.ratings)
	})
}

func TestRate_LatestRatingWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		first := rapid.IntRange(MinValue, MaxValue).Draw(t, "first")
		second := rapid.IntRange(MinValue, MaxValue).Draw(t, "second")
		repo := newMemRepo()
		svc := NewService(repo, testCatalog())

		created, err := svc.Rate(context.Background(), "u1", 2, first)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = svc.Rate(context.Background(), "u1", 2, second)
		require.NoError(t, err)
		assert.False(t, created)

		stored, err := repo.ListByUser(context.Background(), "u1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, second, stored[0].Value)
	})
}

func TestRate_UnknownBook(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	books := NewMockBookLookup(ctrl)
	books.EXPECT().Get(int64(9)).Return(book.Book{}, book.ErrNotFound)

	_, err := NewService(repo, books).Rate(context.Background(), "u1", 9, 3)

	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestRate_StorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	books := NewMockBookLookup(ctrl)
	books.EXPECT().Get(int64(1)).Return(book.Book{ID: 1}, nil)
	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(false, errors.New("connection reset"))

	_, err := NewService(repo, books).Rate(context.Background(), "u1", 1, 5)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert rating")
}

func TestRate_StampsTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	books := NewMockBookLookup(ctrl)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	books.EXPECT().Get(int64(1)).Return(book.Book{ID: 1}, nil)
	repo.EXPECT().Upsert(gomock.Any(), Rating{UserID: "u1", BookID: 1, Value: 4, RatedAt: fixed}).Return(true, nil)

	svc := NewService(repo, books)
	svc.now = func() time.Time { return fixed }

	created, err := svc.Rate(context.Background(), "u1", 1, 4)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRatedBooks_JoinsCatalog(t *testing.T) {
	repo := newMemRepo()
	repo.ratings[ratingKey{"u1", 1}] = Rating{UserID: "u1", BookID: 1, Value: 5}
	repo.ratings[ratingKey{"u1", 77}] = Rating{UserID: "u1", BookID: 77, Value: 2}
	repo.ratings[ratingKey{"u2", 2}] = Rating{UserID: "u2", BookID: 2, Value: 1}

	rated, err := NewService(repo, testCatalog()).RatedBooks(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, rated, 1)
	assert.Equal(t, "Emma", rated[0].Book.Title)
	assert.Equal(t, 5, rated[0].Value)
}

func TestUserRating_NotFound(t *testing.T) {
	_, err := NewService(newMemRepo(), testCatalog()).UserRating(context.Background(), "u1", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
