package book

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_GetAndFindByIDs(t *testing.T) {
	c := NewCatalog(testBooks())

	b, err := c.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "The Silmarillion", b.Title)

	_, err = c.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)

	found := c.FindByIDs([]int64{3, 99, 1})
	require.Len(t, found, 2)
	assert.Equal(t, int64(3), found[0].ID)
	assert.Equal(t, int64(1), found[1].ID)
}

func TestCatalog_Search(t *testing.T) {
	c := NewCatalog(testBooks())

	assert.Len(t, c.Search("HOBBIT", 0), 1)
	assert.Len(t, c.Search("christopher", 0), 1)
	assert.Len(t, c.Search("tolkien", 1), 1)
	assert.Nil(t, c.Search("   ", 0))
}

func TestCatalog_SearchDefaultLimit(t *testing.T) {
	books := make([]Book, 25)
	for i := range books {
		books[i] = Book{ID: int64(i + 1), Title: "Volume", Authors: []string{"Anon"}}
	}

	assert.Len(t, NewCatalog(books).Search("volume", 0), defaultSearchLimit)
}

func TestCatalog_List(t *testing.T) {
	c := NewCatalog(testBooks())

	p := c.List(2, 0)
	assert.Equal(t, 3, p.Total)
	assert.Len(t, p.Books, 2)

	p = c.List(2, 10)
	assert.Empty(t, p.Books)
	assert.NotNil(t, p.Books)
}

func TestCatalog_Reload(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	gomock.InOrder(
		repo.EXPECT().LoadAll(gomock.Any()).Return(testBooks()[:1], nil),
		repo.EXPECT().LoadAll(gomock.Any()).Return(testBooks(), nil),
		repo.EXPECT().LoadAll(gomock.Any()).Return(nil, errors.New("connection refused")),
	)

	c, err := LoadCatalog(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Reload(context.Background()))
	assert.Equal(t, 3, c.Len())

	assert.Error(t, c.Reload(context.Background()))
	assert.Equal(t, 3, c.Len(), "failed reload keeps the previous snapshot")
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffTitle,author,genre,average_rating,isbn,release_year\n" +
		"The Hobbit,J.R.R. Tolkien,\"Fantasy, Classics\",4.7,9780261102217,1937\n" +
		"Good Omens,\"Terry Pratchett, Neil Gaiman\",Unknown,,,1990.0\n" +
		",Nobody,Drama,3.0,,2000\n" +
		"Dune,Frank Herbert,Science Fiction,4.3,9.78044E+12,1965\n"

	books, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, books, 3)

	assert.Equal(t, "The Hobbit", books[0].Title)
	assert.Equal(t, []string{"Fantasy", "Classics"}, books[0].Genres)
	require.NotNil(t, books[0].AverageRating)
	assert.Equal(t, 4.7, *books[0].AverageRating)
	assert.Equal(t, 1937, *books[0].PublicationYear)
	assert.Equal(t, "9780261102217", books[0].ISBN)

	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, books[1].Authors)
	assert.Empty(t, books[1].Genres)
	assert.Nil(t, books[1].AverageRating)
	assert.Equal(t, 1990, *books[1].PublicationYear)

	assert.Equal(t, "Dune", books[2].Title)
	assert.Empty(t, books[2].ISBN, "float-mangled ISBN is dropped")
}

func TestParseCSV_MissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("name,genre\nx,y\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestSplitAuthors(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, SplitAuthors(" A ,, B "))
	assert.Nil(t, SplitAuthors(""))
}
