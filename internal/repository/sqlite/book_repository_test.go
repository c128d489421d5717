package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"book-review/internal/repository"
)

func TestBookRepository_ListOrderedByTitle(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)

	mustSeedBooks(t, repos.books, "Zorba the Greek", "Anna Karenina", "Middlemarch")

	books, total, err := repos.books.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, books, 3)
	require.Equal(t, "Anna Karenina", books[0].Title)
	require.Equal(t, "Middlemarch", books[1].Title)
	require.Equal(t, "Zorba the Greek", books[2].Title)
}

func TestBookRepository_Pagination(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	mustSeedBooks(t, repos.books, "A", "B", "C", "D", "E")

	page1, total, err := repos.books.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page1, 2)
	require.Equal(t, "A", page1[0].Title)

	page3, _, err := repos.books.List(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	require.Equal(t, "E", page3[0].Title)
}

func TestBookRepository_SeedIsIdempotent(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	mustSeedBooks(t, repos.books, "Dune")
	mustSeedBooks(t, repos.books, "Dune", "Emma") // no-op, table not empty

	_, total, err := repos.books.List(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestBookRepository_GetUnknown(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)

	_, err := repos.books.Get(context.Background(), 4242)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
