package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

func TestReviewRepository_AggregatesTrackMutations(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repos.users, "alice", "alice@x.com")
	bob := mustCreateUser(t, repos.users, "bob", "bob@x.com")
	books := mustSeedBooks(t, repos.books, "Dune")
	book := books[0]

	first := &domain.Review{UserID: alice.ID, BookID: book.ID, Rating: 4, Content: "really liked it"}
	_, err := repos.reviews.Create(ctx, first)
	require.NoError(t, err)

	second := &domain.Review{UserID: bob.ID, BookID: book.ID, Rating: 2, Content: "not my genre at all"}
	_, err = repos.reviews.Create(ctx, second)
	require.NoError(t, err)

	got, err := repos.books.Get(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalReviews)
	require.InDelta(t, 3.0, got.AverageRating, 0.001)

	_, err = repos.reviews.Update(ctx, second.ID, 5, "changed my mind entirely")
	require.NoError(t, err)

	got, err = repos.books.Get(ctx, book.ID)
	require.NoError(t, err)
	require.InDelta(t, 4.5, got.AverageRating, 0.001)

	require.NoError(t, repos.reviews.Delete(ctx, first.ID))
	require.NoError(t, repos.reviews.Delete(ctx, second.ID))

	got, err = repos.books.Get(ctx, book.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.TotalReviews)
	require.InDelta(t, 0.0, got.AverageRating, 0.001)
}

func TestReviewRepository_OneReviewPerUserPerBook(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repos.users, "alice", "alice@x.com")
	books := mustSeedBooks(t, repos.books, "Dune")

	review := &domain.Review{UserID: alice.ID, BookID: books[0].ID, Rating: 5, Content: "a favourite of mine"}
	_, err := repos.reviews.Create(ctx, review)
	require.NoError(t, err)

	again := &domain.Review{UserID: alice.ID, BookID: books[0].ID, Rating: 1, Content: "second thoughts here"}
	_, err = repos.reviews.Create(ctx, again)
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestReviewRepository_ListByBookIncludesReviewer(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repos.users, "alice", "alice@x.com")
	bob := mustCreateUser(t, repos.users, "bob", "bob@x.com")
	books := mustSeedBooks(t, repos.books, "Dune")

	_, err := repos.reviews.Create(ctx, &domain.Review{UserID: alice.ID, BookID: books[0].ID, Rating: 4, Content: "first impression"})
	require.NoError(t, err)
	_, err = repos.reviews.Create(ctx, &domain.Review{UserID: bob.ID, BookID: books[0].ID, Rating: 3, Content: "second impression"})
	require.NoError(t, err)

	reviews, total, err := repos.reviews.ListByBook(ctx, books[0].ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, reviews, 2)

	// newest first; ties broken by id
	require.Equal(t, bob.ID, reviews[0].UserID)
	require.NotNil(t, reviews[0].Reviewer)
	require.Equal(t, "bob", reviews[0].Reviewer.Username)
	require.Equal(t, alice.ID, reviews[1].UserID)
}

func TestReviewRepository_ListByUserIncludesBook(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repos.users, "alice", "alice@x.com")
	books := mustSeedBooks(t, repos.books, "Dune", "Emma")

	_, err := repos.reviews.Create(ctx, &domain.Review{UserID: alice.ID, BookID: books[0].ID, Rating: 4, Content: "about the first"})
	require.NoError(t, err)
	_, err = repos.reviews.Create(ctx, &domain.Review{UserID: alice.ID, BookID: books[1].ID, Rating: 5, Content: "about the second"})
	require.NoError(t, err)

	reviews, total, err := repos.reviews.ListByUser(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, reviews, 2)
	require.NotNil(t, reviews[0].Book)
	require.NotEmpty(t, reviews[0].Book.Title)
}

func TestReviewRepository_Pagination(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	books := mustSeedBooks(t, repos.books, "Dune")
	for i := 0; i < 5; i++ {
		user := mustCreateUser(t, repos.users,
			"user"+string(rune('a'+i)), "user"+string(rune('a'+i))+"@x.com")
		_, err := repos.reviews.Create(ctx, &domain.Review{
			UserID: user.ID, BookID: books[0].ID, Rating: 3, Content: "a middling take",
		})
		require.NoError(t, err)
	}

	page1, total, err := repos.reviews.ListByBook(ctx, books[0].ID, 1, 2)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page1, 2)

	page3, _, err := repos.reviews.ListByBook(ctx, books[0].ID, 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
}

func TestReviewRepository_UserDeleteCascades(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repos.users, "alice", "alice@x.com")
	bob := mustCreateUser(t, repos.users, "bob", "bob@x.com")
	books := mustSeedBooks(t, repos.books, "Dune")

	_, err := repos.reviews.Create(ctx, &domain.Review{UserID: alice.ID, BookID: books[0].ID, Rating: 5, Content: "kept after delete? no"})
	require.NoError(t, err)
	_, err = repos.reviews.Create(ctx, &domain.Review{UserID: bob.ID, BookID: books[0].ID, Rating: 1, Content: "this one survives it"})
	require.NoError(t, err)

	affected, err := repos.reviews.BookIDsByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{books[0].ID}, affected)

	require.NoError(t, repos.users.Delete(ctx, alice.ID))
	require.NoError(t, repos.reviews.RefreshBookAggregates(ctx, affected))

	reviews, total, err := repos.reviews.ListByBook(ctx, books[0].ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, bob.ID, reviews[0].UserID)

	book, err := repos.books.Get(ctx, books[0].ID)
	require.NoError(t, err)
	require.Equal(t, 1, book.TotalReviews)
	require.InDelta(t, 1.0, book.AverageRating, 0.001)
}

func TestReviewRepository_DeleteUnknown(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)

	require.ErrorIs(t, repos.reviews.Delete(context.Background(), 4242), repository.ErrNotFound)
}
