package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

type testRepos struct {
	users   repository.UserRepository
	books   repository.BookRepository
	reviews repository.ReviewRepository
}

func openTestDB(t *testing.T) testRepos {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := testRepos{
		users:   NewUserRepository(db),
		books:   NewBookRepository(db),
		reviews: NewReviewRepository(db),
	}
	ctx := context.Background()
	require.NoError(t, repos.users.Init(ctx))
	require.NoError(t, repos.books.Init(ctx))
	require.NoError(t, repos.reviews.Init(ctx))
	return repos
}

func mustBuildUser(username, email string) *domain.User {
	return &domain.User{
		Username:     username,
		DisplayName:  username,
		Email:        email,
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotarea",
	}
}

func mustCreateUser(t *testing.T, users repository.UserRepository, username, email string) *domain.User {
	t.Helper()
	user := mustBuildUser(username, email)
	_, err := users.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func mustSeedBooks(t *testing.T, books repository.BookRepository, titles ...string) []domain.Book {
	t.Helper()
	seed := make([]domain.Book, 0, len(titles))
	for _, title := range titles {
		seed = append(seed, domain.Book{Title: title, Author: "Author", Description: "d"})
	}
	require.NoError(t, books.Seed(context.Background(), seed))

	listed, _, err := books.List(context.Background(), 1, len(titles)+1)
	require.NoError(t, err)
	return listed
}
