package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

func TestCreate_Duplicate(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "alice", Email: "other@x.com"})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = repo.Create(ctx, &domain.User{Username: "alice2", Email: "alice@x.com"})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCreate_Concurrent(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	const attempts = 50
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, &domain.User{
				Username: "alice",
				Email:    fmt.Sprintf("alice+%d@x.com", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, errors.Is(err, repository.ErrDuplicate), "unexpected error: %v", err)
	}
	require.Equal(t, 1, wins)
}

func TestGetReturnsCopies(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@x.com", DisplayName: "Alice"}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)

	first, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	first.DisplayName = "mutated"

	second, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Alice", second.DisplayName)
}

func TestRedeemResetToken_SingleUse(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@x.com"}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)

	token := "tok"
	expiry := time.Now().Add(time.Hour)
	_, err = repo.Update(ctx, id, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	})
	require.NoError(t, err)

	// race two redemptions of the same token
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := repo.RedeemResetToken(ctx, token, "new-hash", time.Now())
			results <- err
		}()
	}

	var wins, misses int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrNotFound):
			misses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, misses)
}

func TestRedeemResetToken_Expired(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	id, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	token := "tok"
	expiry := time.Now().Add(-time.Second)
	_, err = repo.Update(ctx, id, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	})
	require.NoError(t, err)

	_, err = repo.RedeemResetToken(ctx, token, "new-hash", time.Now())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_EmailDuplicate(t *testing.T) {
	t.Parallel()
	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)
	bobID, err := repo.Create(ctx, &domain.User{Username: "bob", Email: "bob@x.com"})
	require.NoError(t, err)

	taken := "alice@x.com"
	_, err = repo.Update(ctx, bobID, repository.UserUpdate{Email: &taken})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}
