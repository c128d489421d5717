package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"book-review/internal/repository"
)

func TestUserRepository_UniqueUsernameAndEmail(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, repos.users, "alice", "alice@x.com")

	dup := mustBuildUser("alice", "other@x.com")
	_, err := repos.users.Create(ctx, dup)
	require.ErrorIs(t, err, repository.ErrDuplicate)

	dup = mustBuildUser("alice2", "alice@x.com")
	_, err = repos.users.Create(ctx, dup)
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestUserRepository_GetByUsernameOrEmail(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	created := mustCreateUser(t, repos.users, "alice", "alice@x.com")

	byUsername, err := repos.users.GetByUsernameOrEmail(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, created.ID, byUsername.ID)

	byEmail, err := repos.users.GetByUsernameOrEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	_, err = repos.users.GetByUsernameOrEmail(ctx, "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_UpdateEmailDuplicate(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, repos.users, "alice", "alice@x.com")
	bob := mustCreateUser(t, repos.users, "bob", "bob@x.com")

	taken := "alice@x.com"
	_, err := repos.users.Update(ctx, bob.ID, repository.UserUpdate{Email: &taken})
	require.ErrorIs(t, err, repository.ErrDuplicate)

	free := "bob+new@x.com"
	updated, err := repos.users.Update(ctx, bob.ID, repository.UserUpdate{Email: &free})
	require.NoError(t, err)
	require.Equal(t, free, updated.Email)
}

func TestUserRepository_UpdateUnknownID(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)

	name := "Nobody"
	_, err := repos.users.Update(context.Background(), 9999, repository.UserUpdate{DisplayName: &name})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_RedeemResetToken(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, repos.users, "alice", "alice@x.com")

	token := "aaaabbbbccccddddaaaabbbbccccddddaaaabbbbccccddddaaaabbbbccccdddd"
	expiry := time.Now().UTC().Add(time.Hour)
	_, err := repos.users.Update(ctx, user.ID, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	})
	require.NoError(t, err)

	redeemed, err := repos.users.RedeemResetToken(ctx, token, "new-hash", time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, redeemed.ID)
	require.Equal(t, "new-hash", redeemed.PasswordHash)
	require.Empty(t, redeemed.ResetToken)
	require.Nil(t, redeemed.ResetTokenExpiry)

	// a second redemption of the same token finds nothing
	_, err = repos.users.RedeemResetToken(ctx, token, "other-hash", time.Now())
	require.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := repos.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", stored.PasswordHash)
	require.Empty(t, stored.ResetToken)
}

func TestUserRepository_RedeemExpiredToken(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, repos.users, "alice", "alice@x.com")

	token := "eeeeffff0000111122223333444455556666777788889999aaaabbbbccccdddd"
	expiry := time.Now().UTC().Add(-time.Second)
	_, err := repos.users.Update(ctx, user.ID, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	})
	require.NoError(t, err)

	_, err = repos.users.RedeemResetToken(ctx, token, "new-hash", time.Now())
	require.ErrorIs(t, err, repository.ErrNotFound)

	// the stored password is untouched
	stored, err := repos.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.PasswordHash, stored.PasswordHash)
}

func TestUserRepository_ClearResetToken(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, repos.users, "alice", "alice@x.com")

	token := "1111222233334444555566667777888899990000aaaabbbbccccddddeeeeffff"
	expiry := time.Now().UTC().Add(time.Hour)
	_, err := repos.users.Update(ctx, user.ID, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	})
	require.NoError(t, err)

	cleared, err := repos.users.Update(ctx, user.ID, repository.UserUpdate{ClearResetToken: true})
	require.NoError(t, err)
	require.Empty(t, cleared.ResetToken)
	require.Nil(t, cleared.ResetTokenExpiry)
}

func TestUserRepository_Delete(t *testing.T) {
	t.Parallel()
	repos := openTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, repos.users, "alice", "alice@x.com")

	require.NoError(t, repos.users.Delete(ctx, user.ID))
	require.ErrorIs(t, repos.users.Delete(ctx, user.ID), repository.ErrNotFound)

	_, err := repos.users.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
