package repository

import (
	"context"
	"time"

	"book-review/internal/domain"
)

// UserUpdate is a partial update applied to a stored user. Nil fields are
// left untouched. ClearResetToken nulls both reset fields together so the
// pair invariant holds.
type UserUpdate struct {
	DisplayName      *string
	Email            *string
	PasswordHash     *string
	ProfileImage     *string
	ResetToken       *string
	ResetTokenExpiry *time.Time
	ClearResetToken  bool
}

// UserRepository defines persistence operations for User entities.
//
// Implementations own the uniqueness of username and email: Create and
// Update return ErrDuplicate instead of letting a racy check-then-insert
// leak through. RedeemResetToken is the single entry point for consuming a
// password-reset token; the not-expired match and the clearing update happen
// atomically so a token can never be redeemed twice.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, value string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, id int64, upd UserUpdate) (*domain.User, error)
	RedeemResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
}
