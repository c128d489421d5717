package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	profile_image TEXT NOT NULL DEFAULT 'default-profile.png',
	reset_token TEXT,
	reset_token_expiry DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const userColumns = `id, username, display_name, email, password_hash, profile_image, reset_token, reset_token_expiry, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ProfileImage == "" {
		user.ProfileImage = "default-profile.png"
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (username, display_name, email, password_hash, profile_image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, value string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users WHERE username = ? OR email = ?`,
		value, value,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) Update(ctx context.Context, id int64, upd repository.UserUpdate) (*domain.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if upd.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *upd.DisplayName)
	}
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *upd.Email)
	}
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	if upd.ProfileImage != nil {
		sets = append(sets, "profile_image = ?")
		args = append(args, *upd.ProfileImage)
	}
	if upd.ClearResetToken {
		sets = append(sets, "reset_token = NULL", "reset_token_expiry = NULL")
	} else {
		if upd.ResetToken != nil {
			sets = append(sets, "reset_token = ?")
			args = append(args, *upd.ResetToken)
		}
		if upd.ResetTokenExpiry != nil {
			sets = append(sets, "reset_token_expiry = ?")
			args = append(args, upd.ResetTokenExpiry.UTC())
		}
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user rows affected: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// RedeemResetToken consumes a live reset token: it matches on the token value
// and a strictly-future expiry, swaps in the new password hash, and clears
// both reset fields in one transaction. A second redemption of the same
// token finds no row and reports ErrNotFound.
func (r *UserRepository) RedeemResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin redeem tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT `+userColumns+` FROM users WHERE reset_token = ?`,
		token,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	// expired tokens stay unusable without needing explicit clearing
	if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(now) {
		return nil, repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users
SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL, updated_at = ?
WHERE id = ?`,
		newPasswordHash, now.UTC(), user.ID,
	); err != nil {
		return nil, fmt.Errorf("redeem reset token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit redeem tx: %w", err)
	}

	user.PasswordHash = newPasswordHash
	user.ResetToken = ""
	user.ResetTokenExpiry = nil
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user        domain.User
		resetToken  sql.NullString
		resetExpiry sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&resetToken,
		&resetExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if resetToken.Valid {
		user.ResetToken = resetToken.String
	}
	if resetExpiry.Valid {
		t := resetExpiry.Time
		user.ResetTokenExpiry = &t
	}
	return &user, nil
}
