// Package memory holds an in-memory UserRepository. It backs service tests
// and doubles as the reference implementation of the repository contract:
// uniqueness checks and reset-token redemption are atomic under one mutex.
package memory

import (
	"context"
	"sync"
	"time"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

type UserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		nextID: 1,
		users:  make(map[int64]*domain.User),
	}
}

func (r *UserRepository) Init(ctx context.Context) error { return nil }

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return 0, repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ProfileImage == "" {
		user.ProfileImage = "default-profile.png"
	}
	r.nextID++

	stored := *user
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(user), nil
}

func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, value string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == value || user.Email == value {
			return clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Update(ctx context.Context, id int64, upd repository.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if upd.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *upd.Email {
				return nil, repository.ErrDuplicate
			}
		}
		user.Email = *upd.Email
	}
	if upd.DisplayName != nil {
		user.DisplayName = *upd.DisplayName
	}
	if upd.PasswordHash != nil {
		user.PasswordHash = *upd.PasswordHash
	}
	if upd.ProfileImage != nil {
		user.ProfileImage = *upd.ProfileImage
	}
	if upd.ClearResetToken {
		user.ResetToken = ""
		user.ResetTokenExpiry = nil
	} else {
		if upd.ResetToken != nil {
			user.ResetToken = *upd.ResetToken
		}
		if upd.ResetTokenExpiry != nil {
			expiry := upd.ResetTokenExpiry.UTC()
			user.ResetTokenExpiry = &expiry
		}
	}
	user.UpdatedAt = time.Now().UTC()

	return clone(user), nil
}

func (r *UserRepository) RedeemResetToken(ctx context.Context, token, newPasswordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.ResetToken != token || user.ResetToken == "" {
			continue
		}
		if user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(now) {
			continue
		}
		user.PasswordHash = newPasswordHash
		user.ResetToken = ""
		user.ResetTokenExpiry = nil
		user.UpdatedAt = now.UTC()
		return clone(user), nil
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func clone(user *domain.User) *domain.User {
	copied := *user
	if user.ResetTokenExpiry != nil {
		expiry := *user.ResetTokenExpiry
		copied.ResetTokenExpiry = &expiry
	}
	return &copied
}
