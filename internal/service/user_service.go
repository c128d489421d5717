package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"book-review/internal/auth"
	"book-review/internal/domain"
	"book-review/internal/mail"
	"book-review/internal/repository"
)

var (
	// ErrInvalidCredentials covers both "no such user" and "wrong password";
	// callers must not be able to tell which it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateCredential is returned when the username or email is taken.
	ErrDuplicateCredential = errors.New("username or email already in use")
	// ErrInvalidOrExpiredToken rejects a reset or session token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrMissingToken is returned when no token was supplied at all.
	ErrMissingToken = errors.New("token is required")
	// ErrPrincipalNotFound means the token verified but the user is gone.
	ErrPrincipalNotFound = errors.New("user not found")
	// ErrWrongPassword rejects a password change with a bad current password.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// UserService owns registration, login, the password-reset lifecycle, token
// verification, and profile management.
type UserService interface {
	Register(ctx context.Context, username, displayName, email, password string) (*domain.Profile, error)
	Login(ctx context.Context, emailOrUsername, password string) (string, *domain.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyToken(ctx context.Context, rawToken string) (*domain.Profile, error)
	GetProfile(ctx context.Context, id int64) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id int64, displayName string) (*domain.Profile, error)
	UpdateProfileImage(ctx context.Context, id int64, imageKey string) (*domain.Profile, error)
	ChangeEmail(ctx context.Context, id int64, newEmail string) (*domain.Profile, error)
	ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, id int64) error
}

type userService struct {
	users     repository.UserRepository
	reviews   repository.ReviewRepository
	signer    *auth.Signer
	mailer    mail.Mailer
	logger    *logrus.Logger
	clientURL string
	resetTTL  time.Duration
}

func NewUserService(
	users repository.UserRepository,
	reviews repository.ReviewRepository,
	signer *auth.Signer,
	mailer mail.Mailer,
	logger *logrus.Logger,
	clientURL string,
	resetTTL time.Duration,
) UserService {
	return &userService{
		users:     users,
		reviews:   reviews,
		signer:    signer,
		mailer:    mailer,
		logger:    logger,
		clientURL: strings.TrimRight(clientURL, "/"),
		resetTTL:  resetTTL,
	}
}

func (s *userService) Register(ctx context.Context, username, displayName, email, password string) (*domain.Profile, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || displayName == "" || email == "" || password == "" {
		return nil, errors.New("all registration fields are required")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCredential
		}
		return nil, err
	}

	s.logger.Infof("user registered: %s", username)
	return user.PublicProfile(), nil
}

func (s *userService) Login(ctx context.Context, emailOrUsername, password string) (string, *domain.Profile, error) {
	emailOrUsername = strings.TrimSpace(emailOrUsername)
	if emailOrUsername == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, emailOrUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signer.Issue(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Infof("user logged in: %s", user.Username)
	return token, user.PublicProfile(), nil
}

// ForgotPassword issues a fresh single-use reset token. An unknown email is
// not an error: the caller sees the same outcome either way, and mail
// delivery failures are logged rather than surfaced, so nothing here leaks
// whether the account exists.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiry := time.Now().UTC().Add(s.resetTTL)

	if _, err := s.users.Update(ctx, user.ID, repository.UserUpdate{
		ResetToken:       &token,
		ResetTokenExpiry: &expiry,
	}); err != nil {
		return err
	}

	if s.mailer == nil {
		s.logger.Warnf("mailer not configured, skipping reset email for user %d", user.ID)
		return nil
	}
	if err := s.mailer.SendPasswordResetEmail(user.Email, s.resetLink(token)); err != nil {
		s.logger.Warnf("send reset email for user %d: %v", user.ID, err)
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrInvalidOrExpiredToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	user, err := s.users.RedeemResetToken(ctx, token, hash, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}

	s.logger.Infof("password reset for user %d", user.ID)
	return nil
}

func (s *userService) VerifyToken(ctx context.Context, rawToken string) (*domain.Profile, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrMissingToken
	}

	userID, err := s.signer.Verify(rawToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return user.PublicProfile(), nil
}

func (s *userService) GetProfile(ctx context.Context, id int64) (*domain.Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return user.PublicProfile(), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int64, displayName string) (*domain.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errors.New("display name is required")
	}

	user, err := s.users.Update(ctx, id, repository.UserUpdate{DisplayName: &displayName})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return user.PublicProfile(), nil
}

func (s *userService) UpdateProfileImage(ctx context.Context, id int64, imageKey string) (*domain.Profile, error) {
	user, err := s.users.Update(ctx, id, repository.UserUpdate{ProfileImage: &imageKey})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return user.PublicProfile(), nil
}

func (s *userService) ChangeEmail(ctx context.Context, id int64, newEmail string) (*domain.Profile, error) {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return nil, errors.New("email is required")
	}

	user, err := s.users.Update(ctx, id, repository.UserUpdate{Email: &newEmail})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateCredential
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return user.PublicProfile(), nil
}

func (s *userService) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return err
	}

	if !auth.CheckPassword(oldPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.Update(ctx, id, repository.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	s.logger.Infof("password changed for user %d", id)
	return nil
}

// DeleteAccount removes the user; their reviews go with them via the foreign
// key cascade, so the affected books' aggregates are recomputed afterwards.
func (s *userService) DeleteAccount(ctx context.Context, id int64) error {
	var bookIDs []int64
	if s.reviews != nil {
		ids, err := s.reviews.BookIDsByUser(ctx, id)
		if err != nil {
			return err
		}
		bookIDs = ids
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return err
	}

	if s.reviews != nil && len(bookIDs) > 0 {
		if err := s.reviews.RefreshBookAggregates(ctx, bookIDs); err != nil {
			s.logger.Warnf("refresh aggregates after account deletion: %v", err)
		}
	}

	s.logger.Infof("account deleted: user %d", id)
	return nil
}

func (s *userService) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, url.QueryEscape(token))
}

// generateResetToken returns 256 bits from crypto/rand, hex encoded.
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
