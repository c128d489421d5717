package domain

import "time"

// User represents one registered account.
//
// ResetToken and ResetTokenExpiry are either both set or both empty; a
// populated pair describes the single live password-reset token for this
// user. PasswordHash is never the plaintext.
type User struct {
	ID               int64
	Username         string
	DisplayName      string
	Email            string
	PasswordHash     string
	ProfileImage     string
	ResetToken       string
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile is the redacted view of a User that may leave the process.
// It never carries the password hash or reset-token fields.
type Profile struct {
	ID           int64
	Username     string
	DisplayName  string
	Email        string
	ProfileImage string
}

// PublicProfile redacts a User down to the fields safe to return to callers.
func (u *User) PublicProfile() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}
