package domain

import "time"

// Review is a user-authored rating and write-up for one book. A user gets at
// most one review per book.
type Review struct {
	ID        int64
	UserID    int64
	BookID    int64
	Rating    int
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Filled by list queries when the caller needs the related names.
	Reviewer *Profile
	Book     *Book
}
