package domain

import "time"

// Book is a catalog entry users pick to review. The catalog is read-only
// from the API; entries come from seeding.
type Book struct {
	ID            int64
	Title         string
	Author        string
	Description   string
	CoverImage    string
	AverageRating float64
	TotalReviews  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
