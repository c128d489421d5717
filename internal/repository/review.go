package repository

import (
	"context"

	"book-review/internal/domain"
)

// ReviewRepository defines persistence operations for reviews. Mutations
// recompute the owning book's averageRating/totalReviews in the same
// transaction, so readers never observe a review without its aggregate.
type ReviewRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, review *domain.Review) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Review, error)
	ListByBook(ctx context.Context, bookID int64, page, limit int) ([]domain.Review, int, error)
	ListByUser(ctx context.Context, userID int64, page, limit int) ([]domain.Review, int, error)
	Update(ctx context.Context, id int64, rating int, content string) (*domain.Review, error)
	Delete(ctx context.Context, id int64) error
	// BookIDsByUser lists the distinct books a user has reviewed. Callers
	// use it to know which aggregates to refresh before a cascaded delete.
	BookIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	// RefreshBookAggregates recomputes the stored aggregates for the given
	// books. Used after cascaded deletes (account removal).
	RefreshBookAggregates(ctx context.Context, bookIDs []int64) error
}
