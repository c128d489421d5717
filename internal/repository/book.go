package repository

import (
	"context"

	"book-review/internal/domain"
)

// BookRepository defines read and seed operations for the catalog. Rating
// aggregates on books are maintained by the review repository, not here.
type BookRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id int64) (*domain.Book, error)
	List(ctx context.Context, page, limit int) ([]domain.Book, int, error)
	Seed(ctx context.Context, books []domain.Book) error
}
