package service

import (
	"context"
	"errors"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

var (
	// ErrAlreadyReviewed rejects a second review for the same book.
	ErrAlreadyReviewed = errors.New("book already reviewed by this user")
	// ErrReviewNotFound is returned when the review does not exist or the
	// caller does not own it; the two cases are deliberately merged so a
	// non-owner cannot probe for review ids.
	ErrReviewNotFound = errors.New("review not found")
)

// ReviewService owns review CRUD. Every mutation is restricted to the
// review's owner; rating aggregates on books are kept in sync by the
// repository.
type ReviewService interface {
	CreateReview(ctx context.Context, userID, bookID int64, rating int, content string) (*domain.Review, error)
	GetBookReviews(ctx context.Context, bookID int64, page, limit int) ([]domain.Review, int, error)
	GetUserReviews(ctx context.Context, userID int64, page, limit int) ([]domain.Review, int, error)
	UpdateReview(ctx context.Context, id, userID int64, rating int, content string) (*domain.Review, error)
	DeleteReview(ctx context.Context, id, userID int64) error
}

type reviewService struct {
	reviews repository.ReviewRepository
	books   repository.BookRepository
}

func NewReviewService(reviews repository.ReviewRepository, books repository.BookRepository) ReviewService {
	return &reviewService{
		reviews: reviews,
		books:   books,
	}
}

func (s *reviewService) CreateReview(ctx context.Context, userID, bookID int64, rating int, content string) (*domain.Review, error) {
	if _, err := s.books.Get(ctx, bookID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	review := &domain.Review{
		UserID:  userID,
		BookID:  bookID,
		Rating:  rating,
		Content: content,
	}
	if _, err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return review, nil
}

func (s *reviewService) GetBookReviews(ctx context.Context, bookID int64, page, limit int) ([]domain.Review, int, error) {
	return s.reviews.ListByBook(ctx, bookID, page, limit)
}

func (s *reviewService) GetUserReviews(ctx context.Context, userID int64, page, limit int) ([]domain.Review, int, error) {
	return s.reviews.ListByUser(ctx, userID, page, limit)
}

func (s *reviewService) UpdateReview(ctx context.Context, id, userID int64, rating int, content string) (*domain.Review, error) {
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return nil, err
	}
	review, err := s.reviews.Update(ctx, id, rating, content)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, id, userID int64) error {
	if err := s.requireOwner(ctx, id, userID); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	return nil
}

func (s *reviewService) requireOwner(ctx context.Context, id, userID int64) error {
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}
	if review.UserID != userID {
		return ErrReviewNotFound
	}
	return nil
}
