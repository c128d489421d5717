package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

const createReviewsTable = `
CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	book_id INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
	rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE (user_id, book_id)
);
`

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createReviewsTable); err != nil {
		return fmt.Errorf("create reviews table: %w", err)
	}
	return nil
}

// Create inserts the review and recomputes the book's aggregates in the same
// transaction. The UNIQUE(user_id, book_id) constraint rejects a second
// review for the same book with ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (int64, error) {
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO reviews (user_id, book_id, rating, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		review.UserID, review.BookID, review.Rating, review.Content, review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicate
		}
		return 0, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("review last insert id: %w", err)
	}

	if err := refreshAggregates(ctx, tx, review.BookID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit review tx: %w", err)
	}

	review.ID = id
	return id, nil
}

func (r *ReviewRepository) Get(ctx context.Context, id int64) (*domain.Review, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, book_id, rating, content, created_at, updated_at
FROM reviews WHERE id = ?`,
		id,
	)
	return scanReview(row)
}

// ListByBook returns one page of a book's reviews, newest first, with the
// reviewer's public profile attached.
func (r *ReviewRepository) ListByBook(ctx context.Context, bookID int64, page, limit int) ([]domain.Review, int, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE book_id = ?`, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count book reviews: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.user_id, r.book_id, r.rating, r.content, r.created_at, r.updated_at,
       u.username, u.display_name, u.profile_image
FROM reviews r
JOIN users u ON u.id = r.user_id
WHERE r.book_id = ?
ORDER BY r.created_at DESC, r.id DESC
LIMIT ? OFFSET ?`,
		bookID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list book reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var (
			review   domain.Review
			reviewer domain.Profile
		)
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.BookID, &review.Rating, &review.Content,
			&review.CreatedAt, &review.UpdatedAt,
			&reviewer.Username, &reviewer.DisplayName, &reviewer.ProfileImage,
		); err != nil {
			return nil, 0, fmt.Errorf("scan book review: %w", err)
		}
		reviewer.ID = review.UserID
		review.Reviewer = &reviewer
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate book reviews: %w", err)
	}
	return reviews, total, nil
}

// ListByUser returns one page of a user's reviews, newest first, with the
// reviewed book's title/author/cover attached.
func (r *ReviewRepository) ListByUser(ctx context.Context, userID int64, page, limit int) ([]domain.Review, int, error) {
	page, limit = normalizePage(page, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count user reviews: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.user_id, r.book_id, r.rating, r.content, r.created_at, r.updated_at,
       b.title, b.author, b.cover_image
FROM reviews r
JOIN books b ON b.id = r.book_id
WHERE r.user_id = ?
ORDER BY r.created_at DESC, r.id DESC
LIMIT ? OFFSET ?`,
		userID, limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list user reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var (
			review domain.Review
			book   domain.Book
		)
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.BookID, &review.Rating, &review.Content,
			&review.CreatedAt, &review.UpdatedAt,
			&book.Title, &book.Author, &book.CoverImage,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user review: %w", err)
		}
		book.ID = review.BookID
		review.Book = &book
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *ReviewRepository) Update(ctx context.Context, id int64, rating int, content string) (*domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
SELECT id, user_id, book_id, rating, content, created_at, updated_at
FROM reviews WHERE id = ?`,
		id,
	)
	review, err := scanReview(row)
	if err != nil {
		return nil, err
	}

	review.Rating = rating
	review.Content = content
	review.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE reviews SET rating = ?, content = ?, updated_at = ? WHERE id = ?`,
		rating, content, review.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	if err := refreshAggregates(ctx, tx, review.BookID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit review tx: %w", err)
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	var bookID int64
	if err := tx.QueryRowContext(ctx, `SELECT book_id FROM reviews WHERE id = ?`, id).Scan(&bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("find review book: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if err := refreshAggregates(ctx, tx, bookID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}
	return nil
}

func (r *ReviewRepository) BookIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT book_id FROM reviews WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviewed books: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reviewed book id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewed books: %w", err)
	}
	return ids, nil
}

func (r *ReviewRepository) RefreshBookAggregates(ctx context.Context, bookIDs []int64) error {
	if len(bookIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin aggregates tx: %w", err)
	}
	defer tx.Rollback()

	for _, bookID := range bookIDs {
		if err := refreshAggregates(ctx, tx, bookID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit aggregates tx: %w", err)
	}
	return nil
}

// refreshAggregates recomputes average_rating/total_reviews for one book
// from its surviving reviews. COALESCE keeps the average at 0 when the last
// review goes away.
func refreshAggregates(ctx context.Context, tx *sql.Tx, bookID int64) error {
	if _, err := tx.ExecContext(ctx, `
UPDATE books
SET average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE book_id = ?), 0),
    total_reviews = (SELECT COUNT(*) FROM reviews WHERE book_id = ?),
    updated_at = ?
WHERE id = ?`,
		bookID, bookID, time.Now().UTC(), bookID,
	); err != nil {
		return fmt.Errorf("refresh book aggregates: %w", err)
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func scanReview(row interface {
	Scan(dest ...any) error
}) (*domain.Review, error) {
	var review domain.Review
	if err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.BookID,
		&review.Rating,
		&review.Content,
		&review.CreatedAt,
		&review.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	return &review, nil
}
