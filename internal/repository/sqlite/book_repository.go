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

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	author TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	cover_image TEXT NOT NULL DEFAULT 'default-book-cover.jpg',
	average_rating REAL NOT NULL DEFAULT 0,
	total_reviews INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const bookColumns = `id, title, author, description, cover_image, average_rating, total_reviews, created_at, updated_at`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) repository.BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBooksTable); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id int64) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// List returns one page of the catalog ordered by title, plus the total
// number of books.
func (r *BookRepository) List(ctx context.Context, page, limit int) ([]domain.Book, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+bookColumns+` FROM books ORDER BY title ASC LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate books: %w", err)
	}
	return books, total, nil
}

// Seed inserts the given books once: it is a no-op when the table already
// has rows.
func (r *BookRepository) Seed(ctx context.Context, books []domain.Book) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, book := range books {
		cover := book.CoverImage
		if cover == "" {
			cover = "default-book-cover.jpg"
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO books (title, author, description, cover_image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
			book.Title, book.Author, book.Description, cover, now, now,
		); err != nil {
			return fmt.Errorf("seed book %q: %w", book.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

func scanBook(row interface {
	Scan(dest ...any) error
}) (*domain.Book, error) {
	var book domain.Book
	if err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.CoverImage,
		&book.AverageRating,
		&book.TotalReviews,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &book, nil
}
