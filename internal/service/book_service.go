package service

import (
	"context"
	"errors"

	"book-review/internal/domain"
	"book-review/internal/repository"
)

// ErrBookNotFound is returned for an unknown catalog entry.
var ErrBookNotFound = errors.New("book not found")

// BookService exposes the read-only catalog.
type BookService interface {
	ListBooks(ctx context.Context, page, limit int) ([]domain.Book, int, error)
	GetBook(ctx context.Context, id int64) (*domain.Book, error)
	SeedBooks(ctx context.Context) error
}

type bookService struct {
	books repository.BookRepository
}

func NewBookService(books repository.BookRepository) BookService {
	return &bookService{books: books}
}

func (s *bookService) ListBooks(ctx context.Context, page, limit int) ([]domain.Book, int, error) {
	return s.books.List(ctx, page, limit)
}

func (s *bookService) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.books.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// SeedBooks loads the starter catalog on an empty database.
func (s *bookService) SeedBooks(ctx context.Context) error {
	return s.books.Seed(ctx, sampleBooks)
}

var sampleBooks = []domain.Book{
	{
		Title:       "Harry Potter and the Sorcerer's Stone",
		Author:      "J.K. Rowling",
		Description: "A boy wizard discovers the magical world he was born into.",
		CoverImage:  "harry-potter-1.jpg",
	},
	{
		Title:       "The Lord of the Rings",
		Author:      "J.R.R. Tolkien",
		Description: "An epic journey across Middle-earth to destroy the One Ring.",
		CoverImage:  "lotr.jpg",
	},
	{
		Title:       "The Name of the Wind",
		Author:      "Patrick Rothfuss",
		Description: "Kvothe tells the story of how he became a legend.",
		CoverImage:  "name-of-the-wind.jpg",
	},
	{
		Title:       "Mistborn: The Final Empire",
		Author:      "Brandon Sanderson",
		Description: "A street thief learns Allomancy and joins a plot to topple a god-emperor.",
		CoverImage:  "mistborn.jpg",
	},
	{
		Title:       "A Game of Thrones",
		Author:      "George R.R. Martin",
		Description: "Noble houses contend for the Iron Throne of Westeros.",
		CoverImage:  "game-of-thrones.jpg",
	},
	{
		Title:       "The Hobbit",
		Author:      "J.R.R. Tolkien",
		Description: "Bilbo Baggins is swept into a quest to reclaim a dwarven kingdom.",
		CoverImage:  "hobbit.jpg",
	},
}
