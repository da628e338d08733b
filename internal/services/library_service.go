package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

// LibraryService is the public, read-only view of published books.
type LibraryService struct {
	books *books.Repository
}

func NewLibraryService(db *gorm.DB) *LibraryService {
	return &LibraryService{books: books.NewRepository(db)}
}

func (s *LibraryService) List(filter books.Filter) ([]entities.Book, int64, error) {
	filter.IncludeUnpublished = false
	return s.books.List(filter)
}

// Get returns a published book and counts the view.
func (s *LibraryService) Get(id uint) (*entities.Book, error) {
	book, err := s.books.GetPublishedByID(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to load book: %w", err)
	}

	if err := s.books.IncrementViewCount(id); err != nil {
		log.Printf("[LIBRARY] Failed to count view of book %d: %v", id, err)
	} else {
		book.ViewCount++
	}
	return book, nil
}

// Translations lists published translations of a published book.
func (s *LibraryService) Translations(id uint) ([]entities.Book, error) {
	if _, err := s.books.GetPublishedByID(id); err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return s.books.ListTranslations(id)
}
