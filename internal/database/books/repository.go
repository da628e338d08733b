// Package books provides database operations for the published library.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	page, total, err := repo.List(books.Filter{Language: "es", Page: 1})
package books

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var ErrBookNotFound = errors.New("book not found")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter narrows a library listing.
type Filter struct {
	Language string
	Category string
	Search   string // matched against title and author name

	// IncludeUnpublished lists hidden books too (admin views)
	IncludeUnpublished bool

	Page     int
	PageSize int
}

func (f Filter) normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Repository handles all library book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new book.
func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

// Save writes every field of the book.
func (r *Repository) Save(book *entities.Book) error {
	return r.db.Save(book).Error
}

// GetByID retrieves a book by ID regardless of its published flag.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetPublishedByID retrieves a book only if it is visible in the library.
func (r *Repository) GetPublishedByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("published = ?", true).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

// GetPublishedByIDs returns the published books among ids, keeping the order of ids.
func (r *Repository) GetPublishedByIDs(ids []uint) ([]entities.Book, error) {
	var found []entities.Book
	if len(ids) == 0 {
		return found, nil
	}
	if err := r.db.Where("id IN ? AND published = ?", ids, true).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]entities.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	ordered := make([]entities.Book, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
		}
	}
	return ordered, nil
}

// List returns a page of books and the total number of matches.
func (r *Repository) List(filter Filter) ([]entities.Book, int64, error) {
	filter = filter.normalize()

	query := r.db.Model(&entities.Book{})
	if !filter.IncludeUnpublished {
		query = query.Where("published = ?", true)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.Category != "" {
		query = query.Where("categories LIKE ?", `%"`+filter.Category+`"%`)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(author_name) LIKE LOWER(?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []entities.Book
	err := query.Order("published_at DESC, id DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&books).Error
	return books, total, err
}

// IncrementViewCount bumps the view counter of a book.
func (r *Repository) IncrementViewCount(id uint) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// ListTranslations returns published translations of the given original book.
func (r *Repository) ListTranslations(originalID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("original_book_id = ? AND published = ?", originalID, true).
		Order("language ASC").Find(&books).Error
	return books, err
}

// ListCandidates returns published books not in exclude, ordered for the given selection method.
// orderBy is a SQL ORDER BY clause, e.g. "view_count DESC".
func (r *Repository) ListCandidates(exclude []uint, orderBy string, limit int) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.Where("published = ?", true)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&books).Error
	return books, err
}

// CountPublished returns the number of books visible in the library.
func (r *Repository) CountPublished() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("published = ?", true).Count(&count).Error
	return count, err
}

// SetPublishedBySubmission hides or shows the book created from a submission.
func (r *Repository) SetPublishedBySubmission(submissionID uint, published bool) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("submission_id = ?", submissionID).Update("published", published)
	return result.RowsAffected, result.Error
}

// UpdateCategories replaces the categories of every book in ids.
func (r *Repository) UpdateCategories(ids []uint, categories []string) (int64, error) {
	var affected int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			result := tx.Model(&entities.Book{ID: id}).Select("categories").Updates(&entities.Book{Categories: categories})
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	return affected, err
}

// UpdateLanguage sets the language of every book in ids.
func (r *Repository) UpdateLanguage(ids []uint, language string) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("id IN ?", ids).Update("language", language)
	return result.RowsAffected, result.Error
}

// SetPremium sets the premium flag of every book in ids.
func (r *Repository) SetPremium(ids []uint, premium bool) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("id IN ?", ids).Update("is_premium", premium)
	return result.RowsAffected, result.Error
}

// SetPublished sets the published flag of every book in ids.
func (r *Repository) SetPublished(ids []uint, published bool) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("id IN ?", ids).Update("published", published)
	return result.RowsAffected, result.Error
}

// Delete soft-deletes every book in ids.
func (r *Repository) Delete(ids []uint) (int64, error) {
	result := r.db.Where("id IN ?", ids).Delete(&entities.Book{})
	return result.RowsAffected, result.Error
}
