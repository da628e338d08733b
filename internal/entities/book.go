package entities

import (
	"time"

	"gorm.io/gorm"
)

// Book is a published item in the public library.
type Book struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	Title      string   `gorm:"index;size:512" json:"title"`
	AuthorName string   `gorm:"index;size:256" json:"author_name"`
	Summary    string   `gorm:"type:text" json:"summary,omitempty"`
	Content    string   `gorm:"type:text" json:"content,omitempty"`
	Language   string   `gorm:"size:10;index" json:"language"`
	Categories []string `gorm:"serializer:json" json:"categories,omitempty"`
	Tags       []string `gorm:"serializer:json" json:"tags,omitempty"`
	AgeRange   string   `gorm:"size:20" json:"age_range,omitempty"`
	CoverImage string   `gorm:"size:2048" json:"cover_image,omitempty"`
	PDFPath    string   `gorm:"size:1024" json:"pdf_path,omitempty"`
	PageCount  int      `json:"page_count,omitempty"`
	ViewCount  int      `gorm:"default:0" json:"view_count"`
	Rating     float64  `gorm:"default:0" json:"rating"`
	IsPremium  bool     `gorm:"default:false" json:"is_premium"`
	Published  bool     `gorm:"index" json:"published"`

	SubmissionID   *uint `gorm:"index" json:"submission_id,omitempty"`
	AuthorID       uint  `gorm:"index" json:"author_id"`
	OriginalBookID *uint `gorm:"index" json:"original_book_id,omitempty"`

	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Book) TableName() string {
	return "books"
}

type RotationType string

const (
	RotationManual    RotationType = "MANUAL"
	RotationAutomatic RotationType = "AUTOMATIC"
)

// FeaturedSet is a group of books shown on the library front page for a period.
type FeaturedSet struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	BookIDs         []uint       `gorm:"serializer:json" json:"book_ids"`
	StartsAt        time.Time    `json:"starts_at"`
	EndsAt          time.Time    `gorm:"index" json:"ends_at"`
	IsActive        bool         `gorm:"index" json:"is_active"`
	RotationType    RotationType `gorm:"size:20" json:"rotation_type"`
	SelectionMethod string       `gorm:"size:20" json:"selection_method,omitempty"`
	CreatedByID     *uint        `json:"created_by_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (FeaturedSet) TableName() string {
	return "featured_sets"
}

// Expired reports whether the set's period has ended at the given time.
func (f *FeaturedSet) Expired(now time.Time) bool {
	return !now.Before(f.EndsAt)
}
