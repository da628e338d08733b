package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/database/books"
)

func TestLibraryService_GetCountsViews(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLibraryService(db)
	book := createBook(t, db, "The River", "en", true)

	got, err := svc.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)

	got, err = svc.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)
}

func TestLibraryService_HidesUnpublished(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLibraryService(db)
	createBook(t, db, "Visible", "en", true)
	hidden := createBook(t, db, "Hidden", "en", false)

	_, err := svc.Get(hidden.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)

	list, total, err := svc.List(books.Filter{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Visible", list[0].Title)
}

func TestLibraryService_Translations(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLibraryService(db)
	original := createBook(t, db, "The River", "en", true)
	translation := createBook(t, db, "Mto", "sw", true)
	require.NoError(t, db.Model(&translation).Update("original_book_id", original.ID).Error)

	list, err := svc.Translations(original.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Mto", list[0].Title)

	_, err = svc.Translations(9999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}
