package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/entities"
)

func setupTestDB(t *testing.T) (*Database, func()) {
	dbPath := "./test_database_" + t.Name() + ".db"

	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func TestNewDatabase_SeedsTemplates(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	var count int64
	require.NoError(t, db.DB.Model(&entities.RejectionTemplate{}).Count(&count).Error)
	assert.Equal(t, int64(len(defaultTemplates)), count)
}

func TestNewDatabase_SeedIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, db.seedTemplates())

	var count int64
	require.NoError(t, db.DB.Model(&entities.RejectionTemplate{}).Count(&count).Error)
	assert.Equal(t, int64(len(defaultTemplates)), count)
}

func TestNewDatabase_PersistsJSONColumns(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	book := &entities.Book{
		Title:      "The Lion and the Mouse",
		AuthorName: "Amara",
		Language:   "en",
		Categories: []string{"fable", "animals"},
	}
	require.NoError(t, db.DB.Create(book).Error)

	var loaded entities.Book
	require.NoError(t, db.DB.First(&loaded, book.ID).Error)
	assert.Equal(t, []string{"fable", "animals"}, loaded.Categories)
}
