package books

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stories1001/publisher/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Book{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return NewRepository(db), cleanup
}

func createBook(t *testing.T, repo *Repository, title, lang string, categories ...string) *entities.Book {
	now := time.Now()
	book := &entities.Book{
		Title:       title,
		AuthorName:  "Author of " + title,
		Language:    lang,
		Categories:  categories,
		Published:   true,
		PublishedAt: &now,
	}
	require.NoError(t, repo.Create(book))
	return book
}

func TestRepository_List_Filters(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	createBook(t, repo, "The Clever Hare", "en", "animals")
	createBook(t, repo, "La Luna", "es", "space")
	hidden := createBook(t, repo, "Hidden Tale", "en", "animals")
	_, err := repo.SetPublished([]uint{hidden.ID}, false)
	require.NoError(t, err)

	t.Run("published only", func(t *testing.T) {
		books, total, err := repo.List(Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, books, 2)
	})

	t.Run("include unpublished", func(t *testing.T) {
		_, total, err := repo.List(Filter{IncludeUnpublished: true})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("language", func(t *testing.T) {
		books, _, err := repo.List(Filter{Language: "es"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "La Luna", books[0].Title)
	})

	t.Run("category", func(t *testing.T) {
		books, _, err := repo.List(Filter{Category: "animals"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "The Clever Hare", books[0].Title)
	})

	t.Run("search is case insensitive", func(t *testing.T) {
		books, _, err := repo.List(Filter{Search: "clever"})
		require.NoError(t, err)
		assert.Len(t, books, 1)
	})

	t.Run("pagination", func(t *testing.T) {
		books, total, err := repo.List(Filter{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, books, 1)
	})
}

func TestRepository_GetPublishedByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, repo, "Visible", "en")

	found, err := repo.GetPublishedByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Visible", found.Title)

	_, err = repo.SetPublished([]uint{book.ID}, false)
	require.NoError(t, err)

	_, err = repo.GetPublishedByID(book.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestRepository_IncrementViewCount(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := createBook(t, repo, "Popular", "en")
	require.NoError(t, repo.IncrementViewCount(book.ID))
	require.NoError(t, repo.IncrementViewCount(book.ID))

	found, err := repo.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.ViewCount)
}

func TestRepository_ListTranslations(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	original := createBook(t, repo, "Original", "en")
	translation := &entities.Book{Title: "Original (fr)", Language: "fr", Published: true, OriginalBookID: &original.ID}
	require.NoError(t, repo.Create(translation))

	translations, err := repo.ListTranslations(original.ID)
	require.NoError(t, err)
	require.Len(t, translations, 1)
	assert.Equal(t, "fr", translations[0].Language)
}

func TestRepository_GetPublishedByIDs_KeepsOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	a := createBook(t, repo, "A", "en")
	b := createBook(t, repo, "B", "en")
	c := createBook(t, repo, "C", "en")

	books, err := repo.GetPublishedByIDs([]uint{c.ID, a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{books[0].Title, books[1].Title, books[2].Title})
}

func TestRepository_ListCandidates(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	a := createBook(t, repo, "A", "en")
	createBook(t, repo, "B", "en")
	c := createBook(t, repo, "C", "en")
	require.NoError(t, repo.IncrementViewCount(c.ID))

	books, err := repo.ListCandidates([]uint{a.ID}, "view_count DESC", 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "C", books[0].Title)
}

func TestRepository_BulkUpdates(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	a := createBook(t, repo, "A", "en")
	b := createBook(t, repo, "B", "en")
	ids := []uint{a.ID, b.ID}

	n, err := repo.UpdateCategories(ids, []string{"science"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.UpdateLanguage(ids, "sw")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.SetPremium(ids, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	found, err := repo.GetByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"science"}, found.Categories)
	assert.Equal(t, "sw", found.Language)
	assert.True(t, found.IsPremium)

	n, err = repo.Delete([]uint{b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}
