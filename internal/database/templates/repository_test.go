package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.RejectionTemplate{}))
	return NewRepository(db)
}

func TestRepository_ListFilters(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Create(&entities.RejectionTemplate{Name: "a", Category: entities.TemplateCategoryContent, IsActive: true}))
	require.NoError(t, repo.Create(&entities.RejectionTemplate{Name: "b", Category: entities.TemplateCategoryFormat, IsActive: true}))
	require.NoError(t, repo.Create(&entities.RejectionTemplate{Name: "c", Category: entities.TemplateCategoryContent, IsActive: false}))

	all, err := repo.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	content, err := repo.List(Filter{Category: entities.TemplateCategoryContent, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "a", content[0].Name)
}

func TestRepository_IncrementUsage(t *testing.T) {
	repo := setupTestDB(t)

	tmpl := &entities.RejectionTemplate{Name: "a", Category: entities.TemplateCategoryOther, IsActive: true}
	require.NoError(t, repo.Create(tmpl))
	require.NoError(t, repo.IncrementUsage(tmpl.ID))

	found, err := repo.GetByID(tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.UsageCount)
}

func TestRepository_Delete(t *testing.T) {
	repo := setupTestDB(t)

	tmpl := &entities.RejectionTemplate{Name: "a", Category: entities.TemplateCategoryOther}
	require.NoError(t, repo.Create(tmpl))
	require.NoError(t, repo.Delete(tmpl.ID))

	_, err := repo.GetByID(tmpl.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.ErrorIs(t, repo.Delete(tmpl.ID), ErrTemplateNotFound)
}
