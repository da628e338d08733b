package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/entities"
)

func TestTemplateService_ListScopedByRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTemplateService(db)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)
	bm := createUser(t, db, "bm", entities.UserRoleBookManager)

	all, err := svc.List(admin, "", false)
	require.NoError(t, err)

	forSM, err := svc.List(sm, "", false)
	require.NoError(t, err)
	forBM, err := svc.List(bm, "", false)
	require.NoError(t, err)

	assert.Len(t, forSM, len(all)-1, "format template is not offered to story managers")
	assert.Len(t, forBM, len(all))

	_, err = svc.List(Actor{ID: 99, Role: entities.UserRoleWriter}, "", false)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestTemplateService_InactiveHiddenFromReviewers(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTemplateService(db)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)

	inactive := false
	created, err := svc.Create(admin, TemplateInput{
		Name: "Retired", Category: entities.TemplateCategoryOther, Message: "Old reason", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, created.IsActive)

	list, err := svc.List(sm, entities.TemplateCategoryOther, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = svc.List(admin, entities.TemplateCategoryOther, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTemplateService_CRUD(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTemplateService(db)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)

	_, err := svc.Create(sm, TemplateInput{Name: "x", Category: entities.TemplateCategoryOther, Message: "y"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Create(ca, TemplateInput{Name: "x", Category: "SPELLING", Message: "y"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ca, TemplateInput{Name: "x", Category: entities.TemplateCategoryOther, Message: "y",
		ApplicableRoles: []entities.UserRole{entities.UserRoleLearner}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	created, err := svc.Create(ca, TemplateInput{Name: "Too short", Category: entities.TemplateCategoryQuality, Message: "Please expand."})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, ca.ID, created.CreatedByID)

	updated, err := svc.Update(ca, created.ID, TemplateInput{Message: "Please expand the story."})
	require.NoError(t, err)
	assert.Equal(t, "Please expand the story.", updated.Message)
	assert.Equal(t, "Too short", updated.Name)

	require.NoError(t, svc.Delete(ca, created.ID))
	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.ErrorIs(t, svc.Delete(ca, created.ID), ErrTemplateNotFound)
}
