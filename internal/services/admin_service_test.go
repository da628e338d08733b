package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/audit"
	auditdb "github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/entities"
)

func setupAdmin(t *testing.T) (*AdminService, *gorm.DB) {
	db := setupTestDB(t)
	clk := newTestClock()
	auditService := audit.NewService(auditdb.NewRepository(db))
	return NewAdminService(db, nil, NewNotificationService(db, clk), auditService, clk), db
}

func boolPtr(v bool) *bool { return &v }

func TestAdminService_BulkLibraryAction(t *testing.T) {
	svc, db := setupAdmin(t)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	a := createBook(t, db, "A", "en", true)
	b := createBook(t, db, "B", "en", true)
	ids := []uint{a.ID, b.ID}

	res, err := svc.BulkLibraryAction(admin, BulkCategorize, ids, BulkPayload{Categories: []string{"animals"}})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(2), res.AffectedCount)

	_, err = svc.BulkLibraryAction(admin, BulkPremium, ids, BulkPayload{Premium: boolPtr(true)})
	require.NoError(t, err)
	_, err = svc.BulkLibraryAction(admin, BulkPublish, []uint{a.ID}, BulkPayload{Published: boolPtr(false)})
	require.NoError(t, err)

	var got entities.Book
	require.NoError(t, db.First(&got, a.ID).Error)
	assert.Equal(t, []string{"animals"}, got.Categories)
	assert.True(t, got.IsPremium)
	assert.False(t, got.Published)

	res, err = svc.BulkLibraryAction(admin, BulkDelete, []uint{b.ID}, BulkPayload{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.AffectedCount)

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&entities.AuditEvent{}).Where("event_type = ?", entities.AuditEventBulkOperation).Count(&count)
		return count == 4
	}, waitTimeout, waitTick)
}

func TestAdminService_BulkLibraryActionValidation(t *testing.T) {
	svc, db := setupAdmin(t)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)

	tests := []struct {
		name    string
		actor   Actor
		action  BulkAction
		ids     []uint
		payload BulkPayload
		want    error
	}{
		{"content admin", ca, BulkDelete, []uint{1}, BulkPayload{}, ErrForbidden},
		{"no ids", admin, BulkDelete, nil, BulkPayload{}, ErrInvalidInput},
		{"no categories", admin, BulkCategorize, []uint{1}, BulkPayload{}, ErrInvalidInput},
		{"no language", admin, BulkLanguage, []uint{1}, BulkPayload{Language: " "}, ErrInvalidInput},
		{"no premium flag", admin, BulkPremium, []uint{1}, BulkPayload{}, ErrInvalidInput},
		{"unknown", admin, "shred", []uint{1}, BulkPayload{}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BulkLibraryAction(tt.actor, tt.action, tt.ids, tt.payload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdminService_MigrateRole(t *testing.T) {
	svc, db := setupAdmin(t)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)
	volunteer := createUser(t, db, "vol", entities.UserRoleVolunteer)

	m, err := svc.MigrateRole(ca, volunteer.ID, entities.UserRoleStoryManager, "promoted")
	require.NoError(t, err)
	assert.Equal(t, entities.RoleMigrationCompleted, m.Status)
	assert.NotNil(t, m.CompletedAt)

	var user entities.User
	require.NoError(t, db.First(&user, volunteer.ID).Error)
	assert.Equal(t, entities.UserRoleStoryManager, user.Role)

	var note entities.Notification
	require.NoError(t, db.Where("user_id = ? AND type = ?", volunteer.ID, entities.NotificationRoleChanged).First(&note).Error)
	assert.Contains(t, note.Message, "STORY_MANAGER")

	_, err = svc.MigrateRole(ca, volunteer.ID, entities.UserRoleAdmin, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.MigrateRole(admin, volunteer.ID, entities.UserRoleStoryManager, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.MigrateRole(admin, 999, entities.UserRoleWriter, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminService_LastAdminCannotBeDemoted(t *testing.T) {
	svc, db := setupAdmin(t)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)

	m, err := svc.MigrateRole(admin, admin.ID, entities.UserRoleWriter, "stepping down")

	assert.ErrorIs(t, err, ErrLastAdmin)
	require.NotNil(t, m)
	assert.Equal(t, entities.RoleMigrationFailed, m.Status)

	var stored entities.RoleMigration
	require.NoError(t, db.First(&stored, m.ID).Error)
	assert.Equal(t, entities.RoleMigrationFailed, stored.Status)
	assert.Equal(t, ErrLastAdmin.Error(), stored.ErrorMsg)

	var user entities.User
	require.NoError(t, db.First(&user, admin.ID).Error)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
}

func TestAdminService_RollbackRole(t *testing.T) {
	svc, db := setupAdmin(t)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	writer := createUser(t, db, "writer", entities.UserRoleWriter)

	m, err := svc.MigrateRole(admin, writer.ID, entities.UserRoleBookManager, "")
	require.NoError(t, err)

	rolled, err := svc.RollbackRole(admin, m.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleMigrationRolledBack, rolled.Status)

	var user entities.User
	require.NoError(t, db.First(&user, writer.ID).Error)
	assert.Equal(t, entities.UserRoleWriter, user.Role)

	_, err = svc.RollbackRole(admin, m.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RollbackRole(admin, 999)
	assert.ErrorIs(t, err, ErrMigrationNotFound)

	migrations, err := svc.ListMigrations(writer.ID, 0)
	require.NoError(t, err)
	assert.Len(t, migrations, 1)
}

func TestAdminService_Stats(t *testing.T) {
	svc, db := setupAdmin(t)
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	createSubmissionAs(t, db, writer, entities.StatusDraft)
	createSubmissionAs(t, db, writer, entities.StatusPending)
	createSubmissionAs(t, db, writer, entities.StatusStoryReview)
	createBook(t, db, "A", "en", true)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByStatus[entities.StatusDraft])
	assert.Equal(t, int64(3), stats.ByKind[entities.SubmissionKindStory])
	assert.Equal(t, int64(2), stats.PendingReviews)
	assert.Equal(t, int64(1), stats.PublishedBooks)
}
