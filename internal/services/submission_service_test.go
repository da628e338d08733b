package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/entities"
)

func TestSubmissionService_Create(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)

	sub, err := svc.Create(writer, SubmissionInput{Title: "  The River ", Content: "Once"})

	require.NoError(t, err)
	assert.Equal(t, "The River", sub.Title)
	assert.Equal(t, entities.SubmissionKindStory, sub.Kind)
	assert.Equal(t, entities.StatusDraft, sub.Status)
	assert.Equal(t, "en", sub.Language)
	assert.Equal(t, writer.ID, sub.AuthorID)
}

func TestSubmissionService_CreateRequiresAuthorRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	manager := createUser(t, db, "sm", entities.UserRoleStoryManager)

	_, err := svc.Create(manager, SubmissionInput{Title: "Nope"})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmissionService_CreateTranslation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleVolunteer)
	original := createBook(t, db, "The River", "en", true)
	hidden := createBook(t, db, "Hidden", "en", false)

	tests := []struct {
		name    string
		in      SubmissionInput
		wantErr bool
	}{
		{"valid", SubmissionInput{Kind: entities.SubmissionKindTranslation, Title: "Mto", Language: "sw", SourceBookID: &original.ID}, false},
		{"same language", SubmissionInput{Kind: entities.SubmissionKindTranslation, Title: "River", Language: "en", SourceBookID: &original.ID}, true},
		{"missing source", SubmissionInput{Kind: entities.SubmissionKindTranslation, Title: "Mto", Language: "sw"}, true},
		{"unpublished source", SubmissionInput{Kind: entities.SubmissionKindTranslation, Title: "Mto", Language: "sw", SourceBookID: &hidden.ID}, true},
		{"story with source", SubmissionInput{Kind: entities.SubmissionKindStory, Title: "Mto", SourceBookID: &original.ID}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(writer, tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubmissionService_Update(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	other := createUser(t, db, "other", entities.UserRoleWriter)
	sub := createSubmissionAs(t, db, writer, entities.StatusDraft)

	updated, err := svc.Update(writer, sub.ID, SubmissionInput{Title: "The Long River"})
	require.NoError(t, err)
	assert.Equal(t, "The Long River", updated.Title)
	assert.Equal(t, 2, updated.Version)

	_, err = svc.Update(other, sub.ID, SubmissionInput{Title: "Mine now"})
	assert.ErrorIs(t, err, ErrForbidden)

	pending := createSubmissionAs(t, db, writer, entities.StatusPending)
	_, err = svc.Update(writer, pending.ID, SubmissionInput{Title: "Too late"})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestSubmissionService_Delete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)

	draft := createSubmissionAs(t, db, writer, entities.StatusDraft)
	pending := createSubmissionAs(t, db, writer, entities.StatusPending)

	require.NoError(t, svc.Delete(writer, draft.ID))
	assert.ErrorIs(t, svc.Delete(writer, pending.ID), ErrNotEditable)
	require.NoError(t, svc.Delete(admin, pending.ID))

	_, err := svc.Get(admin, pending.ID)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestSubmissionService_QueueScoping(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)
	otherSM := createUser(t, db, "sm2", entities.UserRoleStoryManager)
	bm := createUser(t, db, "bm", entities.UserRoleBookManager)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)

	createSubmissionAs(t, db, writer, entities.StatusDraft)
	createSubmissionAs(t, db, writer, entities.StatusPending)
	mine := createSubmissionAs(t, db, writer, entities.StatusStoryReview)
	require.NoError(t, db.Model(mine).Update("story_manager_id", sm.ID).Error)
	theirs := createSubmissionAs(t, db, writer, entities.StatusStoryReview)
	require.NoError(t, db.Model(theirs).Update("story_manager_id", otherSM.ID).Error)
	createSubmissionAs(t, db, writer, entities.StatusFormatReview)

	list, total, err := svc.Queue(sm, SubmissionListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, s := range list {
		assert.NotEqual(t, theirs.ID, s.ID)
	}

	_, total, err = svc.Queue(bm, SubmissionListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.Queue(ca, SubmissionListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	_, total, err = svc.Queue(sm, SubmissionListOptions{Statuses: []entities.PublishingStatus{entities.StatusFormatReview}})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, _, err = svc.Queue(writer, SubmissionListOptions{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubmissionService_GetAccess(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	stranger := createUser(t, db, "stranger", entities.UserRoleLearner)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)
	sub := createSubmissionAs(t, db, writer, entities.StatusDraft)

	_, err := svc.Get(writer, sub.ID)
	assert.NoError(t, err)

	_, err = svc.Get(stranger, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(sm, sub.ID)
	assert.ErrorIs(t, err, ErrForbidden, "drafts are outside the story manager queue")
}

func TestSubmissionService_DiffRevisions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSubmissionService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	sub := createSubmissionAs(t, db, writer, entities.StatusNeedsRevision)

	require.NoError(t, db.Create(&entities.Revision{SubmissionID: sub.ID, Number: 1, Title: "A", Content: "one\n"}).Error)
	require.NoError(t, db.Create(&entities.Revision{SubmissionID: sub.ID, Number: 2, Title: "A", Content: "one\ntwo\n"}).Error)

	d, err := svc.DiffRevisions(writer, sub.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Insertions)

	_, err = svc.DiffRevisions(writer, sub.ID, 1, 9)
	assert.ErrorIs(t, err, ErrRevisionNotFound)

	revs, err := svc.Revisions(writer, sub.ID)
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}
