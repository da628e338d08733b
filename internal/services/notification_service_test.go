package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/workflow"
)

func TestNotificationService_InAppLifecycle(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db, newTestClock())
	user := createUser(t, db, "reader", entities.UserRoleLearner)
	other := createUser(t, db, "other", entities.UserRoleLearner)

	first, err := svc.Create(user.ID, entities.NotificationStatusChange, "Hello", "First", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, first.Data)
	_, err = svc.Create(user.ID, entities.NotificationStatusChange, "Hello", "Second", nil)
	require.NoError(t, err)

	count, err := svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, svc.MarkRead(user.ID, first.ID))
	assert.ErrorIs(t, svc.MarkRead(other.ID, first.ID), ErrNotificationNotFound)

	unread, total, err := svc.List(user.ID, true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Second", unread[0].Message)

	n, err := svc.MarkAllRead(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNotificationService_NotifyTransition_Submit(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	admin := createUser(t, db, "admin", entities.UserRoleAdmin)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)
	createUser(t, db, "sm", entities.UserRoleStoryManager)

	err := svc.NotifyTransition(context.Background(), workflow.TransitionEvent{
		SubmissionID: 5, Title: "The River", AuthorID: writer.ID, AuthorName: "Amina",
		FromStatus: entities.StatusDraft, ToStatus: entities.StatusPending,
		Action: workflow.ActionSubmit, ActorID: writer.ID, ActorRole: writer.Role,
	})
	require.NoError(t, err)

	var notes []entities.Notification
	require.NoError(t, db.Order("user_id").Find(&notes).Error)
	require.Len(t, notes, 2, "author acted, so only admins are told")

	ids := []uint{notes[0].UserID, notes[1].UserID}
	assert.ElementsMatch(t, []uint{admin.ID, ca.ID}, ids)
	assert.Equal(t, entities.NotificationAssignment, notes[0].Type)
	assert.Equal(t, "New Story Submission", notes[0].Title)
	assert.Contains(t, notes[0].Message, `"The River" by Amina`)
}

func TestNotificationService_NotifyTransition_Assignment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	coord := createUser(t, db, "coord", entities.UserRoleCoordinator)
	sm := createUser(t, db, "sm", entities.UserRoleStoryManager)

	err := svc.NotifyTransition(context.Background(), workflow.TransitionEvent{
		SubmissionID: 5, Title: "The River", AuthorID: writer.ID,
		FromStatus: entities.StatusPending, ToStatus: entities.StatusStoryReview,
		Action: workflow.ActionAssignStoryManager, ActorID: coord.ID, ActorRole: coord.Role,
		StoryManagerID: &sm.ID,
	})
	require.NoError(t, err)

	var authorNote, smNote entities.Notification
	require.NoError(t, db.Where("user_id = ?", writer.ID).First(&authorNote).Error)
	require.NoError(t, db.Where("user_id = ?", sm.ID).First(&smNote).Error)

	assert.Equal(t, "Story Review Started", authorNote.Title)
	assert.Contains(t, authorNote.Data, "next_steps")
	assert.Equal(t, "Story Review Assigned", smNote.Title)
}

func TestNotificationService_NotifyTransition_Feedback(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db, newTestClock())
	writer := createUser(t, db, "writer", entities.UserRoleWriter)
	ca := createUser(t, db, "ca", entities.UserRoleContentAdmin)

	err := svc.NotifyTransition(context.Background(), workflow.TransitionEvent{
		SubmissionID: 5, Title: "The River", AuthorID: writer.ID,
		FromStatus: entities.StatusPending, ToStatus: entities.StatusNeedsRevision,
		Action: workflow.ActionRequestRevision, ActorID: ca.ID, ActorRole: ca.Role,
		Reason: "Expand the ending",
	})
	require.NoError(t, err)

	var note entities.Notification
	require.NoError(t, db.Where("user_id = ?", writer.ID).First(&note).Error)
	assert.Equal(t, entities.NotificationFeedback, note.Type)
	assert.Contains(t, note.Data, "Expand the ending")
}
