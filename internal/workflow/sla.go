package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/stories1001/publisher/internal/database/notifications"
	"github.com/stories1001/publisher/internal/database/submissions"
	"github.com/stories1001/publisher/internal/database/users"
	"github.com/stories1001/publisher/internal/entities"
)

type OverdueKind string

const (
	OverdueReview   OverdueKind = "review"
	OverdueRevision OverdueKind = "revision"
)

// EscalationRoles receive reminders for every overdue review.
var EscalationRoles = []entities.UserRole{entities.UserRoleContentAdmin, entities.UserRoleAdmin}

type OverdueItem struct {
	SubmissionID    uint                      `json:"submission_id"`
	Title           string                    `json:"title"`
	Status          entities.PublishingStatus `json:"status"`
	Kind            OverdueKind               `json:"kind"`
	AuthorID        uint                      `json:"author_id"`
	StoryManagerID  *uint                     `json:"story_manager_id,omitempty"`
	BookManagerID   *uint                     `json:"book_manager_id,omitempty"`
	StatusChangedAt time.Time                 `json:"status_changed_at"`
	Deadline        time.Time                 `json:"deadline"`
	OverdueBy       time.Duration             `json:"overdue_by"`
}

type SLAReport struct {
	Overdue       int       `json:"overdue"`
	RemindersSent int       `json:"reminders_sent"`
	Throttled     int       `json:"throttled"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Overdue lists submissions that have waited longer than the review or
// revision deadline.
func (m *Manager) Overdue(ctx context.Context) ([]OverdueItem, error) {
	ws := m.settings.GetWorkflowSettings()
	now := m.clock.Now()
	repo := submissions.NewRepository(m.db.WithContext(ctx))

	reviews, err := repo.ListStale(entities.ReviewStatuses, now.Add(-ws.ReviewDeadline()))
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue reviews: %w", err)
	}
	revisions, err := repo.ListStale([]entities.PublishingStatus{entities.StatusNeedsRevision}, now.Add(-ws.RevisionDeadline()))
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue revisions: %w", err)
	}

	items := make([]OverdueItem, 0, len(reviews)+len(revisions))
	for i := range reviews {
		items = append(items, overdueItem(&reviews[i], OverdueReview, ws.ReviewDeadline(), now))
	}
	for i := range revisions {
		items = append(items, overdueItem(&revisions[i], OverdueRevision, ws.RevisionDeadline(), now))
	}
	return items, nil
}

func overdueItem(sub *entities.Submission, kind OverdueKind, deadline time.Duration, now time.Time) OverdueItem {
	due := sub.StatusChangedAt.Add(deadline)
	return OverdueItem{
		SubmissionID:    sub.ID,
		Title:           sub.Title,
		Status:          sub.Status,
		Kind:            kind,
		AuthorID:        sub.AuthorID,
		StoryManagerID:  sub.StoryManagerID,
		BookManagerID:   sub.BookManagerID,
		StatusChangedAt: sub.StatusChangedAt,
		Deadline:        due,
		OverdueBy:       now.Sub(due),
	}
}

type reminderData struct {
	SubmissionID uint                      `json:"submission_id"`
	Status       entities.PublishingStatus `json:"status"`
}

// SendSLAReminders notifies the people who owe an action on overdue
// submissions. A recipient is reminded about the same submission and status
// at most once per reminder interval.
func (m *Manager) SendSLAReminders(ctx context.Context) (*SLAReport, error) {
	items, err := m.Overdue(ctx)
	if err != nil {
		return nil, err
	}

	ws := m.settings.GetWorkflowSettings()
	now := m.clock.Now()
	db := m.db.WithContext(ctx)
	notifRepo := notifications.NewRepository(db)
	report := &SLAReport{Overdue: len(items), CheckedAt: now}

	escalation, err := users.NewRepository(db).ListByRoles(EscalationRoles)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation users: %w", err)
	}

	for _, item := range items {
		data, _ := json.Marshal(reminderData{SubmissionID: item.SubmissionID, Status: item.Status})

		var batch []entities.Notification
		for _, userID := range reminderRecipients(item, escalation) {
			last, err := notifRepo.LastOfType(userID, entities.NotificationSLAReminder, string(data))
			if err != nil {
				return nil, fmt.Errorf("failed to check reminder history: %w", err)
			}
			if last != nil && now.Sub(*last) < ws.ReminderInterval() {
				report.Throttled++
				continue
			}
			title, message := reminderText(item)
			batch = append(batch, entities.Notification{
				UserID:    userID,
				Type:      entities.NotificationSLAReminder,
				Title:     title,
				Message:   message,
				Data:      string(data),
				CreatedAt: now,
			})
		}

		if len(batch) == 0 {
			continue
		}
		if err := notifRepo.CreateMany(batch); err != nil {
			return nil, fmt.Errorf("failed to create reminders: %w", err)
		}
		report.RemindersSent += len(batch)

		if m.audit != nil {
			m.audit.LogSLAViolation(item.SubmissionID, item.Status, item.OverdueBy)
		}
	}

	log.Printf("[SLA] %d overdue, %d reminders sent, %d throttled", report.Overdue, report.RemindersSent, report.Throttled)
	return report, nil
}

func reminderRecipients(item OverdueItem, escalation []entities.User) []uint {
	if item.Kind == OverdueRevision {
		return []uint{item.AuthorID}
	}

	seen := make(map[uint]bool)
	var ids []uint
	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	switch item.Status {
	case entities.StatusStoryReview:
		if item.StoryManagerID != nil {
			add(*item.StoryManagerID)
		}
	case entities.StatusFormatReview:
		if item.BookManagerID != nil {
			add(*item.BookManagerID)
		}
	}
	for _, u := range escalation {
		add(u.ID)
	}
	return ids
}

func reminderText(item OverdueItem) (string, string) {
	overdue := item.OverdueBy.Round(time.Hour)
	if item.Kind == OverdueRevision {
		return "Revision overdue",
			fmt.Sprintf("Your story %q has been waiting for revision for longer than expected (overdue by %s).", item.Title, overdue)
	}
	return "Review overdue",
		fmt.Sprintf("Submission %q has been in %s past its review deadline (overdue by %s).", item.Title, item.Status, overdue)
}
