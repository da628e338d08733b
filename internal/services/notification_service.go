package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/database/notifications"
	"github.com/stories1001/publisher/internal/database/users"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/workflow"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService manages in-app notifications and fans workflow
// transitions out to the people involved.
type NotificationService struct {
	repo  *notifications.Repository
	users *users.Repository
	clock clock.Clock
}

func NewNotificationService(db *gorm.DB, clk clock.Clock) *NotificationService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &NotificationService{
		repo:  notifications.NewRepository(db),
		users: users.NewRepository(db),
		clock: clk,
	}
}

// Create stores a single in-app notification. data is marshalled to JSON.
func (s *NotificationService) Create(userID uint, typ entities.NotificationType, title, message string, data any) (*entities.Notification, error) {
	n := &entities.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      encodeData(data),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (s *NotificationService) List(userID uint, unreadOnly bool, limit, offset int) ([]entities.Notification, int64, error) {
	return s.repo.ListForUser(userID, unreadOnly, limit, offset)
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	err := s.repo.MarkRead(userID, id, s.clock.Now())
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.repo.MarkAllRead(userID, s.clock.Now())
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.repo.UnreadCount(userID)
}

// NotifyRoleChanged tells a user their role was changed.
func (s *NotificationService) NotifyRoleChanged(userID uint, from, to entities.UserRole) error {
	_, err := s.Create(userID, entities.NotificationRoleChanged, "Your role has changed",
		fmt.Sprintf("Your role was changed from %s to %s.", from, to),
		map[string]any{"from_role": from, "to_role": to})
	return err
}

type transitionData struct {
	SubmissionID uint                      `json:"submission_id"`
	Title        string                    `json:"submission_title"`
	Status       entities.PublishingStatus `json:"status"`
	Feedback     string                    `json:"feedback,omitempty"`
	AuthorName   string                    `json:"author_name,omitempty"`
	NextSteps    []string                  `json:"next_steps,omitempty"`
}

// NotifyTransition delivers the notifications for one status change. It
// satisfies workflow.Notifier when no task queue is configured.
func (s *NotificationService) NotifyTransition(_ context.Context, event workflow.TransitionEvent) error {
	var batch []entities.Notification
	now := s.clock.Now()

	if title, message, typ, ok := authorMessage(event); ok && event.ActorID != event.AuthorID {
		batch = append(batch, entities.Notification{
			UserID:  event.AuthorID,
			Type:    typ,
			Title:   title,
			Message: message,
			Data: encodeData(transitionData{
				SubmissionID: event.SubmissionID,
				Title:        event.Title,
				Status:       event.ToStatus,
				Feedback:     event.Reason,
				NextSteps:    workflow.NextSteps(event.ToStatus),
			}),
			CreatedAt: now,
		})
	}

	reviewers, err := s.reviewerMessages(event)
	if err != nil {
		return err
	}
	for _, r := range reviewers {
		if r.userID == event.ActorID {
			continue
		}
		batch = append(batch, entities.Notification{
			UserID:  r.userID,
			Type:    entities.NotificationAssignment,
			Title:   r.title,
			Message: r.message,
			Data: encodeData(transitionData{
				SubmissionID: event.SubmissionID,
				Title:        event.Title,
				Status:       event.ToStatus,
				AuthorName:   event.AuthorName,
			}),
			CreatedAt: now,
		})
	}

	if len(batch) == 0 {
		return nil
	}
	if err := s.repo.CreateMany(batch); err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}
	log.Printf("[NOTIFY] Submission %d -> %s: %d notifications", event.SubmissionID, event.ToStatus, len(batch))
	return nil
}

// authorMessage returns the author-facing text for statuses worth telling
// the author about.
func authorMessage(event workflow.TransitionEvent) (string, string, entities.NotificationType, bool) {
	typ := entities.NotificationStatusChange
	switch event.ToStatus {
	case entities.StatusPending:
		if event.Action == workflow.ActionResubmit {
			return "Story Resubmitted", "Your revised story has been resubmitted and is back in the review queue.", typ, true
		}
		return "Story Submitted Successfully",
			"Your story has been submitted and is awaiting review assignment. We'll notify you once a reviewer is assigned.", typ, true
	case entities.StatusStoryReview:
		return "Story Review Started",
			"Your story is now under review. The review typically takes 2-3 business days.", typ, true
	case entities.StatusNeedsRevision:
		return "Revision Requested",
			"Your story needs some revisions. Please check the feedback and resubmit when ready.", entities.NotificationFeedback, true
	case entities.StatusStoryApproved:
		return "Story Approved!",
			"Great news! Your story has been approved and is moving to format review.", typ, true
	case entities.StatusApproved:
		return "Story Ready for Publication",
			"Congratulations! Your story has been approved and is being prepared for publication.", typ, true
	case entities.StatusPublished:
		return "Story Published!",
			"Amazing! Your story is now live and available to readers worldwide. Thank you for your contribution!",
			entities.NotificationPublished, true
	case entities.StatusRejected:
		return "Story Status Update",
			"Your story submission has been declined. Please check the feedback for details on how to improve and resubmit.",
			entities.NotificationFeedback, true
	case entities.StatusArchived:
		return "Story Archived", "Your story has been archived and is no longer visible in the library.", typ, true
	}
	return "", "", "", false
}

type reviewerMessage struct {
	userID  uint
	title   string
	message string
}

func (s *NotificationService) reviewerMessages(event workflow.TransitionEvent) ([]reviewerMessage, error) {
	resubmit := event.Action == workflow.ActionResubmit
	author := event.AuthorName
	if author == "" {
		author = "the author"
	}

	var out []reviewerMessage
	toRoles := func(roles []entities.UserRole, title, message string) error {
		list, err := s.users.ListByRoles(roles)
		if err != nil {
			return fmt.Errorf("failed to list reviewers: %w", err)
		}
		for _, u := range list {
			out = append(out, reviewerMessage{userID: u.ID, title: title, message: message})
		}
		return nil
	}

	var err error
	switch event.ToStatus {
	case entities.StatusPending:
		if resubmit {
			err = toRoles([]entities.UserRole{entities.UserRoleAdmin, entities.UserRoleContentAdmin}, "Story Resubmitted",
				fmt.Sprintf("%q by %s has been revised and resubmitted for review.", event.Title, author))
		} else {
			err = toRoles([]entities.UserRole{entities.UserRoleAdmin, entities.UserRoleContentAdmin}, "New Story Submission",
				fmt.Sprintf("%q by %s is awaiting story manager assignment.", event.Title, author))
		}
	case entities.StatusStoryReview:
		if event.StoryManagerID != nil {
			out = append(out, reviewerMessage{
				userID:  *event.StoryManagerID,
				title:   "Story Review Assigned",
				message: fmt.Sprintf("You've been assigned to review %q by %s.", event.Title, author),
			})
		}
	case entities.StatusFormatReview:
		if event.BookManagerID != nil {
			out = append(out, reviewerMessage{
				userID:  *event.BookManagerID,
				title:   "Format Review Required",
				message: fmt.Sprintf("%q needs format decision after story approval.", event.Title),
			})
		}
	case entities.StatusContentReview:
		err = toRoles([]entities.UserRole{entities.UserRoleContentAdmin}, "Final Review Required",
			fmt.Sprintf("%q is ready for final approval and publishing.", event.Title))
	case entities.StatusApproved:
		err = toRoles([]entities.UserRole{entities.UserRoleContentAdmin}, "Ready for Publication",
			fmt.Sprintf("%q by %s has been approved and is ready for publication.", event.Title, author))
	}
	return out, err
}

func encodeData(data any) string {
	if data == nil {
		return ""
	}
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return string(b)
}
