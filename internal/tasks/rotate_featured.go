package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/services"
)

// FeaturedRotator replaces the featured set when it has expired.
type FeaturedRotator interface {
	Rotate(ctx context.Context, force bool) (*services.RotationResult, error)
}

// RotateFeaturedTask rotates the featured books on the library front page.
type RotateFeaturedTask struct {
	Force bool `json:"force"`
}

// Config returns the queue configuration for featured rotation tasks.
func (t RotateFeaturedTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueRotateFeatured,
		MaxAttempts: 3,
		Backoff:     10 * time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
		},
	}
}

// RotateFeaturedProcessor creates a processor function for RotateFeaturedTask.
func RotateFeaturedProcessor(rotator FeaturedRotator) backlite.QueueProcessor[RotateFeaturedTask] {
	return func(ctx context.Context, task RotateFeaturedTask) error {
		if rotator == nil {
			return fmt.Errorf("featured rotator not configured")
		}

		result, err := rotator.Rotate(ctx, task.Force)
		if errors.Is(err, services.ErrNoFeaturedCandidates) {
			// Too few published books; retrying will not help.
			log.Printf("[TASK] Featured rotation skipped: %v", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("rotate featured: %w", err)
		}

		if result.Rotated {
			log.Printf("[TASK] Featured set rotated: %v", result.Set.BookIDs)
		} else {
			log.Printf("[TASK] Featured set kept: %s", result.Reason)
		}
		return nil
	}
}

// NewRotateFeaturedQueue creates a backlite queue for featured rotation tasks.
func NewRotateFeaturedQueue(rotator FeaturedRotator) backlite.Queue {
	return backlite.NewQueue(RotateFeaturedProcessor(rotator))
}
