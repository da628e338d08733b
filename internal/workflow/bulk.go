package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/stories1001/publisher/internal/entities"
)

// MaxBulkItems caps the number of transitions accepted in one bulk request.
const MaxBulkItems = 100

var ErrBulkTooLarge = fmt.Errorf("bulk request exceeds %d items", MaxBulkItems)

type BulkItemResult struct {
	SubmissionID uint                      `json:"submission_id"`
	Action       Action                    `json:"action"`
	Success      bool                      `json:"success"`
	ToStatus     entities.PublishingStatus `json:"to_status,omitempty"`
	Result       *TransitionResult         `json:"result,omitempty"`
	Errors       []string                  `json:"errors,omitempty"`
	Warnings     []string                  `json:"warnings,omitempty"`
}

type BulkSummary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

type BulkResult struct {
	DryRun  bool             `json:"dry_run"`
	Items   []BulkItemResult `json:"items"`
	Summary BulkSummary      `json:"summary"`
}

// ExecuteBulk runs each transition independently. One failing item does not
// stop the rest. With dryRun set, items are validated but nothing is written.
func (m *Manager) ExecuteBulk(ctx context.Context, reqs []TransitionRequest, dryRun bool) (*BulkResult, error) {
	if len(reqs) == 0 {
		return nil, errors.New("no transitions given")
	}
	if len(reqs) > MaxBulkItems {
		return nil, ErrBulkTooLarge
	}

	out := &BulkResult{
		DryRun:  dryRun,
		Items:   make([]BulkItemResult, 0, len(reqs)),
		Summary: BulkSummary{Total: len(reqs), Errors: []string{}},
	}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := BulkItemResult{SubmissionID: req.SubmissionID, Action: req.Action}

		if dryRun {
			vr, to, err := m.Preview(ctx, req)
			switch {
			case err != nil:
				item.Errors = []string{err.Error()}
			case vr.Valid:
				item.Success = true
				item.ToStatus = to
				item.Warnings = vr.Warnings
			default:
				item.Errors = vr.Errors
				item.Warnings = vr.Warnings
			}
		} else {
			res, err := m.Execute(ctx, req)
			if err != nil {
				item.Errors = errorMessages(err)
			} else {
				item.Success = true
				item.ToStatus = res.ToStatus
				item.Result = res
				item.Warnings = res.Warnings
			}
		}

		if item.Success {
			out.Summary.Successful++
		} else {
			out.Summary.Failed++
			for _, msg := range item.Errors {
				out.Summary.Errors = append(out.Summary.Errors, fmt.Sprintf("submission %d: %s", req.SubmissionID, msg))
			}
		}
		out.Items = append(out.Items, item)
	}

	log.Printf("[WORKFLOW] Bulk %s: %d total, %d successful, %d failed",
		bulkLabel(dryRun), out.Summary.Total, out.Summary.Successful, out.Summary.Failed)

	if m.audit != nil {
		m.audit.LogBulkOperation(reqs[0].ActorID, "bulk_"+bulkLabel(dryRun),
			fmt.Sprintf("Bulk transition of %d submissions", len(reqs)), out.Summary, nil)
	}

	return out, nil
}

func bulkLabel(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "transition"
}

func errorMessages(err error) []string {
	var terr *TransitionError
	if errors.As(err, &terr) {
		return terr.Result.Errors
	}
	return []string{err.Error()}
}
