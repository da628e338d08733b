package workflow

import (
	"strings"

	"github.com/stories1001/publisher/internal/entities"
)

type ProgressInfo struct {
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`
	StepName    string `json:"step_name"`
	Percentage  int    `json:"percentage"`
}

// Progress places a status on the multi-stage review line. Statuses off the
// line (revision, rejection, archive) report the step they fall back to.
func Progress(status entities.PublishingStatus) ProgressInfo {
	steps := ReviewSteps()
	total := len(steps)

	position := map[entities.PublishingStatus]int{}
	for i, s := range steps {
		position[s] = i + 1
	}
	position[entities.StatusApproved] = position[entities.StatusContentReview]
	position[entities.StatusNeedsRevision] = position[entities.StatusDraft]
	position[entities.StatusRejected] = 0
	position[entities.StatusArchived] = 0

	current := position[status]
	pct := 0
	if current > 0 {
		pct = current * 100 / total
	}

	return ProgressInfo{
		CurrentStep: current,
		TotalSteps:  total,
		StepName:    stepName(status),
		Percentage:  pct,
	}
}

func stepName(status entities.PublishingStatus) string {
	words := strings.Split(strings.ToLower(string(status)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// NextSteps returns author-facing guidance for a status.
func NextSteps(status entities.PublishingStatus) []string {
	switch status {
	case entities.StatusDraft:
		return []string{"Finish your story", "Submit it for review when ready"}
	case entities.StatusPending:
		return []string{"Wait for reviewer assignment", "Check your dashboard for updates"}
	case entities.StatusStoryReview:
		return []string{"Your story is being reviewed", "Estimated review time: 2-3 business days"}
	case entities.StatusNeedsRevision:
		return []string{"Review the feedback carefully", "Make the suggested changes", "Resubmit your story"}
	case entities.StatusStoryApproved:
		return []string{"Your story is moving to format review", "No action needed from you"}
	case entities.StatusFormatReview:
		return []string{"Format decision in progress", "Images and layout being determined"}
	case entities.StatusContentReview:
		return []string{"Final review in progress", "Publication preparation underway"}
	case entities.StatusApproved:
		return []string{"Your story is being prepared for publication"}
	case entities.StatusPublished:
		return []string{"Share your published story!", "Start writing your next story"}
	case entities.StatusRejected:
		return []string{"Review the feedback", "Consider the suggestions", "You can submit a new improved version"}
	case entities.StatusArchived:
		return []string{"This story has been archived", "Contact an administrator to restore it"}
	}
	return []string{}
}
