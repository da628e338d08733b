package settingsstore

import (
	"strconv"
	"time"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// FeaturedSettings is the effective featured rotation configuration.
type FeaturedSettings struct {
	Size            int                    `json:"size"`
	DurationDays    int                    `json:"duration_days"`
	SelectionMethod config.SelectionMethod `json:"selection_method"`
	LastRotatedAt   *time.Time             `json:"last_rotated_at,omitempty"`
}

// GetFeaturedSettings returns the effective featured settings (database > env > default).
func (s *SettingsStore) GetFeaturedSettings() FeaturedSettings {
	method := s.featured.SelectionMethod
	if v, ok := s.lookup(entities.SettingKeyFeaturedSelectionMethod); ok && config.SelectionMethod(v).IsValid() {
		method = config.SelectionMethod(v)
	}
	if !method.IsValid() {
		method = config.SelectionRandom
	}

	size := s.featured.Size
	if size <= 0 {
		size = 3
	}

	duration := s.intValue(entities.SettingKeyFeaturedDurationDays, s.featured.DurationDays)
	if duration <= 0 {
		duration = 30
	}

	return FeaturedSettings{
		Size:            size,
		DurationDays:    duration,
		SelectionMethod: method,
		LastRotatedAt:   s.timeValue(entities.SettingKeyFeaturedLastRotatedAt),
	}
}

// SetFeaturedSelectionMethod stores the selection method override.
func (s *SettingsStore) SetFeaturedSelectionMethod(method config.SelectionMethod) error {
	if !method.IsValid() {
		verr := &ValidationError{}
		verr.add("selection_method", "must be RANDOM, MOST_VIEWED or NEWEST")
		return verr
	}
	return s.repo.SetSetting(entities.SettingKeyFeaturedSelectionMethod, string(method))
}

// SetFeaturedDurationDays stores the rotation period override.
func (s *SettingsStore) SetFeaturedDurationDays(days int) error {
	if days < 1 || days > 365 {
		verr := &ValidationError{}
		verr.add("duration_days", "must be between 1 and 365")
		return verr
	}
	return s.repo.SetSetting(entities.SettingKeyFeaturedDurationDays, strconv.Itoa(days))
}

// SetFeaturedLastRotatedAt records when the featured set last changed.
func (s *SettingsStore) SetFeaturedLastRotatedAt(at time.Time) error {
	return s.repo.SetSetting(entities.SettingKeyFeaturedLastRotatedAt, at.UTC().Format(time.RFC3339))
}
