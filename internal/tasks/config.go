package tasks

import (
	"time"

	"github.com/stories1001/publisher/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxRetries is the default maximum retry attempts for failed tasks. Default: 3
	MaxRetries int

	// RetryDelay is the default backoff duration between retries. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout is the default timeout for task execution. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long to keep completed tasks. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// ConfigFrom fills a Config from the application settings, keeping defaults for zero values.
func ConfigFrom(c config.Tasks) Config {
	cfg := DefaultConfig()
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.RetryDelay > 0 {
		cfg.RetryDelay = c.RetryDelay
	}
	if c.TaskTimeout > 0 {
		cfg.TaskTimeout = c.TaskTimeout
	}
	if c.ReleaseAfter > 0 {
		cfg.ReleaseAfter = c.ReleaseAfter
	}
	if c.CleanupInterval > 0 {
		cfg.CleanupInterval = c.CleanupInterval
	}
	if c.RetentionDuration > 0 {
		cfg.RetentionDuration = c.RetentionDuration
	}
	return cfg
}
