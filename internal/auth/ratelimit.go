package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/stories1001/publisher/internal/config"
)

// LockoutAuditor records the moment repeated login failures lock a username out.
type LockoutAuditor interface {
	LogLoginLockout(username, ipAddr string, attempts int, until time.Time)
}

// RateLimitConfig bounds login attempts per client IP and username.
type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
}

// RateLimitConfigFrom reads the limiter settings from the auth config, filling defaults.
func RateLimitConfigFrom(cfg config.Auth) RateLimitConfig {
	rl := RateLimitConfig{
		MaxAttempts:     cfg.MaxLoginAttempts,
		WindowDuration:  cfg.RateLimitWindow,
		LockoutDuration: cfg.LockoutDuration,
	}
	if rl.MaxAttempts <= 0 {
		rl.MaxAttempts = 5
	}
	if rl.WindowDuration <= 0 {
		rl.WindowDuration = 15 * time.Minute
	}
	if rl.LockoutDuration <= 0 {
		rl.LockoutDuration = 30 * time.Minute
	}
	return rl
}

type attemptKey struct {
	ip       string
	username string
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimiter throttles logins before they reach the users table. It sits in
// front of the per-account lockout kept by Service.Authenticate, so a burst
// against one account from one address is cut off without touching the
// account itself. Expired records are pruned as new failures arrive.
type RateLimiter struct {
	mu       sync.Mutex
	cfg      RateLimitConfig
	clock    clock.Clock
	auditor  LockoutAuditor
	attempts map[attemptKey]*attemptRecord
}

// NewRateLimiter creates a limiter. auditor may be nil.
func NewRateLimiter(cfg RateLimitConfig, clk clock.Clock, auditor LockoutAuditor) *RateLimiter {
	if clk == nil {
		clk = clock.WallClock
	}
	return &RateLimiter{
		cfg:      cfg,
		clock:    clk,
		auditor:  auditor,
		attempts: make(map[attemptKey]*attemptRecord),
	}
}

func keyFor(ip, username string) attemptKey {
	return attemptKey{ip: ip, username: strings.ToLower(strings.TrimSpace(username))}
}

// Allow reports whether a login attempt may proceed and, if not, how long to wait.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[keyFor(ip, username)]
	if !ok {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure counts a failed login. When the failure starts a lockout it
// is audited and the lockout length is returned.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	now := rl.clock.Now()
	key := keyFor(ip, username)

	rl.mu.Lock()
	rl.prune(now)

	record, ok := rl.attempts[key]
	if !ok || now.Sub(record.firstAttempt) > rl.cfg.WindowDuration {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}
	record.count++

	locked := record.count >= rl.cfg.MaxAttempts && !now.Before(record.lockedUntil)
	if locked {
		record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	}
	count, until := record.count, record.lockedUntil
	rl.mu.Unlock()

	if !locked {
		return false, 0
	}
	if rl.auditor != nil {
		rl.auditor.LogLoginLockout(key.username, ip, count, until)
	}
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets earlier failures after a successful login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, keyFor(ip, username))
	rl.mu.Unlock()
}

// prune drops records whose window and lockout have both passed. mu must be held.
func (rl *RateLimiter) prune(now time.Time) {
	for key, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > rl.cfg.WindowDuration && !now.Before(record.lockedUntil) {
			delete(rl.attempts, key)
		}
	}
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}
