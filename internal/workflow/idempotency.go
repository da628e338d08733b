package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
)

// idempotencyScope binds a key to the request that first used it.
type idempotencyScope struct {
	ActorID      uint
	SubmissionID uint
	Action       Action
}

func scopeOf(req TransitionRequest) idempotencyScope {
	return idempotencyScope{ActorID: req.ActorID, SubmissionID: req.SubmissionID, Action: req.Action}
}

type cachedResult struct {
	scope   idempotencyScope
	result  TransitionResult
	expires time.Time
}

type inflightCall struct {
	scope idempotencyScope
	done  chan struct{}
}

// idempotencyCache remembers transition results for a short window so that
// a retried request returns the first outcome instead of failing. A key is
// held in flight while its first request runs; retries wait for it.
type idempotencyCache struct {
	mu       sync.Mutex
	clock    clock.Clock
	window   time.Duration
	entries  map[string]cachedResult
	inflight map[string]*inflightCall
}

func newIdempotencyCache(clk clock.Clock, window time.Duration) *idempotencyCache {
	return &idempotencyCache{
		clock:    clk,
		window:   window,
		entries:  make(map[string]cachedResult),
		inflight: make(map[string]*inflightCall),
	}
}

// acquire returns the cached result for key, or claims the key for the
// caller, who must then call release. A key owned by a different scope is
// rejected with ErrIdempotencyKeyReused.
func (c *idempotencyCache) acquire(ctx context.Context, key string, scope idempotencyScope) (*TransitionResult, error) {
	for {
		c.mu.Lock()
		if entry, ok := c.lookup(key); ok {
			c.mu.Unlock()
			if entry.scope != scope {
				return nil, keyReused(key)
			}
			result := entry.result
			return &result, nil
		}

		call, busy := c.inflight[key]
		if !busy {
			c.inflight[key] = &inflightCall{scope: scope, done: make(chan struct{})}
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		if call.scope != scope {
			return nil, keyReused(key)
		}
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// release frees a key claimed by acquire. A nil result leaves nothing
// cached so the next retry runs the transition again.
func (c *idempotencyCache) release(key string, result *TransitionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.inflight[key]
	if !ok {
		return
	}
	if result != nil {
		c.put(key, call.scope, *result)
	}
	close(call.done)
	delete(c.inflight, key)
}

// lookup must be called with mu held.
func (c *idempotencyCache) lookup(key string) (cachedResult, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return cachedResult{}, false
	}
	if !c.clock.Now().Before(entry.expires) {
		delete(c.entries, key)
		return cachedResult{}, false
	}
	return entry, true
}

// put must be called with mu held.
func (c *idempotencyCache) put(key string, scope idempotencyScope, result TransitionResult) {
	now := c.clock.Now()
	for k, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cachedResult{scope: scope, result: result, expires: now.Add(c.window)}
}

func (c *idempotencyCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
