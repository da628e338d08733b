package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_ExpiresAfterWindow(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	cache := newIdempotencyCache(clk, 5*time.Second)
	scope := idempotencyScope{ActorID: 1, SubmissionID: 4, Action: ActionSubmit}

	got, err := cache.acquire(ctx, "key-1", scope)
	require.NoError(t, err)
	require.Nil(t, got)
	cache.release("key-1", &TransitionResult{SubmissionID: 4})

	got, err = cache.acquire(ctx, "key-1", scope)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint(4), got.SubmissionID)

	clk.Advance(4 * time.Second)
	got, _ = cache.acquire(ctx, "key-1", scope)
	assert.NotNil(t, got)

	clk.Advance(time.Second)
	got, err = cache.acquire(ctx, "key-1", scope)
	require.NoError(t, err)
	assert.Nil(t, got)
	cache.release("key-1", nil)
}

func TestIdempotencyCache_PrunesOnRelease(t *testing.T) {
	ctx := context.Background()
	clk := testclock.NewClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	cache := newIdempotencyCache(clk, time.Second)

	for i, key := range []string{"a", "b"} {
		_, err := cache.acquire(ctx, key, idempotencyScope{SubmissionID: uint(i + 1)})
		require.NoError(t, err)
		cache.release(key, &TransitionResult{})
	}
	assert.Equal(t, 2, cache.size())

	clk.Advance(2 * time.Second)
	_, err := cache.acquire(ctx, "c", idempotencyScope{SubmissionID: 3})
	require.NoError(t, err)
	cache.release("c", &TransitionResult{})
	assert.Equal(t, 1, cache.size())
}

func TestIdempotencyCache_RejectsOtherScope(t *testing.T) {
	ctx := context.Background()
	cache := newIdempotencyCache(testclock.NewClock(time.Now()), 5*time.Second)
	owner := idempotencyScope{ActorID: 1, SubmissionID: 1, Action: ActionSubmit}

	_, err := cache.acquire(ctx, "shared", owner)
	require.NoError(t, err)

	// Still in flight
	_, err = cache.acquire(ctx, "shared", idempotencyScope{ActorID: 2, SubmissionID: 1, Action: ActionSubmit})
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)

	cache.release("shared", &TransitionResult{SubmissionID: 1})

	for _, other := range []idempotencyScope{
		{ActorID: 2, SubmissionID: 1, Action: ActionSubmit},
		{ActorID: 1, SubmissionID: 2, Action: ActionSubmit},
		{ActorID: 1, SubmissionID: 1, Action: ActionArchive},
	} {
		_, err := cache.acquire(ctx, "shared", other)
		assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestIdempotencyCache_RetryWaitsForInFlight(t *testing.T) {
	ctx := context.Background()
	cache := newIdempotencyCache(testclock.NewClock(time.Now()), 5*time.Second)
	scope := idempotencyScope{ActorID: 1, SubmissionID: 7, Action: ActionSubmit}

	_, err := cache.acquire(ctx, "retry", scope)
	require.NoError(t, err)

	done := make(chan *TransitionResult)
	go func() {
		got, _ := cache.acquire(ctx, "retry", scope)
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("retry returned before the first request finished")
	case <-time.After(50 * time.Millisecond):
	}

	cache.release("retry", &TransitionResult{SubmissionID: 7, TransitionID: 3})

	select {
	case got := <-done:
		require.NotNil(t, got)
		assert.Equal(t, uint(3), got.TransitionID)
	case <-time.After(time.Second):
		t.Fatal("retry never returned")
	}
}

func TestIdempotencyCache_FailedRunIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := newIdempotencyCache(testclock.NewClock(time.Now()), 5*time.Second)
	scope := idempotencyScope{ActorID: 1, SubmissionID: 7, Action: ActionSubmit}

	_, err := cache.acquire(ctx, "flaky", scope)
	require.NoError(t, err)
	cache.release("flaky", nil)

	got, err := cache.acquire(ctx, "flaky", scope)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, cache.size())
}

func TestIdempotencyCache_WaitHonoursContext(t *testing.T) {
	cache := newIdempotencyCache(testclock.NewClock(time.Now()), 5*time.Second)
	scope := idempotencyScope{ActorID: 1, SubmissionID: 7, Action: ActionSubmit}

	_, err := cache.acquire(context.Background(), "slow", scope)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cache.acquire(ctx, "slow", scope)
	assert.ErrorIs(t, err, context.Canceled)
}
