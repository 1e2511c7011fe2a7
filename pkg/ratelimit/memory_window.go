package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements the same fixed-window algorithm as RedisLimiter
// on process-local state. It serves single-instance deployments and tests
// where no shared counter store is configured; quotas are not shared across
// instances.
type MemoryLimiter struct {
	mu        sync.Mutex
	config    RedisLimiterConfig
	windows   map[string]*windowCounter
	lastSweep time.Time
	now       func() time.Time
}

type windowCounter struct {
	start time.Time
	count int
}

// NewMemoryLimiter creates an in-process fixed-window limiter.
func NewMemoryLimiter(config RedisLimiterConfig) *MemoryLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultRedisLimiterConfig().MaxRequests
	}
	if config.Window <= 0 {
		config.Window = DefaultRedisLimiterConfig().Window
	}
	return &MemoryLimiter{
		config:  config,
		windows: make(map[string]*windowCounter),
		now:     time.Now,
	}
}

// Limit counts this request against the client's current window.
func (ml *MemoryLimiter) Limit(_ context.Context, clientID string) (Decision, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	windowStart := ml.now().Truncate(ml.config.Window)
	ml.sweep(windowStart)

	wc, ok := ml.windows[clientID]
	if !ok || !wc.start.Equal(windowStart) {
		wc = &windowCounter{start: windowStart}
		ml.windows[clientID] = wc
	}
	wc.count++

	remaining := ml.config.MaxRequests - wc.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   wc.count <= ml.config.MaxRequests,
		Limit:     ml.config.MaxRequests,
		Remaining: remaining,
		ResetAt:   windowStart.Add(ml.config.Window),
	}, nil
}

// sweep drops counters from past windows. Client IDs are attacker-supplied
// (X-Forwarded-For), so stale entries must not accumulate. Runs at most once
// per window boundary; callers hold the lock.
func (ml *MemoryLimiter) sweep(windowStart time.Time) {
	if !windowStart.After(ml.lastSweep) {
		return
	}
	ml.lastSweep = windowStart
	for clientID, wc := range ml.windows {
		if !wc.start.Equal(windowStart) {
			delete(ml.windows, clientID)
		}
	}
}

// Len returns the number of clients with a tracked window.
func (ml *MemoryLimiter) Len() int {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return len(ml.windows)
}

// SetClock replaces the time source used for window bucketing. Intended for
// tests.
func (ml *MemoryLimiter) SetClock(now func() time.Time) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.now = now
}
