package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter admits at most limit calls per key in each fixed window.
type rateLimiter interface {
	Allow(key string) bool
}

type windowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]windowCount
}

type windowCount struct {
	count int
	reset time.Time
}

// newWindowLimiter returns nil when limit or window disable limiting.
func newWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]windowCount),
	}
}

func (l *windowLimiter) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok || !now.Before(current.reset) {
		l.prune(now)
		l.windows[key] = windowCount{count: 1, reset: now.Add(l.window)}
		return true
	}
	if current.count >= l.limit {
		return false
	}
	current.count++
	l.windows[key] = current
	return true
}

// prune must be called with mu held.
func (l *windowLimiter) prune(now time.Time) {
	for key, entry := range l.windows {
		if !now.Before(entry.reset) {
			delete(l.windows, key)
		}
	}
}
