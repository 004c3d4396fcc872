// Package ratelimit applies fixed-window request limits per client key.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// CheckResult is the outcome of a rate limit check.
type CheckResult struct {
	Exceeded   bool
	Key        string
	Current    int
	Limit      int
	RetryAfter time.Duration
	Reason     string
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks one fixed window per key. Safe for concurrent use.
type Limiter struct {
	limit   Limit
	mu      sync.Mutex
	windows map[string]*window
}

// New returns a Limiter. A disabled limit allows everything.
func New(limit Limit) *Limiter {
	return &Limiter{limit: limit, windows: make(map[string]*window)}
}

// Allow records a request for key and reports whether it exceeded the limit.
// The counter is incremented only when the request is allowed.
func (l *Limiter) Allow(key string, now time.Time) CheckResult {
	if !l.limit.Enabled() {
		return CheckResult{Key: key}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.limit.Window {
		w = &window{start: now}
		l.windows[key] = w
		l.sweep(now)
	}

	if w.count >= l.limit.MaxRequests {
		return CheckResult{
			Exceeded:   true,
			Key:        key,
			Current:    w.count,
			Limit:      l.limit.MaxRequests,
			RetryAfter: w.start.Add(l.limit.Window).Sub(now),
			Reason: fmt.Sprintf("rate limit exceeded: %d/%d requests in %s window",
				w.count, l.limit.MaxRequests, l.limit.Window),
		}
	}
	w.count++
	return CheckResult{Key: key, Current: w.count, Limit: l.limit.MaxRequests}
}

// sweep drops expired windows so idle clients do not accumulate.
func (l *Limiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.limit.Window {
			delete(l.windows, k)
		}
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
