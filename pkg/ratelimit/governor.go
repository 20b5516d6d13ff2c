// Package ratelimit keeps outbound model calls under a per-minute budget by
// delaying callers until a slot opens in a sliding 60 second window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the length of the sliding window.
const Window = time.Minute

// DefaultCallsPerMinute is used when New is given a non-positive limit.
const DefaultCallsPerMinute = 30

// Governor admits at most a fixed number of calls in any trailing window.
// Callers over the limit block instead of failing.
type Governor struct {
	mu     sync.Mutex
	limit  int
	stamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock replaces the time source and the sleep function.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
		if sleep != nil {
			g.sleep = sleep
		}
	}
}

// New creates a Governor allowing callsPerMinute admissions per window.
func New(callsPerMinute int, opts ...Option) *Governor {
	if callsPerMinute <= 0 {
		callsPerMinute = DefaultCallsPerMinute
	}
	g := &Governor{
		limit: callsPerMinute,
		now:   time.Now,
		sleep: sleepContext,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Limit returns the configured calls per minute.
func (g *Governor) Limit() int { return g.limit }

// Admit blocks until the caller may proceed, records the admission and
// returns how long it waited. If ctx ends first, nothing is recorded and
// ctx.Err() is returned.
func (g *Governor) Admit(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	for {
		if err := ctx.Err(); err != nil {
			return waited, err
		}

		g.mu.Lock()
		now := g.now()
		g.prune(now)
		if len(g.stamps) < g.limit {
			g.stamps = append(g.stamps, now)
			g.mu.Unlock()
			return waited, nil
		}
		wait := Window - now.Sub(g.stamps[0])
		g.mu.Unlock()

		if wait < 0 {
			wait = 0
		}
		if err := g.sleep(ctx, wait); err != nil {
			return waited, err
		}
		waited += wait
	}
}

// Pending returns the number of admissions still inside the window.
func (g *Governor) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	return len(g.stamps)
}

// prune drops stamps at or before now-Window. Caller holds mu.
func (g *Governor) prune(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(g.stamps) && !g.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.stamps = append(g.stamps[:0], g.stamps[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
