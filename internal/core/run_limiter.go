package core

// run_limiter.go caps how many pipeline runs execute at once.
//
// Callers wait up to the queue timeout for a slot and then fail with
// ErrTooManyRuns. WaitForDrain blocks until every running pipeline has
// released its slot, for graceful shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyRuns is returned when no run slot frees up within the queue timeout.
var ErrTooManyRuns = errors.New("too many concurrent runs")

const (
	DefaultMaxConcurrentRuns = 4
	DefaultQueueTimeout      = 30 * time.Second
)

// drainPoll is how often WaitForDrain checks for idle.
var drainPoll = 50 * time.Millisecond

// RunLimiter is a counting semaphore over pipeline runs.
type RunLimiter struct {
	sem     *semaphore.Weighted
	limit   int
	timeout time.Duration
	active  atomic.Int64
}

// RunLimiterStatus is a snapshot of limiter occupancy.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// NewRunLimiter allows limit concurrent runs; waiters give up after timeout.
// Non-positive arguments fall back to the defaults.
func NewRunLimiter(limit int, timeout time.Duration) *RunLimiter {
	if limit <= 0 {
		limit = DefaultMaxConcurrentRuns
	}
	if timeout <= 0 {
		timeout = DefaultQueueTimeout
	}
	return &RunLimiter{
		sem:     semaphore.NewWeighted(int64(limit)),
		limit:   limit,
		timeout: timeout,
	}
}

// Acquire takes a slot. It returns ctx.Err() if ctx ends first and
// ErrTooManyRuns if the queue timeout does. Every nil return must be paired
// with Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.TryAcquire() {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *RunLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Active returns the number of runs holding a slot.
func (l *RunLimiter) Active() int { return int(l.active.Load()) }

func (l *RunLimiter) Status() RunLimiterStatus {
	active := l.Active()
	return RunLimiterStatus{
		Active:        active,
		Available:     l.limit - active,
		MaxConcurrent: l.limit,
	}
}

// WaitForDrain blocks until no run holds a slot or ctx ends.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	if l.Active() == 0 {
		return nil
	}
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Active() == 0 {
				return nil
			}
		}
	}
}
