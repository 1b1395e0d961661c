package core

import (
	"fmt"
	"sync"
)

// AttemptLimiter enforces the per-meeting wait-attempt budget of the
// orchestration loop.
type AttemptLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewAttemptLimiter creates a limiter with a max number of attempts.
// If max == 0, attempts are unlimited.
func NewAttemptLimiter(max int) *AttemptLimiter {
	return &AttemptLimiter{max: max}
}

// Increment records one attempt and returns an error once the budget is
// exhausted.
func (l *AttemptLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count >= l.max {
		return fmt.Errorf("attempt budget of %d exhausted", l.max)
	}

	return nil
}

// Count returns the number of attempts made.
func (l *AttemptLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many attempts are left before hitting the budget.
func (l *AttemptLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
