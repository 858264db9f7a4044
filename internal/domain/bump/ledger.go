// Package bump provides the bump-eligibility ledger.
package bump

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrInvalidArgument is returned when a grant count is negative.
var ErrInvalidArgument = errors.New("bump count must be non-negative")

// Ledger tracks each user's remaining priority tokens. Counts never go
// negative; running out of bumps is an expected outcome, not an error.
type Ledger struct {
	mu        sync.Mutex
	remaining map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		remaining: make(map[string]int),
	}
}

// Restore creates a ledger from a previously saved state.
func Restore(counts map[string]int) *Ledger {
	l := NewLedger()
	for user, n := range counts {
		if n > 0 {
			l.remaining[user] = n
		}
	}
	return l
}

// Grant increases the user's remaining bumps by count.
func (l *Ledger) Grant(userID string, count int) error {
	if count < 0 {
		return errors.Wrapf(ErrInvalidArgument, "count=%d", count)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining[userID] += count
	return nil
}

// UseBump decrements the user's remaining count and reports success.
// Returns false without mutation when nothing remains.
func (l *Ledger) UseBump(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.remaining[userID] <= 0 {
		return false
	}
	l.remaining[userID]--
	return true
}

// Remaining returns the user's remaining bump count. Unknown users
// default to zero.
func (l *Ledger) Remaining(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining[userID]
}

// Reset clears one user's count to zero.
func (l *Ledger) Reset(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.remaining, userID)
}

// ResetAll clears all counts. Called at stream-start boundaries.
func (l *Ledger) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining = make(map[string]int)
}

// State returns a copy of all non-zero counts for persistence.
func (l *Ledger) State() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int, len(l.remaining))
	for user, n := range l.remaining {
		if n > 0 {
			counts[user] = n
		}
	}
	return counts
}
