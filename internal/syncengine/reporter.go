package syncengine

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// ReportedState is the device state a StateReport announces.
type ReportedState struct {
	TripID    string
	LegIndex  int
	HasActive bool
}

// SuppressCause names why a report was withheld.
type SuppressCause string

const (
	SuppressUnchanged   SuppressCause = "unchanged"
	SuppressRateLimited SuppressCause = "rate_limited"
)

// StateReporter gates outbound state announcements: an unchanged state
// is never re-sent, and even changed states are limited to one per
// minimum interval. Dropped reports are not queued; the next
// evaluation re-reports current state anyway.
type StateReporter struct {
	limiter *rate.Limiter
	clock   timeutil.Clock
	emit    func(ReportedState)

	mu   sync.Mutex
	last *ReportedState
}

func NewStateReporter(minInterval time.Duration, clock timeutil.Clock, emit func(ReportedState)) *StateReporter {
	return &StateReporter{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		clock:   clock,
		emit:    emit,
	}
}

// Report emits the state unless suppressed. The second return carries
// the suppression cause when the first is false.
func (r *StateReporter) Report(st ReportedState) (bool, SuppressCause) {
	r.mu.Lock()
	if r.last != nil && *r.last == st {
		r.mu.Unlock()
		return false, SuppressUnchanged
	}
	if !r.limiter.AllowN(r.clock.Now(), 1) {
		r.mu.Unlock()
		return false, SuppressRateLimited
	}
	copied := st
	r.last = &copied
	r.mu.Unlock()

	r.emit(st)
	return true, ""
}

// Reset forgets the last emitted state so the next Report always
// announces, used after a forced resync.
func (r *StateReporter) Reset() {
	r.mu.Lock()
	r.last = nil
	r.mu.Unlock()
}
