package syncengine

import (
	"sync"
	"time"

	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// Debouncer coalesces bursts of triggers into a single callback after
// a settle delay. A trigger arriving while one is pending cancels the
// pending timer and reschedules, so N raw events inside the window
// produce exactly one firing.
type Debouncer struct {
	clock timeutil.Clock
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   timeutil.Timer
	pending bool
}

func NewDebouncer(clock timeutil.Clock, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger schedules (or reschedules) the callback. Returns false when
// an evaluation was already pending and this trigger was absorbed.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	coalesced := d.pending
	d.pending = true
	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.delay, d.fire)
	} else {
		d.timer.Reset(d.delay)
	}
	return !coalesced
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.fn()
}

// Stop cancels any pending firing.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
