package timeutil

import "time"

// Clock abstracts wall time and timer scheduling so the debounce and
// rate-limit paths can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the sync engine needs.
type Timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// SystemClock delegates to the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
