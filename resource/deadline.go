package resource

import (
	"time"

	"github.com/wippyai/wasm-sandbox/errors"
)

// Clock returns a millisecond timestamp. Only differences between calls
// are meaningful.
type Clock func() int64

// MonotonicClock returns a Clock backed by the host monotonic clock.
// This is the only ambient time read in the repository; the value never
// reaches the guest.
func MonotonicClock() Clock {
	base := time.Now()
	return func() int64 {
		return time.Since(base).Milliseconds()
	}
}

// Deadline checks elapsed wall-clock time against a budget. Checks run
// at host-call boundaries only, so a guest that never calls into the
// host is bounded by the engine, not by this checker.
type Deadline struct {
	now      Clock
	limitMS  int64
	startMS  int64
	timedOut bool
}

// NewDeadline creates a checker with the given budget. A nil clock
// selects the monotonic default.
func NewDeadline(limitMS int64, clock Clock) *Deadline {
	if clock == nil {
		clock = MonotonicClock()
	}
	return &Deadline{now: clock, limitMS: limitMS}
}

// Start records the base timestamp and clears any previous timeout.
func (d *Deadline) Start() {
	d.startMS = d.now()
	d.timedOut = false
}

// Check fails when elapsed time exceeds the budget. elapsed == limit
// still passes. Once timed out, every subsequent Check fails until the
// next Start. The error carries the exceeding elapsed value.
func (d *Deadline) Check() error {
	elapsed := d.now() - d.startMS
	if d.timedOut || elapsed > d.limitMS {
		d.timedOut = true
		return errors.Timeout(elapsed, d.limitMS)
	}
	return nil
}

// ElapsedMS returns the time since Start.
func (d *Deadline) ElapsedMS() int64 {
	return d.now() - d.startMS
}

// LimitMS returns the budget.
func (d *Deadline) LimitMS() int64 {
	return d.limitMS
}

// TimedOut reports whether the budget has been blown.
func (d *Deadline) TimedOut() bool {
	return d.timedOut
}
