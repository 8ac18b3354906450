// Package timer provides an interval timer that is advanced explicitly by
// the owner's loop instead of a goroutine of its own.
//
// A Timer is not safe for concurrent use. It belongs to the goroutine that
// calls Tick.
package timer

import "time"

// Clock returns the current time.
type Clock func() time.Time

// Timer fires from Tick once its deadline has passed.
type Timer struct {
	interval  time.Duration
	autoReset bool
	enabled   bool
	deadline  time.Time
	now       Clock
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(t *Timer) { t.now = c }
}

// OneShot makes the timer disable itself after firing.
func OneShot() Option {
	return func(t *Timer) { t.autoReset = false }
}

// New returns a stopped timer. Timers reschedule themselves after firing
// unless OneShot is given.
func New(interval time.Duration, opts ...Option) *Timer {
	t := &Timer{
		interval:  interval,
		autoReset: true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start arms the timer to fire one interval from now.
func (t *Timer) Start() {
	t.StartAfter(t.interval)
}

// StartAfter arms the timer with a custom first delay. Later fires use the
// regular interval.
func (t *Timer) StartAfter(delay time.Duration) {
	t.enabled = true
	t.deadline = t.now().Add(delay)
}

// Stop disarms the timer.
func (t *Timer) Stop() {
	t.enabled = false
}

// Enabled reports whether the timer is armed.
func (t *Timer) Enabled() bool {
	return t.enabled
}

// Interval returns the current interval.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// SetInterval changes the interval. An armed timer is rescheduled from now.
func (t *Timer) SetInterval(d time.Duration) {
	t.interval = d
	if t.enabled {
		t.deadline = t.now().Add(d)
	}
}

// Tick fires at most once per call. Missed intervals are not replayed.
func (t *Timer) Tick() bool {
	if !t.enabled {
		return false
	}
	now := t.now()
	if now.Before(t.deadline) {
		return false
	}
	if t.autoReset {
		t.deadline = now.Add(t.interval)
	} else {
		t.enabled = false
	}
	return true
}
