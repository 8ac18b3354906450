package connector

import (
	"math"
	"sync"
	"time"
)

// SettleTimeout is how long an instance counts as being moved by the user
// after its last value change.
const SettleTimeout = 5 * time.Second

// Feedback describes the variable a connector displays and the value range
// that maps onto the slider.
type Feedback struct {
	Category string
	VarID    uint32
	Min      float64
	Max      float64
}

// Target returns the index key of the displayed variable.
func (f Feedback) Target() string {
	return targetKey(f.Category, f.VarID)
}

// Instance is one live connector on the control surface.
type Instance struct {
	Key         string
	ConnectorID string
	Data        []string

	mu          sync.Mutex
	shortID     string
	lastValue   int
	changed     bool
	settleUntil time.Time
	feedback    *Feedback
	now         func() time.Time
}

// update applies a user value and reports whether it differs from the last
// observed one.
func (i *Instance) update(v int) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.changed = v != i.lastValue
	i.lastValue = v
	i.settleUntil = i.now().Add(SettleTimeout)
	return i.changed
}

// IsSettling reports whether the user moved the slider within the settle
// window. An expired flag is cleared on read.
func (i *Instance) IsSettling() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.changed {
		return false
	}
	if !i.now().Before(i.settleUntil) {
		i.changed = false
		return false
	}
	return true
}

// LastValue returns the last value seen from either direction.
func (i *Instance) LastValue() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastValue
}

// ShortID returns the surface-assigned short id.
func (i *Instance) ShortID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shortID
}

// Feedback returns the feedback binding, if any.
func (i *Instance) Feedback() (Feedback, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.feedback == nil {
		return Feedback{}, false
	}
	return *i.feedback, true
}

// FeedbackValue maps a variable value onto a 0-100 slider position and
// records it as the last value. It reports false when the position is
// unchanged, so callers can skip the push.
func (i *Instance) FeedbackValue(value float64) (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	pos := value
	if i.feedback != nil && i.feedback.Max > i.feedback.Min {
		pos = (value - i.feedback.Min) / (i.feedback.Max - i.feedback.Min) * 100
	}
	p := int(math.Round(math.Max(0, math.Min(100, pos))))
	if p == i.lastValue {
		return p, false
	}
	i.lastValue = p
	return p, true
}
