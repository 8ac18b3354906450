package simvar

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"simbridge/pkg/sim"
)

// PendingTimeout is how long an unanswered request blocks new requests.
const PendingTimeout = 30 * time.Second

// ID is the process-unique handle of a registered variable.
type ID uint32

// UpdatePeriod is how often a variable is refreshed.
type UpdatePeriod uint8

const (
	PeriodNever UpdatePeriod = iota
	PeriodOnce
	PeriodVisualFrame
	PeriodSimFrame
	PeriodSecond
	PeriodMillisecond
)

var periodNames = map[UpdatePeriod]string{
	PeriodNever:       "never",
	PeriodOnce:        "once",
	PeriodVisualFrame: "visual_frame",
	PeriodSimFrame:    "sim_frame",
	PeriodSecond:      "second",
	PeriodMillisecond: "millisecond",
}

func (p UpdatePeriod) String() string {
	if s, ok := periodNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParseUpdatePeriod parses a period name. Empty means "sim_frame".
func ParseUpdatePeriod(s string) (UpdatePeriod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PeriodSimFrame, nil
	}
	for p, name := range periodNames {
		if name == s {
			return p, nil
		}
	}
	return PeriodNever, fmt.Errorf("unknown update period %q", s)
}

// Native returns the simulator period for subscriptions the simulator
// drives itself. Millisecond periods are polled by the engine instead.
func (p UpdatePeriod) Native() (sim.Period, bool) {
	switch p {
	case PeriodOnce:
		return sim.PeriodOnce, true
	case PeriodVisualFrame:
		return sim.PeriodVisualFrame, true
	case PeriodSimFrame:
		return sim.PeriodSimFrame, true
	case PeriodSecond:
		return sim.PeriodSecond, true
	}
	return sim.PeriodNever, false
}

// Spec is the static description of a variable, as loaded from a
// definition table.
type Spec struct {
	Key          string
	Category     string
	Name         string
	SimVarName   string
	VarKind      byte // 'A', 'L', 'Q' or 'E'
	Unit         string
	Default      string
	CanSet       bool
	Period       UpdatePeriod
	Interval     time.Duration
	DeltaEpsilon float64
	Format       string
}

// Variable is a single typed, polled value sourced from the simulator.
// Spec fields are fixed once registered; runtime state is guarded by mu.
type Variable struct {
	Spec

	mu           sync.RWMutex
	id           ID
	unit         string
	kind         Kind
	value        Value
	defaultValue Value
	pending      bool
	pendingSince time.Time
	lastUpdate   time.Time
	expiry       time.Time

	clock   func() time.Time
	decimal string
}

// New creates an unregistered variable from spec.
func New(spec Spec) (*Variable, error) {
	if spec.Key == "" {
		return nil, fmt.Errorf("variable key is required")
	}
	if spec.SimVarName == "" {
		return nil, fmt.Errorf("variable %s: simulator variable name is required", spec.Key)
	}
	if spec.VarKind == 0 {
		spec.VarKind = 'A'
	}
	if spec.DeltaEpsilon < 0 {
		spec.DeltaEpsilon = 0
	}
	if spec.Period == PeriodMillisecond && spec.Interval <= 0 {
		return nil, fmt.Errorf("variable %s: millisecond period needs an interval", spec.Key)
	}
	v := &Variable{Spec: spec, clock: time.Now}
	if err := v.SetUnit(spec.Unit); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Variable) ID() ID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.id
}

func (v *Variable) Unit() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unit
}

func (v *Variable) Kind() Kind {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.kind
}

// DataType is the wire type the variable is requested with.
func (v *Variable) DataType() sim.DataType {
	return WireType(v.Kind())
}

// SetUnit changes the unit, re-derives kind and wire type, and resets the
// value to the default parsed for the new kind.
func (v *Variable) SetUnit(unit string) error {
	kind := ClassifyUnit(unit)
	def := ZeroValue(kind)
	if strings.TrimSpace(v.Default) != "" {
		d, err := Coerce(v.Default, kind)
		if err != nil {
			return fmt.Errorf("variable %s: bad default %q: %w", v.Key, v.Default, err)
		}
		def = d
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.unit = unit
	v.kind = kind
	v.defaultValue = def
	v.value = def
	v.lastUpdate = time.Time{}
	v.expiry = time.Time{}
	return nil
}

func (v *Variable) Value() Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// ResetValue restores the default value and clears timing state.
func (v *Variable) ResetValue() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = v.defaultValue
	v.lastUpdate = time.Time{}
	v.expiry = time.Time{}
	v.pending = false
}

func (v *Variable) LastUpdate() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastUpdate
}

// Pending reports whether a request is outstanding.
func (v *Variable) Pending() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pending
}

// SetPending marks a request as outstanding (or answered).
func (v *Variable) SetPending(pending bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = pending
	if pending {
		v.pendingSince = v.clock()
	}
}

// PendingTimeout clears the pending flag if the request has been
// outstanding for PendingTimeout or longer. It reports whether it did.
func (v *Variable) PendingTimeout() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.pending {
		return false
	}
	if v.clock().Sub(v.pendingSince) < PendingTimeout {
		return false
	}
	v.pending = false
	return true
}

// NeedsScheduledPoll reports whether the engine, not the simulator, drives
// refreshes of this variable.
func (v *Variable) NeedsScheduledPoll() bool {
	return v.Period == PeriodMillisecond
}

// NeedsRequest reports whether a scheduled request is due.
func (v *Variable) NeedsRequest() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pending {
		return false
	}
	return !v.clock().Before(v.expiry)
}

// Update applies a raw value. Changes smaller than DeltaEpsilon (or equal
// strings) only clear the pending flag and report false.
func (v *Variable) Update(raw any) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.pending = false
	val, err := Coerce(raw, v.kind)
	if err != nil {
		return false, fmt.Errorf("variable %s: %w", v.Key, err)
	}
	if val.kind == KindReal {
		val.f = convertForDisplay(v.unit, val.f)
	}

	now := v.clock()
	if !v.lastUpdate.IsZero() && val.Within(v.value, v.DeltaEpsilon) {
		if v.Interval > 0 {
			v.expiry = now.Add(v.Interval)
		}
		return false, nil
	}

	v.value = val
	v.lastUpdate = now
	if v.Interval > 0 {
		v.expiry = now.Add(v.Interval)
	}
	return true, nil
}

// Def describes the variable to the simulator.
func (v *Variable) Def() sim.VariableDef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return sim.VariableDef{
		ID:       uint32(v.id),
		Kind:     v.VarKind,
		Name:     v.SimVarName,
		Unit:     v.unit,
		DataType: WireType(v.kind),
	}
}

// FormattedValue renders the current value with the variable's format
// string. Without one, reals drop trailing zeros.
func (v *Variable) FormattedValue() string {
	v.mu.RLock()
	val := v.value
	decimal := v.decimal
	v.mu.RUnlock()
	return formatValue(decimal, v.Format, val)
}

// formatValue never groups digits. Only the decimal separator follows the
// locale, and only for reals.
func formatValue(decimal, format string, val Value) string {
	if format != "" && strings.Contains(format, "%") {
		s := fmt.Sprintf(format, val.Interface())
		if val.kind == KindReal && decimal != "" && decimal != "." {
			s = localizeDecimal(s, decimal)
		}
		return s
	}
	if val.kind == KindReal {
		return trimFloat(val.f)
	}
	return val.String()
}

// localizeDecimal swaps the first '.' with a digit on both sides.
func localizeDecimal(s, decimal string) string {
	for i := 1; i < len(s)-1; i++ {
		if s[i] == '.' && isDigit(s[i-1]) && isDigit(s[i+1]) {
			return s[:i] + decimal + s[i+1:]
		}
	}
	return s
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func trimFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// Snapshot is a read-only view of a variable for reporting.
type Snapshot struct {
	ID         ID        `json:"id"`
	Key        string    `json:"key"`
	Category   string    `json:"category"`
	Name       string    `json:"name"`
	SimVarName string    `json:"simvar"`
	Unit       string    `json:"unit"`
	Kind       string    `json:"kind"`
	Period     string    `json:"period"`
	Value      string    `json:"value"`
	Pending    bool      `json:"pending"`
	LastUpdate time.Time `json:"last_update"`
}

func (v *Variable) Snapshot() Snapshot {
	v.mu.RLock()
	s := Snapshot{
		ID:         v.id,
		Key:        v.Key,
		Category:   v.Category,
		Name:       v.Name,
		SimVarName: v.SimVarName,
		Unit:       v.unit,
		Kind:       v.kind.String(),
		Period:     v.Period.String(),
		Pending:    v.pending,
		LastUpdate: v.lastUpdate,
	}
	v.mu.RUnlock()
	s.Value = v.FormattedValue()
	return s
}
