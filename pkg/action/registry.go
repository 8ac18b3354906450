// Package action resolves control-surface actions to the single event they
// trigger, either in the simulator or inside the engine.
package action

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"simbridge/pkg/simvar"
)

// EventIDOffset separates simulator event ids (above) from command ids.
const EventIDOffset = 1000

var (
	// ErrUnknownAction is returned for action ids with no mapping.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoMatch is returned when the data tuple matches no declared key.
	ErrNoMatch = errors.New("no event for data")
	// ErrConversion is returned when a free value is not numeric.
	ErrConversion = simvar.ErrConversion
)

// Target is the concrete thing an action resolves to.
type Target struct {
	ID       uint32
	Name     string
	Internal bool
}

// Command returns the engine command of an internal target.
func (t Target) Command() Command {
	if !t.Internal {
		return CmdNone
	}
	return Command(t.ID)
}

// Mapping is the resolved lookup structure of one action.
type Mapping struct {
	ActionID string
	Category string
	Holdable bool
	// Connector and Feedback* are copied from the definition.
	Connector   bool
	Feedback    string
	FeedbackMin float64
	FeedbackMax float64
	// ValueIndex is the position of the free value in the data tuple, or -1.
	ValueIndex int
	ValueType  FieldType
	Min        float64
	Max        float64

	choiceIdx []int
	targets   map[string]Target
	single    *Target
}

// HasValue reports whether the action carries a free value.
func (m *Mapping) HasValue() bool { return m.ValueIndex >= 0 }

// Targets returns the number of distinct keys.
func (m *Mapping) Targets() int { return len(m.targets) }

// Key builds the lookup key from a data tuple using the declared choice
// positions. Missing positions contribute empty strings.
func (m *Mapping) Key(data []string) string {
	values := make([]string, len(m.choiceIdx))
	for i, idx := range m.choiceIdx {
		if idx < len(data) {
			values[i] = data[idx]
		}
	}
	return JoinKey(values)
}

// Resolve returns the target for a data tuple.
func (m *Mapping) Resolve(data []string) (Target, error) {
	if m.single != nil {
		return *m.single, nil
	}
	key := m.Key(data)
	t, ok := m.targets[key]
	if !ok {
		return Target{}, fmt.Errorf("%w: %s [%s]", ErrNoMatch, m.ActionID, key)
	}
	return t, nil
}

// Payload parses and clamps the free value of a data tuple. It reports
// false when the action has no free value.
func (m *Mapping) Payload(data []string) (uint32, bool, error) {
	if !m.HasValue() {
		return 0, false, nil
	}
	if m.ValueIndex >= len(data) {
		return 0, true, fmt.Errorf("%w: %s has no value at position %d", ErrConversion, m.ActionID, m.ValueIndex)
	}
	v, err := simvar.ParseNumber(data[m.ValueIndex])
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", m.ActionID, err)
	}
	return EncodePayload(m.Clamp(v)), true, nil
}

// ScaledPayload maps a 0-100 connector position onto the value range.
func (m *Mapping) ScaledPayload(percent int) (uint32, bool) {
	if !m.HasValue() {
		return 0, false
	}
	p := math.Max(0, math.Min(100, float64(percent)))
	if m.Max <= m.Min {
		return EncodePayload(p), true
	}
	return EncodePayload(m.Min + (m.Max-m.Min)*p/100), true
}

// Clamp bounds v to the declared range when one is declared.
func (m *Mapping) Clamp(v float64) float64 {
	if m.Max <= m.Min {
		return v
	}
	return math.Max(m.Min, math.Min(m.Max, v))
}

// EncodePayload converts a number to the 32-bit event payload. Negative
// values are sent in two's complement.
func EncodePayload(v float64) uint32 {
	r := math.Round(v)
	switch {
	case r < math.MinInt32:
		r = math.MinInt32
	case r > math.MaxUint32:
		r = math.MaxUint32
	}
	if r < 0 {
		return uint32(int32(r))
	}
	return uint32(r)
}

// Registry holds every mapping. It is immutable after BuildRegistry.
type Registry struct {
	mappings map[string]*Mapping
	events   []Target
}

// BuildRegistry constructs mappings from definitions. Conflicts are logged
// and skipped; they never abort the build.
func BuildRegistry(defs []Definition, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default().With("component", "action")
	}
	r := &Registry{mappings: make(map[string]*Mapping)}
	eventIDs := make(map[string]uint32)
	nextEvent := uint32(EventIDOffset)

	for _, def := range defs {
		if def.ID == "" {
			logger.Warn("Skipping action without id", "name", def.Name)
			continue
		}
		if _, dup := r.mappings[def.ID]; dup {
			logger.Warn("Duplicate action id, keeping original", "action", def.ID)
			continue
		}

		m := &Mapping{
			ActionID:    def.ID,
			Category:    def.Category,
			Holdable:    def.Holdable,
			Connector:   def.Connector,
			Feedback:    def.Feedback,
			FeedbackMin: def.FeedbackMin,
			FeedbackMax: def.FeedbackMax,
			ValueIndex:  -1,
			targets:     make(map[string]Target),
		}
		for i, f := range def.Data {
			if f.IsChoice() {
				m.choiceIdx = append(m.choiceIdx, i)
				continue
			}
			if m.ValueIndex >= 0 {
				logger.Warn("Action declares more than one free value, ignoring extra", "action", def.ID, "field", f.ID)
				continue
			}
			m.ValueIndex = i
			m.ValueType = f.Type
			m.Min, m.Max = f.Min, f.Max
		}

		for _, ev := range def.Events {
			var t Target
			switch {
			case ev.Command != "":
				cmd, ok := ParseCommand(ev.Command)
				if !ok {
					logger.Warn("Unknown internal command", "action", def.ID, "command", ev.Command)
					continue
				}
				t = Target{ID: uint32(cmd), Name: ev.Command, Internal: true}
			case ev.SimEvent != "":
				id, ok := eventIDs[ev.SimEvent]
				if !ok {
					nextEvent++
					id = nextEvent
					eventIDs[ev.SimEvent] = id
					r.events = append(r.events, Target{ID: id, Name: ev.SimEvent})
				}
				t = Target{ID: id, Name: ev.SimEvent}
			default:
				logger.Warn("Event mapping without target", "action", def.ID, "values", ev.Values)
				continue
			}

			if len(def.Events) > 1 && len(ev.Values) != len(m.choiceIdx) {
				logger.Warn("Event mapping does not match choice fields", "action", def.ID, "values", ev.Values, "choices", len(m.choiceIdx))
				continue
			}
			key := JoinKey(ev.Values)
			if _, dup := m.targets[key]; dup {
				logger.Warn("Duplicate action mapping key, keeping original", "action", def.ID, "key", key)
				continue
			}
			m.targets[key] = t
		}

		if len(m.targets) == 0 {
			logger.Warn("Action has no usable events, skipping", "action", def.ID)
			continue
		}
		if len(m.targets) == 1 {
			for _, t := range m.targets {
				single := t
				m.single = &single
			}
		}
		r.mappings[def.ID] = m
	}
	return r
}

// Mapping returns the mapping of an action.
func (r *Registry) Mapping(actionID string) (*Mapping, bool) {
	m, ok := r.mappings[actionID]
	return m, ok
}

// Resolve maps an action and its data tuple to exactly one target.
func (r *Registry) Resolve(actionID string, data []string) (Target, error) {
	m, ok := r.mappings[actionID]
	if !ok {
		return Target{}, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	return m.Resolve(data)
}

// Events returns every simulator event in id order.
func (r *Registry) Events() []Target {
	return append([]Target(nil), r.events...)
}

// Len returns the number of resolvable actions.
func (r *Registry) Len() int { return len(r.mappings) }

// ActionIDs returns all action ids sorted.
func (r *Registry) ActionIDs() []string {
	ids := make([]string, 0, len(r.mappings))
	for id := range r.mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
