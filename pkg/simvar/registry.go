// Package simvar holds the typed, change-filtered cache of simulator
// variables and the registry that indexes them.
package simvar

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrDuplicateKey is returned when a key is already registered.
	ErrDuplicateKey = errors.New("duplicate variable key")
	// ErrDuplicateID is returned when a preset id is already registered.
	ErrDuplicateID = errors.New("duplicate variable id")
	// ErrUnknownVariable is returned for ids that are not registered.
	ErrUnknownVariable = errors.New("unknown variable")
)

// Registry owns all variables. Every index is updated under one write lock
// so readers never observe a variable in some indices but not others.
type Registry struct {
	mu         sync.RWMutex
	byID       map[ID]*Variable
	byKey      map[string]*Variable
	byName     map[string][]*Variable
	byCategory map[string][]*Variable
	polled     map[ID]*Variable

	nextID  atomic.Uint32
	clock   func() time.Time
	decimal string
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now for every variable registered afterwards.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithLocale sets the language whose decimal separator formatted reals use.
func WithLocale(tag language.Tag) Option {
	return func(r *Registry) { r.decimal = decimalSeparator(tag) }
}

// decimalSeparator asks the locale printer for the mark between the integer
// and fraction digits of a value too small to be grouped.
func decimalSeparator(tag language.Tag) string {
	s := message.NewPrinter(tag).Sprintf("%.1f", 1.5)
	sep := strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
	if sep == "" {
		return "."
	}
	return sep
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byID:       make(map[ID]*Variable),
		byKey:      make(map[string]*Variable),
		byName:     make(map[string][]*Variable),
		byCategory: make(map[string][]*Variable),
		polled:     make(map[ID]*Variable),
		clock:      time.Now,
		decimal:    ".",
		logger:     slog.Default().With("component", "simvar"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register assigns an id to v if it has none and inserts it into every
// index. A duplicate key keeps the original registration, and so does a
// preset id that is already in use.
func (r *Registry) Register(v *Variable) (ID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[v.Key]; ok {
		r.logger.Warn("Duplicate variable key, keeping original", "key", v.Key, "id", existing.id)
		return existing.id, fmt.Errorf("%w: %s", ErrDuplicateKey, v.Key)
	}

	v.mu.Lock()
	if v.id == 0 {
		v.id = ID(r.nextID.Add(1))
		for r.byID[v.id] != nil {
			v.id = ID(r.nextID.Add(1))
		}
	} else if existing, ok := r.byID[v.id]; ok {
		id := v.id
		v.mu.Unlock()
		r.logger.Warn("Variable id already in use", "key", v.Key, "id", id, "owner", existing.Key)
		return 0, fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	v.clock = r.clock
	v.decimal = r.decimal
	id := v.id
	v.mu.Unlock()

	r.byID[id] = v
	r.byKey[v.Key] = v
	r.byName[v.SimVarName] = append(r.byName[v.SimVarName], v)
	r.byCategory[v.Category] = append(r.byCategory[v.Category], v)
	if v.NeedsScheduledPoll() {
		r.polled[id] = v
	}
	return id, nil
}

// Remove drops the variable from every index. Its id is never reused.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	delete(r.byKey, v.Key)
	delete(r.polled, id)
	r.byName[v.SimVarName] = without(r.byName[v.SimVarName], v)
	if len(r.byName[v.SimVarName]) == 0 {
		delete(r.byName, v.SimVarName)
	}
	r.byCategory[v.Category] = without(r.byCategory[v.Category], v)
	if len(r.byCategory[v.Category]) == 0 {
		delete(r.byCategory, v.Category)
	}
	return true
}

func without(list []*Variable, v *Variable) []*Variable {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func (r *Registry) Get(id ID) (*Variable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	return v, ok
}

func (r *Registry) ByKey(key string) (*Variable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byKey[key]
	return v, ok
}

// ByName returns every variable reading the given simulator variable.
func (r *Registry) ByName(name string) []*Variable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Variable(nil), r.byName[name]...)
}

func (r *Registry) ByCategory(category string) []*Variable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Variable(nil), r.byCategory[category]...)
}

// All returns every variable ordered by id.
func (r *Registry) All() []*Variable {
	r.mu.RLock()
	out := make([]*Variable, 0, len(r.byID))
	for _, v := range r.byID {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sortByID(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// PolledSubset returns the variables whose refresh is scheduled by the
// engine, ordered by id.
func (r *Registry) PolledSubset() []*Variable {
	r.mu.RLock()
	out := make([]*Variable, 0, len(r.polled))
	for _, v := range r.polled {
		out = append(out, v)
	}
	r.mu.RUnlock()
	sortByID(out)
	return out
}

// ApplyUpdate routes a raw value to the variable with the given id.
func (r *Registry) ApplyUpdate(id ID, raw any) (*Variable, bool, error) {
	v, ok := r.Get(id)
	if !ok {
		return nil, false, fmt.Errorf("%w: %d", ErrUnknownVariable, id)
	}
	changed, err := v.Update(raw)
	return v, changed, err
}

// ClearPending drops every outstanding request flag, e.g. after a
// disconnect.
func (r *Registry) ClearPending() {
	for _, v := range r.All() {
		v.SetPending(false)
	}
}

// Snapshot returns views of every variable ordered by id.
func (r *Registry) Snapshot() []Snapshot {
	all := r.All()
	out := make([]Snapshot, 0, len(all))
	for _, v := range all {
		out = append(out, v.Snapshot())
	}
	return out
}

func sortByID(list []*Variable) {
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
}
