// Package connector tracks live control-surface sliders, debounces user
// movement against simulator feedback and indexes connectors by the
// variable they display.
package connector

import (
	"hash/fnv"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const shardCount = 32

type shard struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	// byTarget holds instance keys for feedback targets hashed to this shard.
	byTarget map[string]map[string]*Instance
}

// Tracker is safe for concurrent use. Each key lives in one shard; there is
// no lock over the whole map.
type Tracker struct {
	shards   [shardCount]*shard
	pluginID string
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now for settle timeouts.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPluginID sets the plugin whose "pc_<id>_" prefix connector ids carry.
func WithPluginID(id string) Option {
	return func(t *Tracker) { t.pluginID = id }
}

// WithLogger sets the tracker logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker returns an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:    time.Now,
		logger: slog.Default().With("component", "connector"),
	}
	for _, opt := range opts {
		opt(t)
	}
	for i := range t.shards {
		t.shards[i] = &shard{
			instances: make(map[string]*Instance),
			byTarget:  make(map[string]map[string]*Instance),
		}
	}
	return t
}

// Suffix strips the plugin prefix from a surface connector id
// ("pc_plugin_Action_Id" becomes "Action_Id"). With an empty pluginID the
// plugin is taken to run up to the first '_' after "pc_". Ids without the
// prefix are returned unchanged.
func Suffix(connectorID, pluginID string) string {
	if pluginID != "" {
		if rest, ok := strings.CutPrefix(connectorID, "pc_"+pluginID+"_"); ok {
			return rest
		}
		return connectorID
	}
	rest, ok := strings.CutPrefix(connectorID, "pc_")
	if !ok {
		return connectorID
	}
	if _, action, found := strings.Cut(rest, "_"); found {
		return action
	}
	return connectorID
}

// ActionID returns the action a connector id refers to.
func (t *Tracker) ActionID(connectorID string) string {
	return Suffix(connectorID, t.pluginID)
}

// Key builds the mapping key of a connector and its discrete data.
func (t *Tracker) Key(connectorID string, data []string) string {
	var b strings.Builder
	b.WriteString(t.ActionID(connectorID))
	for _, d := range data {
		b.WriteByte('|')
		b.WriteString(strings.TrimSpace(d))
	}
	return b.String()
}

func targetKey(category string, varID uint32) string {
	return category + "/" + strconv.FormatUint(uint64(varID), 10)
}

func (t *Tracker) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return t.shards[h.Sum32()%shardCount]
}

func (t *Tracker) getOrCreate(connectorID string, data []string) *Instance {
	key := t.Key(connectorID, data)
	s := t.shardFor(key)

	s.mu.RLock()
	inst, ok := s.instances[key]
	s.mu.RUnlock()
	if ok {
		return inst
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok = s.instances[key]; ok {
		return inst
	}
	inst = &Instance{
		Key:         key,
		ConnectorID: connectorID,
		Data:        append([]string(nil), data...),
		lastValue:   -1,
		now:         t.now,
	}
	s.instances[key] = inst
	return inst
}

// UpdateValue records a user value for a connector, creating the instance
// on first sight. It reports whether the value changed.
func (t *Tracker) UpdateValue(connectorID string, data []string, value int) (*Instance, bool) {
	inst := t.getOrCreate(connectorID, data)
	return inst, inst.update(value)
}

// Get returns the instance for a key.
func (t *Tracker) Get(key string) (*Instance, bool) {
	s := t.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[key]
	return inst, ok
}

// SetShortID stores the surface short id of a connector. An empty id gets a
// generated one so feedback pushes can still be correlated.
func (t *Tracker) SetShortID(connectorID string, data []string, shortID string) *Instance {
	if shortID == "" {
		shortID = uuid.NewString()
		t.logger.Debug("Generated connector short id", "connector", connectorID, "short_id", shortID)
	}
	inst := t.getOrCreate(connectorID, data)
	inst.mu.Lock()
	inst.shortID = shortID
	inst.mu.Unlock()
	return inst
}

// SetFeedback binds an instance to the variable it displays, replacing any
// earlier binding.
func (t *Tracker) SetFeedback(key string, fb Feedback) bool {
	inst, ok := t.Get(key)
	if !ok {
		return false
	}

	// The instance lock is held across both index updates so concurrent
	// rebinds of one instance cannot leave a stale entry behind.
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if old := inst.feedback; old != nil {
		t.unindex(old.Target(), key)
	}
	inst.feedback = &fb

	ts := t.shardFor(fb.Target())
	ts.mu.Lock()
	set, ok := ts.byTarget[fb.Target()]
	if !ok {
		set = make(map[string]*Instance)
		ts.byTarget[fb.Target()] = set
	}
	set[key] = inst
	ts.mu.Unlock()
	return true
}

func (t *Tracker) unindex(target, key string) {
	ts := t.shardFor(target)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if set, ok := ts.byTarget[target]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(ts.byTarget, target)
		}
	}
}

// IndexByFeedbackTarget returns every instance displaying a variable.
func (t *Tracker) IndexByFeedbackTarget(category string, varID uint32) []*Instance {
	target := targetKey(category, varID)
	ts := t.shardFor(target)
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	set := ts.byTarget[target]
	out := make([]*Instance, 0, len(set))
	for _, inst := range set {
		out = append(out, inst)
	}
	return out
}

// Remove drops an instance and its feedback binding.
func (t *Tracker) Remove(key string) bool {
	s := t.shardFor(key)
	s.mu.Lock()
	inst, ok := s.instances[key]
	delete(s.instances, key)
	s.mu.Unlock()
	if !ok {
		return false
	}
	inst.mu.Lock()
	if inst.feedback != nil {
		t.unindex(inst.feedback.Target(), key)
		inst.feedback = nil
	}
	inst.mu.Unlock()
	return true
}

// Len returns the number of tracked instances.
func (t *Tracker) Len() int {
	n := 0
	for _, s := range t.shards {
		s.mu.RLock()
		n += len(s.instances)
		s.mu.RUnlock()
	}
	return n
}
