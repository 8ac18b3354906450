// Package mocksim provides an in-process simulator for development on
// machines without SimConnect and for engine tests.
package mocksim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"simbridge/pkg/sim"
)

// Config controls the mock simulator.
type Config struct {
	// AppName is reported to OnOpen.
	AppName string
	// Values seeds variables by simulator name.
	Values map[string]any
	// FailConnects makes the first n Connect calls fail.
	FailConnects int
	// Animate moves unseeded real variables along a slow sine wave.
	Animate bool
}

// Transmit is one recorded event transmission.
type Transmit struct {
	ID   uint32
	Name string
	Data uint32
}

// MockClient implements sim.Client. Calls are serialized by a mutex so
// tests may inspect it from another goroutine.
type MockClient struct {
	mu        sync.Mutex
	cfg       Config
	handlers  sim.Handlers
	connected bool
	opened    bool
	quit      bool
	failLeft  int
	start     time.Time
	now       func() time.Time

	defs      map[uint32]sim.VariableDef
	values    map[string]any
	subs      map[uint32]sim.Period
	queue     []uint32
	events    map[uint32]string
	requests  map[uint32]int
	transmits []Transmit
	connects  int
}

// NewClient creates a disconnected mock simulator.
func NewClient(cfg Config) *MockClient {
	if cfg.AppName == "" {
		cfg.AppName = "Mock Simulator"
	}
	m := &MockClient{
		cfg:      cfg,
		failLeft: cfg.FailConnects,
		now:      time.Now,
		values:   make(map[string]any),
	}
	for k, v := range cfg.Values {
		m.values[k] = v
	}
	m.reset()
	return m
}

func (m *MockClient) reset() {
	m.defs = make(map[uint32]sim.VariableDef)
	m.subs = make(map[uint32]sim.Period)
	m.events = make(map[uint32]string)
	m.requests = make(map[uint32]int)
	m.queue = nil
}

// Connect opens a session unless a configured failure is pending.
func (m *MockClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	if m.failLeft > 0 {
		m.failLeft--
		return fmt.Errorf("mock connect refused (%d more)", m.failLeft)
	}
	m.reset()
	m.connected = true
	m.opened = false
	m.quit = false
	m.start = m.now()
	return nil
}

// Disconnect closes the session.
func (m *MockClient) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.reset()
	return nil
}

// Connected reports whether a session is open.
func (m *MockClient) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetHandlers installs message callbacks.
func (m *MockClient) SetHandlers(h sim.Handlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = h
}

// DefineVariable registers a variable for the session.
func (m *MockClient) DefineVariable(def sim.VariableDef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return sim.ErrNotConnected
	}
	m.defs[def.ID] = def
	return nil
}

// RequestValue queues one value delivery for the next Dispatch.
func (m *MockClient) RequestValue(id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return sim.ErrNotConnected
	}
	if _, ok := m.defs[id]; !ok {
		return fmt.Errorf("request for undefined variable %d", id)
	}
	m.requests[id]++
	m.queue = append(m.queue, id)
	return nil
}

// SubscribeValue delivers the variable on every Dispatch until the period
// is PeriodNever. PeriodOnce behaves like RequestValue.
func (m *MockClient) SubscribeValue(id uint32, period sim.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return sim.ErrNotConnected
	}
	if _, ok := m.defs[id]; !ok {
		return fmt.Errorf("subscription for undefined variable %d", id)
	}
	switch period {
	case sim.PeriodNever:
		delete(m.subs, id)
	case sim.PeriodOnce:
		m.queue = append(m.queue, id)
	default:
		m.subs[id] = period
	}
	return nil
}

// MapEvent binds an event id to a simulator event name.
func (m *MockClient) MapEvent(id uint32, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return sim.ErrNotConnected
	}
	m.events[id] = name
	return nil
}

// TransmitEvent records a transmission of a mapped event.
func (m *MockClient) TransmitEvent(id, data uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return sim.ErrNotConnected
	}
	name, ok := m.events[id]
	if !ok {
		return fmt.Errorf("transmit of unmapped event %d", id)
	}
	m.transmits = append(m.transmits, Transmit{ID: id, Name: name, Data: data})
	return nil
}

// Dispatch delivers the open message once, then queued requests and active
// subscriptions. Callbacks run without the mock's lock held.
func (m *MockClient) Dispatch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return sim.ErrNotConnected
	}
	h := m.handlers
	var calls []func()

	if !m.opened {
		m.opened = true
		if h.OnOpen != nil {
			name := m.cfg.AppName
			calls = append(calls, func() { h.OnOpen(name) })
		}
	}

	ids := m.queue
	m.queue = nil
	subIDs := make([]uint32, 0, len(m.subs))
	for id := range m.subs {
		subIDs = append(subIDs, id)
	}
	sort.Slice(subIDs, func(i, j int) bool { return subIDs[i] < subIDs[j] })
	ids = append(ids, subIDs...)

	if h.OnValue != nil {
		for _, id := range ids {
			def, ok := m.defs[id]
			if !ok {
				continue
			}
			raw := m.rawValue(def)
			calls = append(calls, func() { h.OnValue(id, raw) })
		}
	}

	if m.quit {
		m.connected = false
		m.reset()
		if h.OnQuit != nil {
			calls = append(calls, h.OnQuit)
		}
	}
	m.mu.Unlock()

	for _, c := range calls {
		c()
	}
	return nil
}

// rawValue converts the stored value to the wire type of def. Caller holds
// the lock.
func (m *MockClient) rawValue(def sim.VariableDef) any {
	v, ok := m.values[def.Name]
	if !ok && m.cfg.Animate && def.DataType == sim.DataFloat64 {
		elapsed := m.now().Sub(m.start).Seconds()
		v = 50 + 50*math.Sin(elapsed/10+float64(def.ID))
	}
	f := toFloat(v)
	switch def.DataType {
	case sim.DataString:
		if s, ok := v.(string); ok {
			return s
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	case sim.DataInt32:
		return int32(f)
	case sim.DataInt64:
		return int64(f)
	default:
		return f
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}
	return 0
}

// SetValue changes a variable as seen by the simulator.
func (m *MockClient) SetValue(name string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = v
}

// Quit makes the next Dispatch report a simulator shutdown.
func (m *MockClient) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quit = true
}

// Requests returns how many one-shot requests a variable received in the
// current session.
func (m *MockClient) Requests(id uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id]
}

// TotalRequests returns all one-shot requests in the current session.
func (m *MockClient) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.requests {
		n += c
	}
	return n
}

// Transmits returns every transmission since creation.
func (m *MockClient) Transmits() []Transmit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Transmit(nil), m.transmits...)
}

// Defined returns the variables defined in the current session.
func (m *MockClient) Defined() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.defs)
}

// Subscribed returns the native period of a subscription.
func (m *MockClient) Subscribed(id uint32) (sim.Period, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.subs[id]
	return p, ok
}

// MappedEvents returns the number of mapped events in the current session.
func (m *MockClient) MappedEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Connects returns the number of Connect attempts.
func (m *MockClient) Connects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connects
}

var _ sim.Client = (*MockClient)(nil)
