package core

import (
	"strconv"
	"time"

	"simbridge/pkg/sim"
	"simbridge/pkg/simvar"
)

// State ids below the configured prefix.
const (
	StateConnected     = "Plugin.State.Connected"
	StateAutoReconnect = "Plugin.State.AutoReconnect"
	StateLastLog       = "Plugin.State.LastLog"
)

// Status is a point-in-time view of the engine for reporting.
type Status struct {
	State         sim.State `json:"state"`
	Surface       string    `json:"surface_value"`
	AutoReconnect bool      `json:"auto_reconnect"`
	ConnectedAt   time.Time `json:"connected_at,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	Variables     int       `json:"variables"`
	Polled        int       `json:"polled"`
	Actions       int       `json:"actions"`
	Connectors    int       `json:"connectors"`
	HeldActions   int       `json:"held_actions"`
	QueueDepth    int       `json:"queue_depth"`
}

// Status returns the current engine status. Safe from any goroutine.
func (s *Service) Status() Status {
	s.mu.RLock()
	st := Status{
		State:       s.state,
		LastError:   s.lastErr,
		ConnectedAt: s.connectedAt,
		Surface:     s.surfaceVal,
	}
	s.mu.RUnlock()
	if st.State != sim.StateConnected {
		st.ConnectedAt = time.Time{}
	}
	st.AutoReconnect = s.autoReconnect.Load()
	st.Variables = s.vars.Len()
	st.Polled = len(s.vars.PolledSubset())
	st.Actions = s.actions.Len()
	st.Connectors = s.conns.Len()
	st.HeldActions = int(s.held.Load())
	st.QueueDepth = len(s.work)
	return st
}

// Variables returns a snapshot of every variable.
func (s *Service) Variables() []simvar.Snapshot {
	return s.vars.Snapshot()
}

// Variable returns the snapshot of one variable by key.
func (s *Service) Variable(key string) (simvar.Snapshot, bool) {
	v, ok := s.vars.ByKey(key)
	if !ok {
		return simvar.Snapshot{}, false
	}
	return v.Snapshot(), true
}

// statusValue is what the surface shows for the connection: "connecting"
// covers both an attempt in progress and a scheduled retry.
func (s *Service) statusValue(st sim.State) string {
	if st == sim.StateDisconnected && s.autoReconnect.Load() && !s.userDisconnected && s.reconnect.Enabled() {
		return sim.StateConnecting.SurfaceValue()
	}
	return st.SurfaceValue()
}

func (s *Service) stateID(name string) string {
	return s.Settings().StatePrefix + "." + name
}

func (s *Service) pushState(id, value string) {
	if err := s.pub.PushState(id, value); err != nil {
		s.logger.Debug("Failed to push state", "state", id, "error", err)
	}
}

func (s *Service) pushStatus() {
	value := s.statusValue(s.State())
	s.mu.Lock()
	s.surfaceVal = value
	s.mu.Unlock()
	s.pushState(s.stateID(StateConnected), value)
}

func (s *Service) pushAutoReconnect() {
	s.pushState(s.stateID(StateAutoReconnect), strconv.FormatBool(s.autoReconnect.Load()))
}

func (s *Service) pushLastLog() {
	if s.lastLog == nil {
		return
	}
	line, version, ok := s.lastLog.Since(s.lastLogSeen)
	if !ok {
		return
	}
	s.lastLogSeen = version
	s.pushState(s.stateID(StateLastLog), line)
}

func (s *Service) pushValue(v *simvar.Variable) {
	s.pushState(s.stateID(v.Key), v.FormattedValue())
}

func (s *Service) pushAllValues() {
	for _, v := range s.vars.All() {
		s.pushValue(v)
	}
}

// pushFeedback moves every connector displaying v, except those the user
// is still dragging.
func (s *Service) pushFeedback(v *simvar.Variable) {
	value := v.Value().Float()
	for _, inst := range s.conns.IndexByFeedbackTarget(v.Category, uint32(v.ID())) {
		if inst.IsSettling() {
			continue
		}
		shortID := inst.ShortID()
		if shortID == "" {
			continue
		}
		pos, changed := inst.FeedbackValue(value)
		if !changed {
			continue
		}
		if err := s.pub.PushConnectorUpdate(shortID, pos); err != nil {
			s.logger.Debug("Failed to push connector update", "connector", inst.Key, "error", err)
		}
	}
}
