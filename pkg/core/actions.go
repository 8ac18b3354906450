package core

import (
	"context"
	"strings"

	"simbridge/pkg/action"
	"simbridge/pkg/connector"
	"simbridge/pkg/sim"
	"simbridge/pkg/surface"
	"simbridge/pkg/timer"
)

var _ surface.Handler = (*Service)(nil)

// OnAction resolves a surface action and queues it for the dispatch loop.
func (s *Service) OnAction(ev surface.ActionEvent) {
	m, ok := s.actions.Mapping(ev.ActionID)
	if !ok {
		s.logger.Warn("Unknown action", "action", ev.ActionID)
		return
	}
	if _, err := m.Resolve(ev.Data); err != nil {
		s.logger.Warn("Action did not resolve", "action", ev.ActionID, "data", ev.Data, "error", err)
		return
	}

	switch {
	case ev.Press == surface.Up:
		if m.Holdable {
			_ = s.enqueue(func() { s.release(ev.HoldKey()) })
		}
	case ev.Press == surface.Down && m.Holdable:
		_ = s.enqueue(func() { s.hold(ev) })
	default:
		_ = s.enqueue(func() { s.fire(ev) })
	}
}

// Fire resolves an action, checks its free value and queues a single
// transmission. It is the entry point for callers other than the surface.
func (s *Service) Fire(actionID string, data []string) error {
	target, err := s.actions.Resolve(actionID, data)
	if err != nil {
		return err
	}
	if !target.Internal {
		m, _ := s.actions.Mapping(actionID)
		if _, _, err := m.Payload(data); err != nil {
			return err
		}
	}
	ev := surface.ActionEvent{ActionID: actionID, Data: data}
	return s.enqueue(func() { s.fire(ev) })
}

// Command queues an engine command, e.g. from the status API.
func (s *Service) Command(cmd action.Command, data []string) error {
	if cmd == action.CmdNone {
		return action.ErrUnknownAction
	}
	return s.enqueue(func() { s.runCommand(cmd, data) })
}

// fire resolves and transmits once. Runs on the dispatch goroutine.
func (s *Service) fire(ev surface.ActionEvent) {
	m, ok := s.actions.Mapping(ev.ActionID)
	if !ok {
		return
	}
	target, err := m.Resolve(ev.Data)
	if err != nil {
		s.logger.Warn("Action did not resolve", "action", ev.ActionID, "error", err)
		return
	}
	if target.Internal {
		s.runCommand(target.Command(), ev.Data)
		return
	}

	payload, _, err := m.Payload(ev.Data)
	if err != nil {
		s.logger.Warn("Dropping action with invalid value", "action", ev.ActionID, "error", err)
		return
	}
	s.transmit(target, payload)
}

func (s *Service) transmit(target action.Target, payload uint32) {
	if s.State() != sim.StateConnected {
		s.logger.Debug("Not connected, dropping event", "event", target.Name)
		return
	}
	if err := s.client.TransmitEvent(target.ID, payload); err != nil {
		s.logger.Warn("Failed to transmit event", "event", target.Name, "error", err)
		return
	}
	s.logger.Debug("Transmitted event", "event", target.Name, "data", payload)
}

// hold starts the repeat timer of a held button.
func (s *Service) hold(ev surface.ActionEvent) {
	key := ev.HoldKey()
	if _, exists := s.repeats[key]; exists {
		return
	}
	set := s.Settings()
	if set.FireOnDown {
		s.fire(ev)
	}
	t := timer.New(set.HeldActionRate, timer.WithClock(s.now))
	t.StartAfter(set.HeldActionDelay)
	s.repeats[key] = &repeat{timer: t, ev: ev}
	s.held.Store(int32(len(s.repeats)))
}

// release disposes the repeat timer of a held button.
func (s *Service) release(key string) {
	r, ok := s.repeats[key]
	if !ok {
		return
	}
	r.timer.Stop()
	delete(s.repeats, key)
	s.held.Store(int32(len(s.repeats)))
}

// OnConnector applies a slider movement and transmits it when the value
// changed.
func (s *Service) OnConnector(ev surface.ConnectorEvent) {
	actionID := s.conns.ActionID(ev.ConnectorID)
	m, ok := s.actions.Mapping(actionID)
	if !ok {
		s.logger.Warn("Unknown connector", "connector", ev.ConnectorID)
		return
	}
	inst, changed := s.conns.UpdateValue(ev.ConnectorID, ev.Data, ev.Value)
	s.bindFeedback(inst, m)
	if !changed {
		return
	}

	target, err := m.Resolve(ev.Data)
	if err != nil {
		s.logger.Warn("Connector did not resolve", "connector", actionID, "data", ev.Data, "error", err)
		return
	}
	if target.Internal {
		data := ev.Data
		_ = s.enqueue(func() { s.runCommand(target.Command(), data) })
		return
	}
	payload, _ := m.ScaledPayload(ev.Value)
	_ = s.enqueue(func() { s.transmit(target, payload) })
}

// OnShortID records the surface's short id of a connector and pushes its
// current feedback position.
func (s *Service) OnShortID(connectorID string, data []string, shortID string) {
	inst := s.conns.SetShortID(connectorID, data, shortID)
	m, ok := s.actions.Mapping(s.conns.ActionID(connectorID))
	if !ok {
		return
	}
	s.bindFeedback(inst, m)
	if v, ok := s.vars.ByKey(m.Feedback); ok && !v.LastUpdate().IsZero() {
		_ = s.enqueue(func() { s.pushFeedback(v) })
	}
}

// bindFeedback attaches the variable a connector displays on first sight.
func (s *Service) bindFeedback(inst *connector.Instance, m *action.Mapping) {
	if m.Feedback == "" {
		return
	}
	if _, bound := inst.Feedback(); bound {
		return
	}
	v, ok := s.vars.ByKey(m.Feedback)
	if !ok {
		s.logger.Warn("Connector feedback variable not found", "connector", m.ActionID, "variable", m.Feedback)
		return
	}
	s.conns.SetFeedback(inst.Key, connector.Feedback{
		Category: v.Category,
		VarID:    uint32(v.ID()),
		Min:      m.FeedbackMin,
		Max:      m.FeedbackMax,
	})
}

// OnSettings applies plugin settings from the surface and pushes back
// corrected values for the ones that were rejected.
func (s *Service) OnSettings(in surface.Settings) {
	prev := s.Settings()
	next, corrections := ParseSurfaceSettings(in, prev)
	for name, value := range corrections {
		s.logger.Warn("Invalid plugin setting, keeping current value", "setting", name, "value", in[name])
		if err := s.pub.PushSettingUpdate(name, value); err != nil {
			s.logger.Debug("Failed to push setting correction", "setting", name, "error", err)
		}
	}
	if err := s.ApplySettings(next); err != nil {
		s.logger.Warn("Plugin settings rejected", "error", err)
		return
	}
	if next.PollInterval != prev.PollInterval && s.prefs != nil {
		if err := s.prefs.SetPollInterval(context.Background(), next.PollInterval); err != nil {
			s.logger.Warn("Failed to persist poll interval", "error", err)
		}
	}
}

// OnClose handles the surface closing the plugin.
func (s *Service) OnClose() {
	s.logger.Info("Control surface closed the plugin")
	if s.onShutdown != nil {
		s.onShutdown()
	}
}

// runCommand executes an engine command. Runs on the dispatch goroutine.
func (s *Service) runCommand(cmd action.Command, data []string) {
	ctx := s.runCtx
	switch cmd {
	case action.CmdToggleConnection:
		if s.State() == sim.StateConnected || s.reconnect.Enabled() {
			s.reconnect.Stop()
			s.disconnect("user", true)
		} else {
			s.userDisconnected = false
			s.tryConnect(ctx)
		}
	case action.CmdConnect:
		s.userDisconnected = false
		s.tryConnect(ctx)
	case action.CmdDisconnect:
		s.disconnect("user", true)
	case action.CmdReloadStates:
		s.reloadStates()
	case action.CmdResetConnection:
		s.disconnect("reset", false)
		s.userDisconnected = false
		s.tryConnect(ctx)
	case action.CmdSetAutoReconnect:
		s.setAutoReconnect(ctx, autoReconnectMode(data, s.autoReconnect.Load()))
	default:
		s.logger.Warn("Unhandled engine command", "command", cmd)
	}
}

// autoReconnectMode reads On/Off/Toggle from the first data value.
func autoReconnectMode(data []string, current bool) bool {
	if len(data) == 0 {
		return !current
	}
	switch strings.ToLower(strings.TrimSpace(data[0])) {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}
	return !current
}

func (s *Service) setAutoReconnect(ctx context.Context, on bool) {
	s.autoReconnect.Store(on)
	if s.prefs != nil {
		if err := s.prefs.SetAutoReconnect(ctx, on); err != nil {
			s.logger.Warn("Failed to persist auto reconnect", "error", err)
		}
	}
	switch {
	case !on:
		s.reconnect.Stop()
	case s.wantsReconnect() && !s.reconnect.Enabled():
		s.reconnect.StartAfter(0)
	}
	s.logger.Info("Auto reconnect changed", "enabled", on)
	s.pushAutoReconnect()
	s.pushStatus()
}
