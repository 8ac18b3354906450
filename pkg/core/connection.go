package core

import (
	"context"
	"errors"
	"fmt"

	"simbridge/pkg/logging"
	"simbridge/pkg/sim"
	"simbridge/pkg/simvar"
)

// wantsReconnect reports whether the reconnect timer should try again.
func (s *Service) wantsReconnect() bool {
	return s.autoReconnect.Load() && !s.userDisconnected && s.State() != sim.StateConnected
}

// tryConnect makes one connection attempt. On failure the fixed backoff
// timer is armed when auto-reconnect is on.
func (s *Service) tryConnect(ctx context.Context) {
	if s.State() == sim.StateConnected {
		return
	}
	s.setState(sim.StateConnecting)
	s.pushStatus()

	if err := s.client.Connect(ctx); err != nil {
		s.setError(err)
		s.setState(sim.StateDisconnected)
		if s.wantsReconnect() {
			s.logger.Warn("Simulator connection failed, retrying", "error", err, "retry_in", s.Settings().RetryInterval)
			if !s.reconnect.Enabled() {
				s.reconnect.Start()
			}
		} else {
			s.logger.Warn("Simulator connection failed", "error", err)
		}
		s.pushStatus()
		return
	}

	s.connCtx, s.connCancel = context.WithCancel(ctx)
	s.reconnect.Stop()
	s.setState(sim.StateConnected)

	events, vars := s.registerWithSimulator()
	s.poll.SetInterval(s.Settings().PollInterval)
	s.poll.Start()

	s.logger.Info("Connected to simulator", "events", events, "variables", vars)
	s.pushStatus()
	s.pushAllValues()
}

// registerWithSimulator maps every external event and defines every
// variable for the new session.
func (s *Service) registerWithSimulator() (events, vars int) {
	for _, t := range s.actions.Events() {
		if err := s.client.MapEvent(t.ID, t.Name); err != nil {
			s.logger.Warn("Failed to map simulator event", "event", t.Name, "id", t.ID, "error", err)
			continue
		}
		events++
	}

	for _, v := range s.vars.All() {
		def := v.Def()
		if err := s.client.DefineVariable(def); err != nil {
			if errors.Is(err, sim.ErrUnsupported) {
				s.logger.Warn("Variable kind not supported by simulator", "key", v.Key, "kind", string(def.Kind))
			} else {
				s.logger.Warn("Failed to define variable", "key", v.Key, "error", err)
			}
			continue
		}
		vars++
		if period, ok := v.Period.Native(); ok {
			if err := s.client.SubscribeValue(def.ID, period); err != nil {
				s.logger.Warn("Failed to subscribe variable", "key", v.Key, "error", err)
			}
		}
	}
	return events, vars
}

// disconnect tears the session down. user marks a disconnect the user asked
// for, which suppresses automatic reconnects until the next Connect.
func (s *Service) disconnect(reason string, user bool) {
	if user {
		s.userDisconnected = true
	}
	if s.connCancel != nil {
		s.connCancel()
		s.connCancel = nil
	}
	s.connCtx = context.Background()
	s.poll.Stop()
	s.disposeRepeats()
	s.vars.ClearPending()
	if err := s.client.Disconnect(); err != nil {
		s.logger.Debug("Simulator disconnect reported an error", "error", err)
	}

	wasConnected := s.State() == sim.StateConnected
	s.setState(sim.StateDisconnected)
	if s.wantsReconnect() {
		s.reconnect.Start()
	} else {
		s.reconnect.Stop()
	}
	if wasConnected {
		s.logger.Info("Disconnected from simulator", "reason", reason)
	}
	s.pushStatus()
}

// pollVariables requests every due, non-pending polled variable and ages
// out requests that were never answered.
func (s *Service) pollVariables() {
	requested := 0
	for _, v := range s.vars.PolledSubset() {
		if v.PendingTimeout() {
			s.logger.Debug("Variable request timed out", "key", v.Key)
		}
		if !v.NeedsRequest() {
			continue
		}
		if err := s.client.RequestValue(uint32(v.ID())); err != nil {
			logging.Trace(s.logger, "Variable request failed", "key", v.Key, "error", err)
			continue
		}
		v.SetPending(true)
		requested++
	}
	if requested > 0 {
		logging.Trace(s.logger, "Polled variables", "count", requested)
	}
}

// reloadStates resets every variable to its default, pushes the defaults
// and asks the simulator for fresh values.
func (s *Service) reloadStates() {
	all := s.vars.All()
	for _, v := range all {
		v.ResetValue()
	}
	s.pushAllValues()
	if s.State() != sim.StateConnected {
		return
	}
	for _, v := range all {
		if v.NeedsScheduledPoll() {
			continue
		}
		if err := s.client.RequestValue(uint32(v.ID())); err == nil {
			v.SetPending(true)
		}
	}
	s.logger.Info("Reloaded variable states", "count", len(all))
}

func (s *Service) handleValue(id uint32, raw any) {
	v, changed, err := s.vars.ApplyUpdate(simvar.ID(id), raw)
	if err != nil {
		s.logger.Debug("Dropped simulator value", "id", id, "error", err)
		return
	}
	if !changed {
		return
	}
	s.pushValue(v)
	s.pushFeedback(v)
}

func (s *Service) handleOpen(appName string) {
	s.logger.Info("Simulator session opened", "simulator", appName)
}

func (s *Service) handleException(code, sendID uint32) {
	s.setError(fmt.Errorf("simulator exception %d (send id %d)", code, sendID))
	s.logger.Warn("Simulator rejected a request", "code", code, "send_id", sendID)
}

// disposeRepeats stops and forgets every held-button timer.
func (s *Service) disposeRepeats() {
	for key, r := range s.repeats {
		r.timer.Stop()
		delete(s.repeats, key)
	}
	s.held.Store(0)
}
