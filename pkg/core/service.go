// Package core runs the sync engine: one dispatch goroutine that owns the
// simulator connection, polls variables, transmits actions and schedules
// held-button repeats.
package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"simbridge/pkg/action"
	"simbridge/pkg/connector"
	"simbridge/pkg/logging"
	"simbridge/pkg/sim"
	"simbridge/pkg/simvar"
	"simbridge/pkg/surface"
	"simbridge/pkg/timer"
)

var (
	// ErrQueueFull is returned when the work queue cannot take another job.
	ErrQueueFull = errors.New("work queue full")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("service already running")
)

// DefaultQueueSize is the work queue capacity when none is configured.
const DefaultQueueSize = 256

// Preferences persists runtime toggles across restarts.
type Preferences interface {
	AutoReconnect(ctx context.Context) bool
	SetAutoReconnect(ctx context.Context, on bool) error
	SetPollInterval(ctx context.Context, d time.Duration) error
}

// LineSource yields the most recent log line when it changed.
type LineSource interface {
	Since(seen uint64) (line string, version uint64, ok bool)
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for every timer the service creates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithQueueSize sets the work queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithLastLog publishes new lines from src as the LastLog state.
func WithLastLog(src LineSource) Option {
	return func(s *Service) { s.lastLog = src }
}

// WithShutdown registers the function called when the surface asks the
// plugin to close.
func WithShutdown(fn func()) Option {
	return func(s *Service) { s.onShutdown = fn }
}

// Service is the sync engine. Everything that touches the simulator client
// or a timer runs on the goroutine inside Run.
type Service struct {
	client  sim.Client
	vars    *simvar.Registry
	actions *action.Registry
	conns   *connector.Tracker
	pub     surface.Publisher
	prefs   Preferences
	logger  *slog.Logger
	now     func() time.Time

	queueSize  int
	work       chan func()
	lastLog    LineSource
	onShutdown func()

	mu          sync.RWMutex
	settings    Settings
	state       sim.State
	lastErr     string
	connectedAt time.Time
	surfaceVal  string

	autoReconnect atomic.Bool
	running       atomic.Bool
	held          atomic.Int32

	// Owned by the dispatch goroutine.
	runCtx           context.Context
	poll             *timer.Timer
	reconnect        *timer.Timer
	repeats          map[string]*repeat
	connCtx          context.Context
	connCancel       context.CancelFunc
	userDisconnected bool
	quitRequested    bool
	lastLogSeen      uint64
	tickInterval     time.Duration
}

// repeat is the timer of one held button.
type repeat struct {
	timer *timer.Timer
	ev    surface.ActionEvent
}

// NewService wires the engine. pub may be nil when no surface is attached;
// prefs may be nil when nothing is persisted.
func NewService(client sim.Client, vars *simvar.Registry, actions *action.Registry, conns *connector.Tracker,
	pub surface.Publisher, prefs Preferences, settings Settings, opts ...Option,
) *Service {
	if pub == nil {
		pub = surface.Discard{}
	}
	s := &Service{
		client:     client,
		vars:       vars,
		actions:    actions,
		conns:      conns,
		pub:        pub,
		prefs:      prefs,
		logger:     slog.Default().With("component", "core"),
		now:        time.Now,
		queueSize:  DefaultQueueSize,
		settings:   settings,
		state:      sim.StateDisconnected,
		surfaceVal: sim.StateDisconnected.SurfaceValue(),
		repeats:    make(map[string]*repeat),
	}
	for _, o := range opts {
		o(s)
	}
	s.work = make(chan func(), s.queueSize)
	s.poll = timer.New(settings.PollInterval, timer.WithClock(s.now))
	s.reconnect = timer.New(settings.RetryInterval, timer.WithClock(s.now))
	s.autoReconnect.Store(settings.AutoReconnect)
	s.tickInterval = settings.TickInterval
	s.runCtx = context.Background()
	s.connCtx = context.Background()
	return s
}

// Run installs the simulator handlers and runs the dispatch loop until ctx
// is cancelled. The connection is closed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Settings().Validate(); err != nil {
		return err
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.start(ctx)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			s.tick(ctx)
			if d := s.Settings().TickInterval; d != s.tickInterval {
				s.tickInterval = d
				ticker.Reset(d)
			}
		}
	}
}

// start installs the simulator handlers, publishes the initial state and
// makes the first connection attempt.
func (s *Service) start(ctx context.Context) {
	s.runCtx = ctx
	s.client.SetHandlers(sim.Handlers{
		OnValue:     s.handleValue,
		OnOpen:      s.handleOpen,
		OnQuit:      func() { s.quitRequested = true },
		OnException: s.handleException,
	})

	if s.prefs != nil {
		s.autoReconnect.Store(s.prefs.AutoReconnect(ctx))
	}
	s.pushAutoReconnect()
	s.pushStatus()
	s.logger.Info("Sync engine started", "tick", s.tickInterval, "auto_reconnect", s.autoReconnect.Load())

	if s.autoReconnect.Load() {
		s.tryConnect(ctx)
	}
}

// tick runs one pass of the dispatch loop.
func (s *Service) tick(ctx context.Context) {
	s.drain()

	if s.State() == sim.StateConnected {
		if err := s.client.Dispatch(s.connCtx); err != nil {
			s.logger.Warn("Simulator dispatch failed", "error", err)
			s.setError(err)
			s.disconnect("dispatch failed", false)
		} else if s.quitRequested {
			s.logger.Info("Simulator closed the session")
			s.disconnect("simulator quit", false)
		}
		s.quitRequested = false
	}

	if s.poll.Tick() {
		s.pollVariables()
	}

	for key, r := range s.repeats {
		if r.timer.Tick() {
			logging.Trace(s.logger, "Held action repeat", "key", key)
			s.fire(r.ev)
		}
	}

	if s.reconnect.Tick() && s.wantsReconnect() {
		s.tryConnect(ctx)
	}

	s.pushLastLog()
}

// drain runs every queued job without blocking.
func (s *Service) drain() {
	for {
		select {
		case job := <-s.work:
			job()
		default:
			return
		}
	}
}

// enqueue hands a job to the dispatch goroutine. A full queue drops it.
func (s *Service) enqueue(job func()) error {
	select {
	case s.work <- job:
		return nil
	default:
		s.logger.Warn("Work queue full, dropping job", "capacity", cap(s.work))
		return ErrQueueFull
	}
}

// shutdown releases everything the dispatch goroutine owns.
func (s *Service) shutdown() {
	s.drain()
	s.disposeRepeats()
	s.reconnect.Stop()
	if s.State() != sim.StateDisconnected {
		s.disconnect("shutdown", true)
	}
	s.logger.Info("Sync engine stopped")
}

// ApplySettings replaces the settings. Timer changes take effect on the
// dispatch goroutine.
func (s *Service) ApplySettings(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = next
	s.mu.Unlock()
	return s.enqueue(func() { s.applyTimers(next) })
}

func (s *Service) applyTimers(next Settings) {
	if s.poll.Interval() != next.PollInterval {
		s.poll.SetInterval(next.PollInterval)
	}
	if s.reconnect.Interval() != next.RetryInterval {
		s.reconnect.SetInterval(next.RetryInterval)
	}
	for _, r := range s.repeats {
		if r.timer.Interval() != next.HeldActionRate {
			r.timer.SetInterval(next.HeldActionRate)
		}
	}
	s.logger.Debug("Settings applied",
		"poll", next.PollInterval, "held_delay", next.HeldActionDelay,
		"held_rate", next.HeldActionRate, "fire_on_down", next.FireOnDown)
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// State returns the connection state.
func (s *Service) State() sim.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(next sim.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == next {
		return
	}
	if !s.state.CanTransition(next) {
		s.logger.Debug("Unexpected state transition", "from", s.state, "to", next)
	}
	s.state = next
	if next == sim.StateConnected {
		s.connectedAt = s.now()
		s.lastErr = ""
	}
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err.Error()
}
