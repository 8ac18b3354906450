// Package probe runs the startup checks that decide whether the bridge can
// start at all.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"simbridge/pkg/store"
)

// DefaultTimeout bounds one check when the probe sets none.
const DefaultTimeout = 5 * time.Second

// CheckFunc returns nil when the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check.
type Probe struct {
	Name  string
	Check CheckFunc
	// Critical failures stop the bridge from starting.
	Critical bool
	Timeout  time.Duration
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes in order.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))
	for i, p := range probes {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := p.Check(checkCtx)
		cancel()
		results[i] = Result{Probe: p, Error: err, Duration: time.Since(start)}
	}
	return results
}

// AnalyzeResults logs every result and joins the critical failures.
func AnalyzeResults(logger *slog.Logger, results []Result) error {
	if logger == nil {
		logger = slog.Default()
	}
	var critical []error
	for _, r := range results {
		if r.Error == nil {
			logger.Debug("Startup check passed", "check", r.Probe.Name, "duration", r.Duration.Round(time.Millisecond))
			continue
		}
		if r.Probe.Critical {
			logger.Error("Startup check failed", "check", r.Probe.Name, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			logger.Warn("Startup check failed", "check", r.Probe.Name, "error", r.Error)
		}
	}
	return errors.Join(critical...)
}

const storeProbeKey = "probe.startup"

// StoreRoundTrip writes, reads back and deletes a marker key.
func StoreRoundTrip(st store.StateStore) CheckFunc {
	return func(ctx context.Context) error {
		want := strconv.FormatInt(time.Now().UnixNano(), 10)
		if err := st.SetState(ctx, storeProbeKey, want); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		got, ok := st.GetState(ctx, storeProbeKey)
		if !ok || got != want {
			return fmt.Errorf("read back %q, want %q", got, want)
		}
		return st.DeleteState(ctx, storeProbeKey)
	}
}

// NotEmpty fails when a loaded table has no entries.
func NotEmpty(what string, count func() int) CheckFunc {
	return func(context.Context) error {
		if count() == 0 {
			return fmt.Errorf("no %s loaded", what)
		}
		return nil
	}
}
