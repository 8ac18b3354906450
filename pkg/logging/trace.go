package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceEnabled atomic.Bool

// EnableTrace switches trace logs on or off. Init sets it from the config.
func EnableTrace(on bool) { traceEnabled.Store(on) }

// TraceEnabled reports whether trace logs are emitted.
func TraceEnabled() bool { return traceEnabled.Load() }

// Trace logs a message at DEBUG level, but only if tracing is enabled.
// The dispatch loop uses it for per-tick details.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceEnabled.Load() {
		logger.Debug(msg, args...)
	}
}
