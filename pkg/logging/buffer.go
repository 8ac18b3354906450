package logging

import (
	"strings"
	"sync"
)

// LogCaptureWriter is a thread-safe writer that stores the last written line.
// Every write bumps a version so pollers can detect new lines cheaply.
type LogCaptureWriter struct {
	mu       sync.RWMutex
	lastLine string
	version  uint64
}

// GlobalLogCapture is the singleton instance for capturing logs.
var GlobalLogCapture = &LogCaptureWriter{}

// Write implements io.Writer. It updates the lastLine field.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastLine = strings.TrimRight(string(p), "\r\n")
	w.version++
	return len(p), nil
}

// GetLastLine returns the most recent log line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastLine
}

// Since returns the last line, compacted by FormatLine, and the current
// version when the version differs from seen.
func (w *LogCaptureWriter) Since(seen uint64) (line string, version uint64, ok bool) {
	w.mu.RLock()
	last, v := w.lastLine, w.version
	w.mu.RUnlock()
	if v == seen {
		return "", seen, false
	}
	return FormatLine(last), v, true
}
