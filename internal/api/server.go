package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"simbridge/pkg/version"
)

// NewServer creates and configures the HTTP status server.
// shutdown is called after the response to POST /api/shutdown is flushed.
func NewServer(addr string, eng Engine, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health and version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Engine status
	st := NewStatusHandler(eng)
	mux.HandleFunc("GET /api/status", st.HandleStatus)
	mux.HandleFunc("GET /api/variables", st.HandleVariables)
	mux.HandleFunc("GET /api/variables/{key}", st.HandleVariable)

	// 3. Actions and connection control
	act := NewActionHandler(eng)
	mux.HandleFunc("POST /api/actions", act.HandleFire)
	mux.HandleFunc("POST /api/connection", act.HandleConnection)

	// 4. Logs
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		if shutdown == nil {
			return
		}
		// Let the response flush first.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
