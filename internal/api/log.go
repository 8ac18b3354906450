package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"simbridge/pkg/logging"
)

// handleLatestLog returns the last captured log line in compact form.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	line := logging.FormatLine(logging.GlobalLogCapture.GetLastLine())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"log": line}); err != nil {
		slog.Error("Failed to write log response", "error", err)
	}
}
