package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"simbridge/pkg/action"
	"simbridge/pkg/core"
	"simbridge/pkg/simvar"
)

// Engine is the part of the sync engine the API reads and drives.
// *core.Service implements it.
type Engine interface {
	Status() core.Status
	Variables() []simvar.Snapshot
	Variable(key string) (simvar.Snapshot, bool)
	Fire(actionID string, data []string) error
	Command(cmd action.Command, data []string) error
}

var _ Engine = (*core.Service)(nil)

// StatusHandler serves read-only engine state.
type StatusHandler struct {
	eng Engine
}

func NewStatusHandler(eng Engine) *StatusHandler {
	return &StatusHandler{eng: eng}
}

func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Status())
}

func (h *StatusHandler) HandleVariables(w http.ResponseWriter, r *http.Request) {
	vars := h.eng.Variables()
	if vars == nil {
		vars = []simvar.Snapshot{}
	}
	writeJSON(w, http.StatusOK, vars)
}

func (h *StatusHandler) HandleVariable(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	v, ok := h.eng.Variable(key)
	if !ok {
		http.Error(w, "variable not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
