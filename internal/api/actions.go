package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"simbridge/pkg/action"
	"simbridge/pkg/core"
)

// ActionHandler fires actions and engine commands on behalf of HTTP clients.
type ActionHandler struct {
	eng Engine
}

func NewActionHandler(eng Engine) *ActionHandler {
	return &ActionHandler{eng: eng}
}

type FireRequest struct {
	Action string   `json:"action"`
	Data   []string `json:"data"`
}

type ConnectionRequest struct {
	Command string   `json:"command"`
	Data    []string `json:"data,omitempty"`
}

// connectionCommands accepts short lowercase names next to the command names.
var connectionCommands = map[string]action.Command{
	"toggle":         action.CmdToggleConnection,
	"connect":        action.CmdConnect,
	"disconnect":     action.CmdDisconnect,
	"reload":         action.CmdReloadStates,
	"reset":          action.CmdResetConnection,
	"auto_reconnect": action.CmdSetAutoReconnect,
}

func (h *ActionHandler) HandleFire(w http.ResponseWriter, r *http.Request) {
	var req FireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.eng.Fire(req.Action, req.Data); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *ActionHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd, ok := connectionCommands[strings.ToLower(strings.TrimSpace(req.Command))]
	if !ok {
		cmd, ok = action.ParseCommand(req.Command)
	}
	if !ok {
		http.Error(w, "unknown command", http.StatusBadRequest)
		return
	}
	if err := h.eng.Command(cmd, req.Data); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "command": cmd.String()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, action.ErrUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, action.ErrNoMatch), errors.Is(err, action.ErrConversion):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
