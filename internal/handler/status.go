package handler

import (
	"net/http"

	"github.com/efreitasn/marketsim/internal/sim"
)

// StatusSource is anything that can report the current simulation state.
type StatusSource interface {
	Snapshot() sim.Snapshot
}

// StatusHandler serves the simulation snapshot.
type StatusHandler struct {
	status StatusSource
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(status StatusSource) *StatusHandler {
	return &StatusHandler{status: status}
}

// Get handles GET /status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.status.Snapshot())
}
