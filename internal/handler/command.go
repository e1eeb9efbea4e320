package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/marketsim/internal/transport"
	"github.com/efreitasn/marketsim/internal/wire"
)

// Hub is the command and broadcast transport as seen by the router.
type Hub interface {
	Enqueue(line string) error
	ServeCommands(w http.ResponseWriter, r *http.Request)
	ServeStream(w http.ResponseWriter, r *http.Request)
}

// CommandHandler accepts single commands over plain HTTP.
type CommandHandler struct {
	hub Hub
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(hub Hub) *CommandHandler {
	return &CommandHandler{hub: hub}
}

// submitCommandRequest is the JSON request body for POST /commands.
type submitCommandRequest struct {
	Command string `json:"command"`
}

type submitCommandResponse struct {
	Command string `json:"command"`
	Status  string `json:"status"`
}

// Submit handles POST /commands. The line is validated here so the caller
// learns about a bad command; the simulation parses it again when it
// drains the queue.
func (h *CommandHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitCommandRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	cmd, err := wire.ParseCommand(req.Command)
	switch {
	case errors.Is(err, wire.ErrUnknownVerb):
		WriteError(w, http.StatusBadRequest, wire.ErrUnknownVerb.Error(), err.Error())
		return
	case err != nil:
		WriteError(w, http.StatusBadRequest, wire.ErrMalformed.Error(), err.Error())
		return
	}

	line := cmd.String()
	switch err := h.hub.Enqueue(line); {
	case errors.Is(err, transport.ErrQueueFull):
		WriteError(w, http.StatusServiceUnavailable, transport.ErrQueueFull.Error(), "command queue is full, retry later")
		return
	case err != nil:
		WriteError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, submitCommandResponse{Command: line, Status: "queued"})
}
