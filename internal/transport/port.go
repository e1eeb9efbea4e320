// Package transport carries wire lines between the simulation and the
// relay. The simulation sees two ports: a command Source it polls without
// blocking, and a fire-and-forget broadcast Publisher.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by Next once the source has shut down.
	ErrClosed = errors.New("transport_closed")
	// ErrQueueFull is returned when the command queue has no room.
	ErrQueueFull = errors.New("command_queue_full")
)

// Source delivers inbound command lines.
type Source interface {
	// Poll returns the next pending line without blocking.
	Poll() (string, bool)
	// Next blocks until a line arrives, ctx is done or the source closes.
	Next(ctx context.Context) (string, error)
}

// Publisher broadcasts outbound lines. Publish must never block.
type Publisher interface {
	Publish(line string)
}
