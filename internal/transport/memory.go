package transport

import (
	"context"
	"sync"
)

// Memory is an in-process Source and Publisher.
type Memory struct {
	commands chan string
	done     chan struct{}
	once     sync.Once

	mu        sync.Mutex
	published []string
}

// NewMemory creates a Memory whose command queue holds up to buffer lines.
func NewMemory(buffer int) *Memory {
	return &Memory{
		commands: make(chan string, buffer),
		done:     make(chan struct{}),
	}
}

// Push enqueues a command line. It reports false when the queue is full.
func (m *Memory) Push(line string) bool {
	select {
	case m.commands <- line:
		return true
	default:
		return false
	}
}

func (m *Memory) Poll() (string, bool) {
	select {
	case line := <-m.commands:
		return line, true
	default:
		return "", false
	}
}

func (m *Memory) Next(ctx context.Context) (string, error) {
	select {
	case line := <-m.commands:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.done:
		return "", ErrClosed
	}
}

func (m *Memory) Publish(line string) {
	m.mu.Lock()
	m.published = append(m.published, line)
	m.mu.Unlock()
}

// Published returns a copy of every published line in order.
func (m *Memory) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}

// Reset forgets published lines.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.published = nil
	m.mu.Unlock()
}

// Close unblocks pending Next calls.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}
