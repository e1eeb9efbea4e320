package transport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/marketsim/internal/obs"
)

const writeWait = 5 * time.Second

// HubConfig sizes the hub queues.
type HubConfig struct {
	CommandBuffer    int
	SubscriberBuffer int
}

// Hub is the WebSocket transport. Relays write commands to ServeCommands
// and receive the broadcast from ServeStream. Each stream subscriber has
// its own bounded queue; a subscriber that falls behind loses messages.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *obs.Metrics

	commands chan string
	done     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	subs map[*subscriber]struct{}
	wg   sync.WaitGroup
}

type subscriber struct {
	conn *websocket.Conn
	send chan string
}

// NewHub creates a Hub. metrics may be nil.
func NewHub(cfg HubConfig, logger *slog.Logger, metrics *obs.Metrics) *Hub {
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:   logger,
		metrics:  metrics,
		commands: make(chan string, cfg.CommandBuffer),
		done:     make(chan struct{}),
		subs:     make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Poll() (string, bool) {
	select {
	case line := <-h.commands:
		return line, true
	default:
		return "", false
	}
}

func (h *Hub) Next(ctx context.Context) (string, error) {
	select {
	case line := <-h.commands:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return "", ErrClosed
	}
}

// Enqueue adds a command line from outside a WebSocket session.
func (h *Hub) Enqueue(line string) error {
	select {
	case <-h.done:
		return ErrClosed
	default:
	}
	select {
	case h.commands <- line:
		return nil
	default:
		return ErrQueueFull
	}
}

// Publish queues line for every subscriber, dropping it for those whose
// queue is full.
func (h *Hub) Publish(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- line:
		default:
			h.metrics.IncDropped()
		}
	}
}

// Subscribers returns the number of connected stream clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeCommands upgrades the request and reads command lines until the
// peer disconnects. A text message may carry several newline separated
// commands.
func (h *Hub) ServeCommands(w http.ResponseWriter, r *http.Request) {
	if !h.enter() {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("command upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-h.done:
			conn.Close()
		case <-finished:
		}
	}()

	h.logger.Info("command client connected", slog.String("remote", r.RemoteAddr))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Info("command client disconnected", slog.String("remote", r.RemoteAddr))
			return
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			select {
			case h.commands <- line:
			case <-h.done:
				return
			}
		}
	}
}

// ServeStream upgrades the request and forwards every published line to
// the peer until either side goes away.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request) {
	if !h.enter() {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("stream upgrade failed", slog.String("error", err.Error()))
		return
	}
	s := &subscriber{conn: conn, send: make(chan string, h.cfg.SubscriberBuffer)}
	h.add(s)
	defer h.remove(s)

	h.logger.Info("stream subscriber connected", slog.String("remote", r.RemoteAddr))

	// Reader: only there to notice the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-gone:
			return
		case <-h.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
				time.Now().Add(writeWait))
			return
		}
	}
}

// enter registers a connection handler with Close. It fails once the hub
// is closed; the check and the Add share h.mu with Close.
func (h *Hub) enter() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.wg.Add(1)
	return true
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.metrics.SetSubscribers(n)
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	s.conn.Close()
	h.metrics.SetSubscribers(n)
	h.logger.Info("stream subscriber disconnected")
}

// Close disconnects every client and unblocks Next. It waits for the
// connection handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	h.once.Do(func() { close(h.done) })
	h.mu.Unlock()
	h.wg.Wait()
}
