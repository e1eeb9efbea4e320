package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the status, metrics, command and relay endpoints.
func NewRouter(
	status StatusSource,
	hub Hub,
	metrics http.Handler,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(accessLog(logger))
	r.Use(requireJSON)

	statusH := NewStatusHandler(status)
	commandH := NewCommandHandler(hub)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/status", statusH.Get)
	r.Method(http.MethodGet, "/metrics", metrics)

	// Command injection outside a WebSocket session.
	r.Post("/commands", commandH.Submit)

	// Relay endpoints.
	r.Get("/ws/commands", hub.ServeCommands)
	r.Get("/ws/stream", hub.ServeStream)

	return r
}

// accessLog logs one line per request. Probe traffic (/healthz, /metrics)
// is logged at debug so scrapers don't drown the command log.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				level = slog.LevelDebug
			}
			logger.LogAttrs(r.Context(), level, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.written),
				slog.Duration("elapsed", time.Since(began)),
			)
		})
	}
}

// responseRecorder remembers the status and body size a handler produced.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
	sent    bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if !w.sent {
		w.status = code
		w.sent = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.sent = true
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// Hijack lets WebSocket upgrades through the recorder. An upgraded
// connection is logged as 101.
func (w *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.sent = true
	return h.Hijack()
}

// requireJSON rejects POST bodies that are not declared as JSON. The only
// POST route is /commands, so this runs before the command is parsed.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			WriteError(w, http.StatusBadRequest, "invalid_request",
				"Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}
