package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/marketsim/internal/obs"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/efreitasn/marketsim/internal/transport"
)

type fixedStatus struct{ snap sim.Snapshot }

func (f fixedStatus) Snapshot() sim.Snapshot { return f.snap }

// testEnv bundles the router and the hub behind it.
type testEnv struct {
	router  http.Handler
	hub     *transport.Hub
	metrics *obs.Metrics
}

func newTestEnv(t *testing.T, commandBuffer int) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := obs.NewMetrics()
	hub := transport.NewHub(transport.HubConfig{CommandBuffer: commandBuffer, SubscriberBuffer: 8}, logger, metrics)
	t.Cleanup(hub.Close)
	status := fixedStatus{snap: sim.Snapshot{RunID: "run-1", State: sim.StateRunning, Scenario: "normal", Tick: 40, Price: 100.5}}
	return &testEnv{
		router:  NewRouter(status, hub, metrics.Handler(), logger),
		hub:     hub,
		metrics: metrics,
	}
}

func (env *testEnv) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) postCommand(t *testing.T, line string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(submitCommandRequest{Command: line}); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	return env.do(t, http.MethodPost, "/commands", "application/json", buf.String())
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, 4)
	rr := env.do(t, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("GET /healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, 4)
	rr := env.do(t, http.MethodGet, "/status", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	var raw map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["run_id"] != "run-1" || raw["state"] != "running" || raw["tick"] != 40.0 || raw["last_price"] != 100.5 {
		t.Errorf("body = %v", raw)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 4)
	env.metrics.IncDropped()
	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "marketsim_broadcast_dropped_total 1") {
		t.Errorf("GET /metrics = %d", rr.Code)
	}
}

func TestSubmitCommand(t *testing.T) {
	env := newTestEnv(t, 4)
	rr := env.postCommand(t, "  ORDER 0 100 101.5  ")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp submitCommandResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Command != "ORDER 0 100 101.5" || resp.Status != "queued" {
		t.Errorf("resp = %+v", resp)
	}
	line, ok := env.hub.Poll()
	if !ok || line != "ORDER 0 100 101.5" {
		t.Errorf("queued line = %q, %v", line, ok)
	}
}

func TestSubmitCommand_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantError   string
	}{
		{"wrong content type", "text/plain", `{"command":"PAUSE"}`, http.StatusBadRequest, "invalid_request"},
		{"bad json", "application/json", `{"command":}`, http.StatusBadRequest, "invalid_request"},
		{"unknown verb", "application/json", `{"command":"JUMP 1"}`, http.StatusBadRequest, "unknown_verb"},
		{"malformed", "application/json", `{"command":"ORDER 0 x 100"}`, http.StatusBadRequest, "malformed_command"},
		{"empty", "application/json", `{"command":""}`, http.StatusBadRequest, "malformed_command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 4)
			rr := env.do(t, http.MethodPost, "/commands", tt.contentType, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status code = %d, want %d", rr.Code, tt.wantStatus)
			}
			if resp := decodeError(t, rr); resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if _, ok := env.hub.Poll(); ok {
				t.Error("rejected command was queued")
			}
		})
	}
}

func TestSubmitCommand_QueueFull(t *testing.T) {
	env := newTestEnv(t, 1)
	if rr := env.postCommand(t, "PAUSE"); rr.Code != http.StatusAccepted {
		t.Fatalf("first command = %d", rr.Code)
	}
	rr := env.postCommand(t, "RESUME")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status code = %d, want 503", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Error != "command_queue_full" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestStreamThroughRouter(t *testing.T) {
	env := newTestEnv(t, 4)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial through logging middleware: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	env.hub.Publish("DATA 100.000000 10")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "DATA 100.000000 10" {
		t.Errorf("message = %q", msg)
	}
}
