package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/marketsim/internal/obs"
)

func newTestHub(t *testing.T, cfg HubConfig, metrics *obs.Metrics) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/commands", hub.ServeCommands)
	mux.HandleFunc("/ws/stream", hub.ServeStream)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_CommandsArriveInOrder(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{CommandBuffer: 8, SubscriberBuffer: 8}, nil)
	conn := dial(t, srv, "/ws/commands")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("START 1 2 3 4\nPAUSE\n")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("  RESUME  ")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, want := range []string{"START 1 2 3 4", "PAUSE", "RESUME"} {
		got, err := hub.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, ok := hub.Poll()
	require.False(t, ok)
}

func TestHub_StreamReceivesBroadcast(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{CommandBuffer: 1, SubscriberBuffer: 8}, nil)
	a := dial(t, srv, "/ws/stream")
	b := dial(t, srv, "/ws/stream")
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("DATA 100.000000 0")
	hub.Publish("METRICS 0.02 300")

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		for _, want := range []string{"DATA 100.000000 0", "METRICS 0.02 300"} {
			_, msg, err := conn.ReadMessage()
			require.NoError(t, err)
			require.Equal(t, want, string(msg))
		}
	}

	a.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishDropsForFullQueue(t *testing.T) {
	metrics := obs.NewMetrics()
	hub := NewHub(HubConfig{SubscriberBuffer: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	slow := &subscriber{send: make(chan string, 1)}
	hub.subs[slow] = struct{}{}

	hub.Publish("first")
	hub.Publish("second")

	require.Len(t, slow.send, 1)
	require.Equal(t, "first", <-slow.send)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), "marketsim_broadcast_dropped_total 1")
}

func TestHub_CloseUnblocksNext(t *testing.T) {
	hub := NewHub(HubConfig{CommandBuffer: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	errc := make(chan error, 1)
	go func() {
		_, err := hub.Next(context.Background())
		errc <- err
	}()
	hub.Close()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestHub_NextHonoursContext(t *testing.T) {
	hub := NewHub(HubConfig{CommandBuffer: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hub.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHub_Enqueue(t *testing.T) {
	hub := NewHub(HubConfig{CommandBuffer: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, hub.Enqueue("PAUSE"))
	require.ErrorIs(t, hub.Enqueue("RESUME"), ErrQueueFull)

	line, ok := hub.Poll()
	require.True(t, ok)
	require.Equal(t, "PAUSE", line)

	hub.Close()
	require.ErrorIs(t, hub.Enqueue("STOP"), ErrClosed)
}

func TestHub_RefusesConnectionsAfterClose(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{CommandBuffer: 1, SubscriberBuffer: 1}, nil)
	hub.Close()

	for _, path := range []string{"/ws/commands", "/ws/stream"} {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err, path)
		require.NotNil(t, resp, path)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
		resp.Body.Close()
	}
	require.Zero(t, hub.Subscribers())
}

func TestHub_CloseWhileClientsConnect(t *testing.T) {
	hub, srv := newTestHub(t, HubConfig{CommandBuffer: 1, SubscriberBuffer: 1}, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"

	dialed := make(chan struct{})
	go func() {
		defer close(dialed)
		for i := 0; i < 20; i++ {
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				if resp != nil {
					resp.Body.Close()
				}
				continue
			}
			conn.Close()
		}
	}()
	hub.Close()
	<-dialed

	closed := make(chan struct{})
	go func() {
		hub.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
