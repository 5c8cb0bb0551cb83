package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RexQian/wcf-gateway/internal/attachment"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/media"
	"github.com/RexQian/wcf-gateway/internal/wcf"
	"github.com/RexQian/wcf-gateway/internal/wcf/wcftest"
)

// fakeSource lets tests push captured messages.
type fakeSource struct {
	mu       sync.Mutex
	handlers []wcf.MessageHandler
}

func (f *fakeSource) OnMessage(h wcf.MessageHandler) {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
}

func (f *fakeSource) emit(msg wcf.Message) {
	f.mu.Lock()
	handlers := append([]wcf.MessageHandler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

type testEnv struct {
	srv     *Server
	router  http.Handler
	fake    *wcftest.Fake
	source  *fakeSource
	staging string
}

// testServer creates a Server over a scriptable fake backend. Retrieval
// polls do not sleep.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	log := logging.Discard()
	fake := &wcftest.Fake{}
	guard := wcf.NewGuard(fake)
	staging := t.TempDir()
	source := &fakeSource{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger: log,
		Guard:  guard,
		Retriever: attachment.New(guard,
			attachment.WithLogger(log),
			attachment.WithSleep(func(context.Context, time.Duration) error { return nil }),
		),
		Stager:        media.NewStager(config.MediaConfig{StagingDir: staging}, nil),
		Messages:      source,
		Backend:       config.BackendSimulator,
		BackendOnline: func() bool { return true },
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)
	srv.relayMessages()

	return &testEnv{srv: srv, router: srv.buildRouter(), fake: fake, source: source, staging: staging}
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	guard := wcf.NewGuard(&wcftest.Fake{})
	stager := media.NewStager(config.MediaConfig{StagingDir: t.TempDir()}, nil)

	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Guard: guard, Stager: stager}},
		{"no guard", Deps{Logger: logging.Discard(), Stager: stager}},
		{"no stager", Deps{Logger: logging.Discard(), Guard: guard}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() should fail")
			}
		})
	}

	srv, err := New(Deps{Logger: logging.Discard(), Guard: guard, Stager: stager})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if srv.retriever == nil {
		t.Error("default retriever not created")
	}
}

func TestStartClose(t *testing.T) {
	env := testServer(t)

	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := env.srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// ─── Health & Metrics ──────────────────────────────────────────────

func TestHealth(t *testing.T) {
	env := testServer(t)
	w := env.do(http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" || resp["version"] != "test" || resp["backend"] != "simulator" || resp["backend_online"] != true {
		t.Errorf("health = %v", resp)
	}
}

func TestMetrics_CountsBackendCalls(t *testing.T) {
	env := testServer(t)
	env.do(http.MethodGet, "/islogin", "")
	env.do(http.MethodGet, "/islogin", "")

	w := env.do(http.MethodGet, "/metrics", "")
	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Version != "test" || m.Backend.Mode != "simulator" {
		t.Errorf("metrics = %+v", m)
	}
	if m.Backend.Calls.Calls != 2 || len(m.Backend.Calls.Ops) != 1 || m.Backend.Calls.Ops[0].Op != wcf.OpIsLogin {
		t.Errorf("backend calls = %+v", m.Backend.Calls)
	}
	if m.MQTT != nil {
		t.Errorf("mqtt metrics without a client = %+v", m.MQTT)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	env := testServer(t)
	w := env.do(http.MethodGet, "/health", "")
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	env := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/text", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestRecovery(t *testing.T) {
	env := testServer(t)
	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	env := testServer(t)
	if w := env.do(http.MethodGet, "/nonexistent/path/here", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func testClient(hub *Hub, buffer int) *WSClient {
	c := &WSClient{hub: hub, send: make(chan []byte, buffer)}
	hub.Register(c)
	return c
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := testHub(t)
	client := testClient(hub, wsSendBufferSize)
	hub.Subscribe(client, EventMessageReceived)

	hub.Broadcast(EventMessageReceived, wcf.Message{ID: 1, Content: "hi"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != EventMessageReceived {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)
	client := testClient(hub, wsSendBufferSize)
	hub.Subscribe(client, EventMessageReceived)
	hub.Unsubscribe(client, EventMessageReceived)

	hub.Broadcast(EventMessageReceived, wcf.Message{ID: 1})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	default:
	}
}

func TestHub_FullQueueDrops(t *testing.T) {
	hub := testHub(t)
	client := testClient(hub, 1)
	hub.Subscribe(client, EventMessageReceived)

	hub.Broadcast(EventMessageReceived, wcf.Message{ID: 1})
	hub.Broadcast(EventMessageReceived, wcf.Message{ID: 2})

	if got := hub.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)
	client := testClient(hub, 1)
	hub.Subscribe(client, EventMessageReceived)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}
	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
	if _, open := <-client.send; open {
		t.Error("send channel should be closed after unregister")
	}

	// Broadcasting to a departed subscriber must not panic.
	hub.Broadcast(EventMessageReceived, wcf.Message{ID: 3})
}

// ─── WebSocket Relay ───────────────────────────────────────────────

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(env.router)
	t.Cleanup(ts.Close)

	ws, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck // Test cleanup
	return ws
}

func readWS(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	//nolint:errcheck // Test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_RelaysCapturedMessages(t *testing.T) {
	env := testServer(t)
	ws := dialWS(t, env)

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{EventMessageReceived}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if resp := readWS(t, ws); resp.Type != WSTypeResponse || resp.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", resp)
	}

	env.source.emit(wcf.Message{ID: 9, Sender: "wxid_a", Content: "hello"})

	event := readWS(t, ws)
	if event.Type != WSTypeEvent || event.EventType != EventMessageReceived {
		t.Fatalf("event = %+v", event)
	}
	payload, _ := event.Payload.(map[string]any)
	if payload["content"] != "hello" || payload["sender"] != "wxid_a" {
		t.Errorf("payload = %v", event.Payload)
	}
}

func TestWebSocket_RejectsUnknownChannel(t *testing.T) {
	env := testServer(t)
	ws := dialWS(t, env)

	if err := ws.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-2",
		Payload: WSSubscribePayload{Channels: []string{"contact.updated"}},
	}); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	if resp := readWS(t, ws); resp.Type != WSTypeError || resp.ID != "sub-2" {
		t.Errorf("response = %+v, want error", resp)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	env := testServer(t)
	ws := dialWS(t, env)

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if resp := readWS(t, ws); resp.Type != WSTypePong || resp.ID != "p" {
		t.Errorf("response = %+v, want pong", resp)
	}
}
