package remote

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/mqtt"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// fakeTransport delivers published requests to an in-process bridge.
type fakeTransport struct {
	mu         sync.Mutex
	handlers   map[string]mqtt.MessageHandler
	published  []published
	publishErr error

	// bridge answers a request; nil means never answer.
	bridge func(req Request) *Response
}

type published struct {
	topic   string
	payload []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	if f.publishErr != nil {
		f.mu.Unlock()
		return f.publishErr
	}
	f.published = append(f.published, published{topic, append([]byte(nil), payload...)})
	bridge := f.bridge
	f.mu.Unlock()

	if bridge == nil {
		return nil
	}
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return err
	}
	resp := bridge(req)
	if resp == nil {
		return nil
	}
	resp.ID = req.ID
	body, _ := json.Marshal(resp)
	go f.deliver("wcf/response/+", "wcf/response/"+req.ID, body)
	return nil
}

func (f *fakeTransport) deliver(sub, topic string, payload []byte) error {
	f.mu.Lock()
	h := f.handlers[sub]
	f.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber")
	}
	return h(topic, payload)
}

func (f *fakeTransport) last() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

func ok(result any) *Response {
	raw, _ := json.Marshal(result)
	return &Response{OK: true, Result: raw}
}

func testClient(t *testing.T, tr *fakeTransport, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Options{
		Transport:   tr,
		Topics:      mqtt.NewTopics("wcf"),
		QoS:         1,
		CallTimeout: timeout,
		Logger:      logging.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { c.Close() }) //nolint:errcheck // Test cleanup
	return c
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestNew_RequiresTransport(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without transport should fail")
	}
}

func TestStart_Subscribes(t *testing.T) {
	tr := newFakeTransport()
	testClient(t, tr, time.Second)

	for _, topic := range []string{"wcf/response/+", "wcf/event/message", "wcf/health"} {
		if _, found := tr.handlers[topic]; !found {
			t.Errorf("missing subscription %q", topic)
		}
	}
}

// ─── Round trip ────────────────────────────────────────────────────

func TestCall_SendText(t *testing.T) {
	tr := newFakeTransport()
	var got Request
	tr.bridge = func(req Request) *Response {
		got = req
		return ok(true)
	}
	c := testClient(t, tr, time.Second)

	sent, err := c.SendText(context.Background(), wcf.TextMsg{Msg: "hi", Receiver: "filehelper"})
	if err != nil || !sent {
		t.Fatalf("SendText() = (%v, %v)", sent, err)
	}
	if tr.last().topic != "wcf/request/send_text" {
		t.Errorf("topic = %q", tr.last().topic)
	}
	if got.Op != wcf.OpSendText || got.ID == "" || got.Timestamp.IsZero() {
		t.Errorf("request = %+v", got)
	}
	if !strings.Contains(string(tr.last().payload), `"params":{"msg":"hi","receiver":"filehelper","aters":""}`) {
		t.Errorf("payload = %s", tr.last().payload)
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", c.PendingCount())
	}
}

func TestCall_ScalarParams(t *testing.T) {
	tests := []struct {
		name  string
		call  func(c *Client) error
		topic string
		want  string
	}{
		{"tables", func(c *Client) error {
			_, err := c.GetTables(context.Background(), "MicroMsg.db")
			return err
		}, "wcf/request/get_tables", `"params":{"db":"MicroMsg.db"}`},
		{"revoke", func(c *Client) error {
			_, err := c.RevokeMsg(context.Background(), 42)
			return err
		}, "wcf/request/revoke_msg", `"params":{"id":42}`},
		{"room members", func(c *Client) error {
			_, err := c.QueryRoomMember(context.Background(), "1@chatroom")
			return err
		}, "wcf/request/query_room_member", `"params":{"roomid":"1@chatroom"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			tr.bridge = func(Request) *Response { return &Response{OK: true} }
			c := testClient(t, tr, time.Second)

			if err := tt.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
			last := tr.last()
			if last.topic != tt.topic || !strings.Contains(string(last.payload), tt.want) {
				t.Errorf("published %s %s", last.topic, last.payload)
			}
		})
	}
}

func TestCall_DecodesResults(t *testing.T) {
	tr := newFakeTransport()
	tr.bridge = func(req Request) *Response {
		switch req.Op {
		case wcf.OpGetMsgTypes:
			return ok(map[int32]string{1: "文字"})
		case wcf.OpQuerySQL:
			return ok([]wcf.DbRow{{Fields: []wcf.DbField{{Type: wcf.FieldBlob, Column: "b", Content: []byte{1, 2}}}}})
		case wcf.OpQueryRoomMember:
			return &Response{OK: true, Result: json.RawMessage("null")}
		}
		return nil
	}
	c := testClient(t, tr, time.Second)
	ctx := context.Background()

	types, err := c.GetMsgTypes(ctx)
	if err != nil || types[1] != "文字" {
		t.Errorf("GetMsgTypes() = (%v, %v)", types, err)
	}

	rows, err := c.QuerySQL(ctx, wcf.DbQuery{DB: "a.db", SQL: "SELECT 1"})
	if err != nil || len(rows) != 1 || string(rows[0].Fields[0].Content) != "\x01\x02" {
		t.Errorf("QuerySQL() = (%+v, %v)", rows, err)
	}

	members, err := c.QueryRoomMember(ctx, "x@chatroom")
	if err != nil || members != nil {
		t.Errorf("QueryRoomMember() = (%v, %v), want (nil, nil)", members, err)
	}
}

func TestCall_RemoteError(t *testing.T) {
	tr := newFakeTransport()
	tr.bridge = func(Request) *Response { return &Response{OK: false, Error: "not logged in"} }
	c := testClient(t, tr, time.Second)

	_, err := c.IsLogin(context.Background())
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("error = %v, want ErrRemote", err)
	}
	if !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("error = %q, want bridge message", err)
	}
}

func TestCall_BadResult(t *testing.T) {
	tr := newFakeTransport()
	tr.bridge = func(Request) *Response { return ok("yes") }
	c := testClient(t, tr, time.Second)

	if _, err := c.IsLogin(context.Background()); err == nil {
		t.Error("expected decode error for a string result into bool")
	}
}

func TestCall_Timeout(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, 20*time.Millisecond)

	_, err := c.IsLogin(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d after timeout", c.PendingCount())
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.IsLogin(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCall_PublishFailure(t *testing.T) {
	tr := newFakeTransport()
	tr.publishErr = mqtt.ErrNotConnected
	c := testClient(t, tr, time.Second)

	_, err := c.IsLogin(context.Background())
	if !errors.Is(err, wcf.ErrBackendUnavailable) || !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("error = %v, want ErrBackendUnavailable wrapping ErrNotConnected", err)
	}
}

func TestClose_FailsPendingCalls(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.IsLogin(context.Background())
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for c.PendingCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Close() //nolint:errcheck // never fails

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("error = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not released by Close")
	}

	if _, err := c.IsLogin(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("call after Close error = %v, want ErrClosed", err)
	}
}

// ─── Inbound ───────────────────────────────────────────────────────

func TestHandleResponse(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, time.Second)

	if err := c.handleResponse("wcf/response/unknown", []byte(`{"ok":true}`)); err != nil {
		t.Errorf("late response error = %v, want nil", err)
	}
	if err := c.handleResponse("wcf/response/x", []byte(`{`)); err == nil {
		t.Error("malformed response accepted")
	}
	if err := c.handleResponse("wcf/other", []byte(`{}`)); err == nil {
		t.Error("foreign topic accepted")
	}
}

func TestEvents_Forwarded(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, time.Second)

	var got []wcf.Message
	c.OnMessage(func(m wcf.Message) { got = append(got, m) })

	payload := []byte(`{"id":7,"type":1,"is_group":true,"roomid":"1@chatroom","sender":"wxid_a","content":"hello"}`)
	if err := tr.deliver("wcf/event/message", "wcf/event/message", payload); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 || got[0].Content != "hello" || !got[0].IsGroup {
		t.Errorf("handler got %+v", got)
	}

	if err := tr.deliver("wcf/event/message", "wcf/event/message", []byte("nope")); err == nil {
		t.Error("malformed event accepted")
	}
}

func TestHealth_Tracked(t *testing.T) {
	tr := newFakeTransport()
	c := testClient(t, tr, time.Second)

	if c.Online() {
		t.Error("Online() before any health message")
	}
	for _, tt := range []struct {
		payload string
		want    bool
	}{
		{`{"status":"online"}`, true},
		{`{"status":"offline"}`, false},
		{`{"status":"online","timestamp":"2026-01-02T03:04:05Z"}`, true},
	} {
		if err := tr.deliver("wcf/health", "wcf/health", []byte(tt.payload)); err != nil {
			t.Fatalf("deliver(%s) error = %v", tt.payload, err)
		}
		if c.Online() != tt.want {
			t.Errorf("after %s Online() = %v, want %v", tt.payload, c.Online(), tt.want)
		}
	}
}

// ─── Guard integration ─────────────────────────────────────────────

func TestGuardedRemote(t *testing.T) {
	tr := newFakeTransport()
	tr.bridge = func(Request) *Response { return ok("wxid_self") }
	c := testClient(t, tr, time.Second)
	guard := wcf.NewGuard(c)

	wxid, err := wcf.Call(context.Background(), guard, wcf.OpGetSelfWxid,
		func(ctx context.Context, cl wcf.Client) (string, error) { return cl.GetSelfWxid(ctx) })
	if err != nil || wxid != "wxid_self" {
		t.Errorf("Call() = (%q, %v)", wxid, err)
	}
}
