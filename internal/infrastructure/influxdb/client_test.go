package influxdb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/write") {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
		f.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "test-token",
		Org:           "wcf",
		Bucket:        "gateway",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// ─── Connection ────────────────────────────────────────────────────

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(testConfig("http://127.0.0.1:59999"))
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_FakeServer(t *testing.T) {
	srv := httptest.NewServer(&fakeInflux{})
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	srv := httptest.NewServer(&fakeInflux{})
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	// Observing after close is a silent no-op.
	client.ObserveCall("is_login", time.Millisecond, nil)
	client.Flush()
}

// ─── Points ────────────────────────────────────────────────────────

func TestBackendCallPoint(t *testing.T) {
	ts := time.Unix(0, 1700000000000000000)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, "wcf_backend_calls,op=send_text,outcome=ok duration_ms=12.5,failed=0i 1700000000000000000"},
		{"error", errors.New("rpc down"), "wcf_backend_calls,op=send_text,outcome=error duration_ms=12.5,failed=1i 1700000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := backendCallPoint("send_text", 12500*time.Microsecond, tt.err, ts)
			got := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
			if got != tt.want {
				t.Errorf("line = %q\nwant   %q", got, tt.want)
			}
		})
	}
}

func TestRetrievalPoint(t *testing.T) {
	ts := time.Unix(0, 1700000000000000000)
	p := retrievalPoint("image", 3, 2*time.Second, nil, ts)
	got := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	want := "wcf_attachment_retrievals,kind=image,outcome=ok duration_ms=2000,polls=3i 1700000000000000000"
	if got != want {
		t.Errorf("line = %q\nwant   %q", got, want)
	}
}

func TestObserveCall_Writes(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.ObserveCall("query_sql", 3*time.Millisecond, nil)
	client.ObserveRetrieval("file", 0, time.Millisecond, errors.New("download failed"))
	client.Flush()

	lines := fake.written()
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "wcf_backend_calls,op=query_sql,outcome=ok ") {
		t.Errorf("line[0] = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "wcf_attachment_retrievals,kind=file,outcome=error ") {
		t.Errorf("line[1] = %q", lines[1])
	}
}
