package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/mqtt"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// DefaultCallTimeout bounds a call when Options.CallTimeout is zero.
const DefaultCallTimeout = 10 * time.Second

// Transport is the MQTT surface the client needs. *mqtt.Client satisfies it.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Options configures a Client.
type Options struct {
	Transport   Transport
	Topics      mqtt.Topics
	QoS         byte
	CallTimeout time.Duration
	Logger      *logging.Logger
}

// Client is a wcf.Client whose session lives in a bridge process.
//
// Thread Safety:
//   - Safe for concurrent use; requests are correlated by id. The gateway
//     still wraps it in a wcf.Guard because the session behind the bridge
//     is single-threaded.
type Client struct {
	transport Transport
	topics    mqtt.Topics
	qos       byte
	timeout   time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool

	handlersMu sync.RWMutex
	handlers   []wcf.MessageHandler

	online atomic.Bool
}

var (
	_ wcf.Client        = (*Client)(nil)
	_ wcf.MessageSource = (*Client)(nil)
)

// New creates a client. Call Start before making calls.
func New(opts Options) (*Client, error) {
	if opts.Transport == nil {
		return nil, fmt.Errorf("remote: transport is required")
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		transport: opts.Transport,
		topics:    opts.Topics,
		qos:       opts.QoS,
		timeout:   timeout,
		logger:    logger.With("component", "remote"),
		now:       time.Now,
		pending:   make(map[string]chan Response),
	}, nil
}

// Start subscribes to the response, event and health topics.
func (c *Client) Start() error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{c.topics.AllResponses(), c.handleResponse},
		{c.topics.MessageEvent(), c.handleEvent},
		{c.topics.Health(), c.handleHealth},
	}
	for _, s := range subs {
		if err := c.transport.Subscribe(s.topic, c.qos, s.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", s.topic, err)
		}
	}
	c.logger.Info("remote backend started", "responses", c.topics.AllResponses())
	return nil
}

// Close fails every pending call with ErrClosed. Later calls fail too.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	return nil
}

// Online reports the last status the bridge published on its health topic.
func (c *Client) Online() bool {
	return c.online.Load()
}

// PendingCount returns the number of calls awaiting a response.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// OnMessage registers a handler for messages captured by the bridge.
func (c *Client) OnMessage(handler wcf.MessageHandler) {
	c.handlersMu.Lock()
	c.handlers = append(c.handlers, handler)
	c.handlersMu.Unlock()
}

// ─── Round trip ────────────────────────────────────────────────────

func (c *Client) roundTrip(ctx context.Context, op string, params any) (json.RawMessage, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(Request{ID: id, Op: op, Timestamp: c.now().UTC(), Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	if err := c.transport.Publish(c.topics.Request(op), payload, c.qos, false); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", wcf.ErrBackendUnavailable, op, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if !resp.OK {
			return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, op, c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// call performs one round trip and decodes the result into R.
// A missing or null result decodes to R's zero value.
func call[R any](ctx context.Context, c *Client, op string, params any) (R, error) {
	var out R
	raw, err := c.roundTrip(ctx, op, params)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero R
		return zero, fmt.Errorf("decoding %s result: %w", op, err)
	}
	return out, nil
}

// ─── Inbound ───────────────────────────────────────────────────────

func (c *Client) handleResponse(topic string, payload []byte) error {
	id, ok := c.topics.ResponseID(topic)
	if !ok {
		return fmt.Errorf("unexpected response topic %q", topic)
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decoding response %s: %w", id, err)
	}

	c.mu.Lock()
	ch, waiting := c.pending[id]
	if waiting {
		delete(c.pending, id)
		ch <- resp
	}
	c.mu.Unlock()

	if !waiting {
		// Late answer to a call that already timed out.
		c.logger.Debug("dropping response for unknown request", "id", id)
	}
	return nil
}

func (c *Client) handleEvent(_ string, payload []byte) error {
	var msg wcf.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding message event: %w", err)
	}

	c.handlersMu.RLock()
	handlers := append([]wcf.MessageHandler(nil), c.handlers...)
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (c *Client) handleHealth(_ string, payload []byte) error {
	var h Health
	if err := json.Unmarshal(payload, &h); err != nil {
		return fmt.Errorf("decoding bridge health: %w", err)
	}
	online := h.Status == HealthOnline
	if c.online.Swap(online) != online {
		c.logger.Info("bridge status changed", "status", h.Status)
	}
	return nil
}
