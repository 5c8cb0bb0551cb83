package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// EventMessageReceived is the channel captured messages are broadcast on.
const EventMessageReceived = "message.received"

// wsSendBufferSize is the per-client outbound queue length. A client whose
// queue is full misses events rather than stalling the relay.
const wsSendBufferSize = 256

// knownChannels are the channels a client may subscribe to.
var knownChannels = map[string]struct{}{
	EventMessageReceived: {},
}

// WSMessage is the frame exchanged with WebSocket clients in both
// directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe frames.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// Hub relays events to subscribed WebSocket clients.
//
// The hub owns every client's send channel: it is written and closed only
// while mu is held, so a send can never race a close.
type Hub struct {
	logger    *logging.Logger
	readLimit int64
	pingEvery time.Duration
	writeWait time.Duration

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	subs    map[string]map[*WSClient]struct{}

	dropped atomic.Uint64
}

// WSClient is one connected relay client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Keepalive defaults used when the configuration leaves them at zero.
const (
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// NewHub creates a hub. Keepalive timings come from cfg, in seconds.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	pingEvery := time.Duration(cfg.PingInterval) * time.Second
	if pingEvery <= 0 {
		pingEvery = defaultPingInterval
	}
	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	if writeWait <= 0 {
		writeWait = defaultPongTimeout
	}
	return &Hub{
		logger:    logger,
		readLimit: int64(cfg.MaxMessageSize),
		pingEvery: pingEvery,
		writeWait: writeWait,
		clients:   make(map[*WSClient]struct{}),
		subs:      make(map[string]map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
		if c.conn != nil {
			c.conn.Close() //nolint:errcheck // Shutting down
		}
	}
}

// Register adds a client with no subscriptions.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client and closes its send channel. Calling it
// more than once is harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		h.dropLocked(c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// dropLocked forgets c everywhere and closes its queue. h.mu must be held.
func (h *Hub) dropLocked(c *WSClient) {
	delete(h.clients, c)
	for ch, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, ch)
		}
	}
	close(c.send)
}

// Subscribe adds channels to c's subscriptions. Unknown clients are ignored.
func (h *Hub) Subscribe(c *WSClient, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, ch := range channels {
		set, ok := h.subs[ch]
		if !ok {
			set = make(map[*WSClient]struct{})
			h.subs[ch] = set
		}
		set[c] = struct{}{}
	}
}

// Unsubscribe removes channels from c's subscriptions.
func (h *Hub) Unsubscribe(c *WSClient, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if set, ok := h.subs[ch]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, ch)
			}
		}
	}
}

// Broadcast sends payload as an event to every subscriber of channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	sent := 0
	for c := range h.subs[channel] {
		if h.enqueueLocked(c, data) {
			sent++
		}
	}
	h.mu.RUnlock()

	if sent > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", sent)
	}
}

// deliver queues a frame for one registered client.
func (h *Hub) deliver(c *WSClient, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.enqueueLocked(c, data)
	}
}

// enqueueLocked queues data without blocking. h.mu must be held, at
// least for reading.
func (h *Hub) enqueueLocked(c *WSClient, data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded because a client's queue
// was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ─── Connections ───────────────────────────────────────────────────

// handleWebSocket upgrades the request and serves a relay client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &WSClient{hub: s.hub, conn: conn, send: make(chan []byte, wsSendBufferSize)}
	s.hub.Register(c)

	go c.writeLoop()
	go c.readLoop()
}

// readLoop handles client frames until the connection fails.
func (c *WSClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // Connection already failing
	}()

	deadline := func() time.Time { return time.Now().Add(c.hub.pingEvery + c.hub.writeWait) }

	c.conn.SetReadLimit(c.hub.readLimit)
	//nolint:errcheck // A failed deadline surfaces on the next read
	c.conn.SetReadDeadline(deadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(deadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Application frames count as liveness too; some browsers never
		// answer protocol pings.
		//nolint:errcheck // A failed deadline surfaces on the next read
		c.conn.SetReadDeadline(deadline())
		c.handleFrame(data)
	}
}

// writeLoop drains the send queue and pings the client periodically.
func (c *WSClient) writeLoop() {
	ticker := time.NewTicker(c.hub.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Writer is done
	}()

	write := func(kind int, data []byte) error {
		//nolint:errcheck // A failed deadline surfaces on the write
		c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // Closing anyway
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

// handleFrame answers one client frame.
func (c *WSClient) handleFrame(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.fail("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)

	case WSTypeSubscribe:
		channels, ok := c.channels(msg)
		if !ok {
			return
		}
		for _, ch := range channels {
			if _, known := knownChannels[ch]; !known {
				c.fail(msg.ID, "unknown channel: "+ch)
				return
			}
		}
		c.hub.Subscribe(c, channels...)
		c.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": channels})

	case WSTypeUnsubscribe:
		channels, ok := c.channels(msg)
		if !ok {
			return
		}
		c.hub.Unsubscribe(c, channels...)
		c.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": channels})

	default:
		c.fail(msg.ID, "unknown message type: "+msg.Type)
	}
}

// channels decodes a subscribe/unsubscribe payload, answering the client
// with an error if it is malformed.
func (c *WSClient) channels(msg WSMessage) ([]string, bool) {
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		c.fail(msg.ID, "invalid payload")
		return nil, false
	}
	var sub WSSubscribePayload
	if err := json.Unmarshal(raw, &sub); err != nil || len(sub.Channels) == 0 {
		c.fail(msg.ID, "payload must list channels")
		return nil, false
	}
	return sub.Channels, true
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.hub.deliver(c, data)
}

func (c *WSClient) fail(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}
