package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rentme-app/internal/app/messaging"
	"rentme-app/internal/domain/chat"
)

const (
	// Time allowed to read the next pong from the server.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to write a frame.
	writeWait = 10 * time.Second

	maxMessageSize = 512 * 1024

	defaultSendBuffer = 256
)

var (
	ErrSendBufferFull = errors.New("ws: send buffer full")
	ErrClosed         = errors.New("ws: connection closed")
	ErrURLRequired    = errors.New("ws: url is required")
)

var defaultBackoff = []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}

// Frame is the JSON envelope of every event on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Config struct {
	URL        string
	Backoff    []time.Duration
	SendBuffer int
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

// Connector dials the real-time server and keeps the connection alive.
type Connector struct {
	url        *url.URL
	backoff    []time.Duration
	sendBuffer int
	dialer     *websocket.Dialer
	logger     *slog.Logger
}

var _ messaging.Connector = (*Connector)(nil)

func NewConnector(cfg Config) (*Connector, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, ErrURLRequired
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("ws: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("ws: unsupported scheme %q", u.Scheme)
	}
	backoff := cfg.Backoff
	if len(backoff) == 0 {
		backoff = defaultBackoff
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		url:        u,
		backoff:    backoff,
		sendBuffer: sendBuffer,
		dialer:     dialer,
		logger:     logger.With("component", "ws"),
	}, nil
}

// Connect starts a client for userID and returns immediately. Dialing, reconnects and
// inbound dispatch run in the background until the returned transport is closed.
func (c *Connector) Connect(ctx context.Context, userID string, h messaging.Handler) (messaging.Transport, error) {
	if h == nil {
		return nil, errors.New("ws: handler is required")
	}
	u := *c.url
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cl := &client{
		url:     u.String(),
		userID:  userID,
		backoff: c.backoff,
		dialer:  c.dialer,
		handler: h,
		logger:  c.logger.With("user_id", userID),
		send:    make(chan []byte, c.sendBuffer),
		closed:  make(chan struct{}),
		cancel:  cancel,
	}
	go cl.run(runCtx)
	return cl, nil
}

type client struct {
	url     string
	userID  string
	backoff []time.Duration
	dialer  *websocket.Dialer
	handler messaging.Handler
	logger  *slog.Logger

	send   chan []byte
	closed chan struct{}
	once   sync.Once
	cancel context.CancelFunc

	mu   sync.Mutex
	conn *websocket.Conn
}

// Emit queues an event for delivery. Frames queued while disconnected are sent after
// the next successful dial.
func (c *client) Emit(_ context.Context, event string, payload any) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", event, err)
	}
	frame, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: encode frame: %w", err)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the client. It does not wait for the background loop to exit.
func (c *client) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.mu.Unlock()
	})
	return nil
}

func (c *client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *client) run(ctx context.Context) {
	attempt := 0
	for !c.isClosed() {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			delay := c.delay(attempt)
			attempt++
			c.logger.Warn("dial failed", "attempt", attempt, "retry_in", delay, "error", err)
			if !c.sleep(delay) {
				return
			}
			continue
		}
		attempt = 0
		c.serve(conn)
		if c.isClosed() {
			return
		}
		if !c.sleep(c.delay(0)) {
			return
		}
	}
}

func (c *client) delay(attempt int) time.Duration {
	if attempt >= len(c.backoff) {
		return c.backoff[len(c.backoff)-1]
	}
	return c.backoff[attempt]
}

func (c *client) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.closed:
		return false
	}
}

// serve runs one established connection until it fails or the client is closed.
func (c *client) serve(conn *websocket.Conn) {
	c.mu.Lock()
	if c.isClosed() {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("socket connected")
	c.handler.OnConnect()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(conn, done)
	}()

	c.readPump(conn)
	close(done)
	<-writerDone

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()

	c.logger.Info("socket disconnected")
	c.handler.OnDisconnect()
}

func (c *client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !c.isClosed() {
				c.logger.Warn("unexpected close", "error", err)
			}
			return
		}
		c.dispatch(message)
	}
}

func (c *client) writePump(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case frame := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Warn("write failed", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-c.closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case <-done:
			return
		}
	}
}

func (c *client) dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Warn("malformed frame", "error", err)
		return
	}
	switch frame.Event {
	case messaging.EventMessageReceived:
		var msg chat.InboundMessage
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.logger.Warn("malformed payload", "event", frame.Event, "error", err)
			return
		}
		c.handler.OnMessageReceived(msg)
	case messaging.EventChatCreated:
		var ch chat.Chat
		if err := json.Unmarshal(frame.Data, &ch); err != nil {
			c.logger.Warn("malformed payload", "event", frame.Event, "error", err)
			return
		}
		c.handler.OnChatCreated(ch)
	case messaging.EventUserOnline, messaging.EventUserOffline:
		userID, err := decodeUserID(frame.Data)
		if err != nil {
			c.logger.Warn("malformed payload", "event", frame.Event, "error", err)
			return
		}
		if frame.Event == messaging.EventUserOnline {
			c.handler.OnUserOnline(userID)
		} else {
			c.handler.OnUserOffline(userID)
		}
	default:
		c.logger.Debug("unhandled event", "event", frame.Event)
	}
}

// decodeUserID accepts either a bare string or an object with a userId field.
func decodeUserID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil && id != "" {
		return id, nil
	}
	var obj struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", err
	}
	if obj.UserID == "" {
		return "", errors.New("ws: missing user id")
	}
	return obj.UserID, nil
}
