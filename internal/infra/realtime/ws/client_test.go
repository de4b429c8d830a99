package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme-app/internal/app/messaging"
	"rentme-app/internal/domain/chat"
)

type serverConn struct {
	userID string
	conn   *websocket.Conn
}

type testServer struct {
	*httptest.Server
	conns chan serverConn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := &testServer{conns: make(chan serverConn, 8)}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- serverConn{userID: r.URL.Query().Get("userId"), conn: conn}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) accept(t *testing.T) serverConn {
	t.Helper()
	select {
	case sc := <-ts.conns:
		t.Cleanup(func() { _ = sc.conn.Close() })
		return sc
	case <-time.After(5 * time.Second):
		t.Fatal("no connection")
		return serverConn{}
	}
}

type recorder struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	messages    []chat.InboundMessage
	chats       []chat.Chat
	online      []string
	offline     []string
}

func (r *recorder) OnConnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
}

func (r *recorder) OnDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
}

func (r *recorder) OnMessageReceived(msg chat.InboundMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recorder) OnChatCreated(c chat.Chat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, c)
}

func (r *recorder) OnUserOnline(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online = append(r.online, id)
}

func (r *recorder) OnUserOffline(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = append(r.offline, id)
}

func (r *recorder) read(fn func(*recorder) bool) func() bool {
	return func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return fn(r)
	}
}

func newTestConnector(t *testing.T, url string, backoff ...time.Duration) *Connector {
	t.Helper()
	if len(backoff) == 0 {
		backoff = []time.Duration{20 * time.Millisecond}
	}
	c, err := NewConnector(Config{
		URL:     url,
		Backoff: backoff,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c
}

func writeFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func TestNewConnectorValidation(t *testing.T) {
	_, err := NewConnector(Config{})
	assert.ErrorIs(t, err, ErrURLRequired)

	_, err = NewConnector(Config{URL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := NewConnector(Config{URL: "https://chat.example.com/socket"})
	require.NoError(t, err)
	assert.Equal(t, "wss", c.url.Scheme)
	assert.Equal(t, defaultBackoff, c.backoff)
	assert.Equal(t, defaultSendBuffer, c.sendBuffer)
}

func TestConnectDispatchesInboundEvents(t *testing.T) {
	ts := newTestServer(t)
	rec := &recorder{}
	transport, err := newTestConnector(t, ts.wsURL()).Connect(context.Background(), "u-alice", rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transport.Close() })

	sc := ts.accept(t)
	assert.Equal(t, "u-alice", sc.userID)
	require.Eventually(t, rec.read(func(r *recorder) bool { return r.connects == 1 }), 2*time.Second, 10*time.Millisecond)

	at := time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)
	inbound := chat.InboundMessage{
		ChatID:  "chat-1",
		Message: chat.NewMessage("m-1", chat.TextDraft("hello", chat.SenderOther), at),
	}
	created := chat.New(chat.CreateParams{ID: "chat-2", CreatedAt: at})

	writeFrame(t, sc.conn, messaging.EventMessageReceived, inbound)
	writeFrame(t, sc.conn, messaging.EventChatCreated, created)
	writeFrame(t, sc.conn, messaging.EventUserOnline, "u-bob")
	writeFrame(t, sc.conn, messaging.EventUserOffline, map[string]string{"userId": "u-carol"})
	writeFrame(t, sc.conn, "typing", map[string]string{"chatId": "chat-1"})

	require.Eventually(t, rec.read(func(r *recorder) bool { return len(r.offline) == 1 }), 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.messages, 1)
	assert.Equal(t, inbound, rec.messages[0])
	require.Len(t, rec.chats, 1)
	assert.Equal(t, created, rec.chats[0])
	assert.Equal(t, []string{"u-bob"}, rec.online)
	assert.Equal(t, []string{"u-carol"}, rec.offline)
}

func TestEmitWritesFrame(t *testing.T) {
	ts := newTestServer(t)
	transport, err := newTestConnector(t, ts.wsURL()).Connect(context.Background(), "u-alice", &recorder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = transport.Close() })
	sc := ts.accept(t)

	require.NoError(t, transport.Emit(context.Background(), messaging.EventChatMarkRead, messaging.MarkReadPayload{ChatID: "chat-9"}))

	_ = sc.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame Frame
	require.NoError(t, sc.conn.ReadJSON(&frame))
	assert.Equal(t, messaging.EventChatMarkRead, frame.Event)
	assert.JSONEq(t, `{"chatId":"chat-9"}`, string(frame.Data))
}

func TestReconnectsAfterServerDrop(t *testing.T) {
	ts := newTestServer(t)
	rec := &recorder{}
	transport, err := newTestConnector(t, ts.wsURL()).Connect(context.Background(), "u-alice", rec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transport.Close() })

	first := ts.accept(t)
	require.Eventually(t, rec.read(func(r *recorder) bool { return r.connects == 1 }), 2*time.Second, 10*time.Millisecond)
	require.NoError(t, first.conn.Close())

	second := ts.accept(t)
	assert.Equal(t, "u-alice", second.userID)
	require.Eventually(t, rec.read(func(r *recorder) bool {
		return r.connects == 2 && r.disconnects == 1
	}), 2*time.Second, 10*time.Millisecond)
}

func TestEmitBufferFullAndClosed(t *testing.T) {
	c, err := NewConnector(Config{
		URL:        "ws://127.0.0.1:1/socket",
		Backoff:    []time.Duration{time.Hour},
		SendBuffer: 1,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	transport, err := c.Connect(context.Background(), "u-alice", &recorder{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, transport.Emit(ctx, messaging.EventMessageSend, map[string]string{"n": "1"}))
	assert.ErrorIs(t, transport.Emit(ctx, messaging.EventMessageSend, map[string]string{"n": "2"}), ErrSendBufferFull)

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())
	assert.ErrorIs(t, transport.Emit(ctx, messaging.EventMessageSend, nil), ErrClosed)
}

func TestCloseStopsReconnecting(t *testing.T) {
	ts := newTestServer(t)
	rec := &recorder{}
	transport, err := newTestConnector(t, ts.wsURL()).Connect(context.Background(), "u-alice", rec)
	require.NoError(t, err)
	ts.accept(t)
	require.Eventually(t, rec.read(func(r *recorder) bool { return r.connects == 1 }), 2*time.Second, 10*time.Millisecond)

	require.NoError(t, transport.Close())
	require.Eventually(t, rec.read(func(r *recorder) bool { return r.disconnects == 1 }), 2*time.Second, 10*time.Millisecond)

	select {
	case <-ts.conns:
		t.Fatal("client reconnected after close")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDecodeUserID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string", raw: `"u-1"`, want: "u-1"},
		{name: "object", raw: `{"userId":"u-2"}`, want: "u-2"},
		{name: "empty object", raw: `{}`, wantErr: true},
		{name: "number", raw: `42`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeUserID(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
