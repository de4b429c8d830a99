package messaging

import (
	"context"

	"rentme-app/internal/domain/chat"
)

// Event names carried by the real-time channel.
const (
	EventMessageSend     = "message:send"
	EventChatCreate      = "chat:create"
	EventChatMarkRead    = "chat:markRead"
	EventMessageReceived = "message:received"
	EventChatCreated     = "chat:created"
	EventUserOnline      = "user:online"
	EventUserOffline     = "user:offline"
)

// SendPayload is the body of a message:send event.
type SendPayload struct {
	ChatID  string       `json:"chatId"`
	Message chat.Message `json:"message"`
}

// MarkReadPayload is the body of a chat:markRead event.
type MarkReadPayload struct {
	ChatID string `json:"chatId"`
}

// Handler receives connection state changes and inbound events from a transport.
// Calls may arrive from any goroutine.
type Handler interface {
	OnConnect()
	OnDisconnect()
	OnMessageReceived(msg chat.InboundMessage)
	OnChatCreated(c chat.Chat)
	OnUserOnline(userID string)
	OnUserOffline(userID string)
}

// Transport is one open real-time connection.
type Transport interface {
	Emit(ctx context.Context, event string, payload any) error
	Close() error
}

// Connector opens a connection authenticated by userID. It returns without waiting
// for the connection to be established; the handler is told once it is.
type Connector interface {
	Connect(ctx context.Context, userID string, h Handler) (Transport, error)
}

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)
