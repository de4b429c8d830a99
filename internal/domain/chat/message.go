package chat

import (
	"errors"
	"time"

	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
)

var (
	ErrUnknownMessageType = errors.New("chat: unknown message type")
	ErrMissingContent     = errors.New("chat: message content is required")
	ErrMissingProduct     = errors.New("chat: product message requires a product")
	ErrMissingSwapRequest = errors.New("chat: swap message requires a swap request")
	ErrInvalidSender      = errors.New("chat: text message sender must be user or other")
)

type MessageType string

const (
	TypeSystem  MessageType = "system"
	TypeProduct MessageType = "product"
	TypeSwap    MessageType = "swap"
	TypeText    MessageType = "text"
)

// Sender tags who wrote a text message from the device user's point of view.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderOther Sender = "other"
)

// Draft is a message body before it gets an id and a timestamp.
// Type selects which of the remaining fields are meaningful.
type Draft struct {
	Type        MessageType      `json:"type"`
	Content     string           `json:"content,omitempty"`
	Sender      Sender           `json:"sender,omitempty"`
	Product     *catalog.Product `json:"product,omitempty"`
	SwapRequest *swap.Request    `json:"swapRequest,omitempty"`
}

func SystemDraft(content string) Draft {
	return Draft{Type: TypeSystem, Content: content}
}

func TextDraft(content string, sender Sender) Draft {
	return Draft{Type: TypeText, Content: content, Sender: sender}
}

func ProductDraft(p catalog.Product) Draft {
	pc := p.Clone()
	return Draft{Type: TypeProduct, Product: &pc}
}

func SwapDraft(r swap.Request) Draft {
	rc := r.Clone()
	return Draft{Type: TypeSwap, SwapRequest: &rc}
}

// Validate checks that the fields required by the variant are present.
func (d Draft) Validate() error {
	switch d.Type {
	case TypeSystem:
		if d.Content == "" {
			return ErrMissingContent
		}
	case TypeText:
		if d.Content == "" {
			return ErrMissingContent
		}
		if d.Sender != SenderUser && d.Sender != SenderOther {
			return ErrInvalidSender
		}
	case TypeProduct:
		if d.Product == nil {
			return ErrMissingProduct
		}
	case TypeSwap:
		if d.SwapRequest == nil {
			return ErrMissingSwapRequest
		}
	default:
		return ErrUnknownMessageType
	}
	return nil
}

// normalized drops fields that do not belong to the variant.
func (d Draft) normalized() Draft {
	switch d.Type {
	case TypeSystem:
		return Draft{Type: d.Type, Content: d.Content}
	case TypeText:
		return Draft{Type: d.Type, Content: d.Content, Sender: d.Sender}
	case TypeProduct:
		return Draft{Type: d.Type, Product: d.Product}
	case TypeSwap:
		return Draft{Type: d.Type, SwapRequest: d.SwapRequest}
	default:
		return d
	}
}

type Message struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Draft
}

// NewMessage stamps a draft with an id and a time.
func NewMessage(id string, d Draft, at time.Time) Message {
	return Message{ID: id, Timestamp: at.UTC(), Draft: d.normalized().clone()}
}

func (d Draft) clone() Draft {
	out := d
	if d.Product != nil {
		p := d.Product.Clone()
		out.Product = &p
	}
	if d.SwapRequest != nil {
		r := d.SwapRequest.Clone()
		out.SwapRequest = &r
	}
	return out
}

func (m Message) Clone() Message {
	out := m
	out.Draft = m.Draft.clone()
	return out
}

// InboundMessage is a message delivered by the real-time channel, tagged with its chat.
type InboundMessage struct {
	ChatID string `json:"chatId"`
	Message
}
