package chat

import (
	"strings"
	"time"

	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

// Chat is a thread between participants, optionally anchored to a product or a swap.
// Messages are append-only.
type Chat struct {
	ID           string           `json:"id"`
	Participants []user.User      `json:"participants"`
	Messages     []Message        `json:"messages"`
	Product      *catalog.Product `json:"product,omitempty"`
	SwapRequest  *swap.Request    `json:"swapRequest,omitempty"`
	LastMessage  *Message         `json:"lastMessage,omitempty"`
	UnreadCount  int              `json:"unreadCount"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type CreateParams struct {
	ID           string
	Participants []user.User
	Product      *catalog.Product
	SwapRequest  *swap.Request
	CreatedAt    time.Time
}

func New(params CreateParams) Chat {
	now := params.CreatedAt.UTC()
	c := Chat{
		ID:           params.ID,
		Participants: make([]user.User, 0, len(params.Participants)),
		Messages:     []Message{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, p := range params.Participants {
		c.Participants = append(c.Participants, p.Clone())
	}
	if params.Product != nil {
		p := params.Product.Clone()
		c.Product = &p
	}
	if params.SwapRequest != nil {
		r := params.SwapRequest.Clone()
		c.SwapRequest = &r
	}
	return c
}

// Append adds msg and moves LastMessage and UpdatedAt to it. When countUnread is set
// the unread counter grows by one.
func (c *Chat) Append(msg Message, countUnread bool) {
	c.Messages = append(c.Messages, msg)
	last := msg.Clone()
	c.LastMessage = &last
	c.UpdatedAt = msg.Timestamp
	if countUnread {
		c.UnreadCount++
	}
}

func (c *Chat) MarkRead() {
	c.UnreadCount = 0
}

// Matches reports whether a participant name or the anchored product title contains query.
func (c Chat) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, p := range c.Participants {
		if strings.Contains(strings.ToLower(p.Name), q) {
			return true
		}
	}
	return c.Product != nil && strings.Contains(strings.ToLower(c.Product.Title), q)
}

func (c Chat) Clone() Chat {
	out := c
	if c.Participants != nil {
		out.Participants = make([]user.User, len(c.Participants))
		for i, p := range c.Participants {
			out.Participants[i] = p.Clone()
		}
	}
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if c.Product != nil {
		p := c.Product.Clone()
		out.Product = &p
	}
	if c.SwapRequest != nil {
		r := c.SwapRequest.Clone()
		out.SwapRequest = &r
	}
	if c.LastMessage != nil {
		m := c.LastMessage.Clone()
		out.LastMessage = &m
	}
	return out
}
