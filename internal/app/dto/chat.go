package dto

import (
	"rentme-app/internal/domain/catalog"
	"rentme-app/internal/domain/chat"
	"rentme-app/internal/domain/swap"
	"rentme-app/internal/domain/user"
)

type CreateChatRequest struct {
	Participants []user.User      `json:"participants" binding:"required,min=1"`
	Product      *catalog.Product `json:"product,omitempty"`
	SwapRequest  *swap.Request    `json:"swapRequest,omitempty"`
}

type ChatList struct {
	Items       []chat.Chat `json:"items"`
	TotalUnread int         `json:"totalUnread"`
}

type SendMessageResponse struct {
	Sent    bool          `json:"sent"`
	Message *chat.Message `json:"message,omitempty"`
}

// SetActiveChatRequest selects the chat being viewed; an empty id clears it.
type SetActiveChatRequest struct {
	ChatID string `json:"chatId"`
}

type ConnectRequest struct {
	UserID string `json:"userId"`
}

type RealtimeStatus struct {
	State       string   `json:"state"`
	Connected   bool     `json:"connected"`
	OnlineUsers []string `json:"onlineUsers"`
}
