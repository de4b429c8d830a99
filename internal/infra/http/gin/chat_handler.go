package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentme-app/internal/app/dto"
	"rentme-app/internal/app/messaging"
	"rentme-app/internal/domain/chat"
)

// ChatHandler bridges HTTP with the messaging store.
type ChatHandler struct {
	Store  *messaging.Store
	Logger *slog.Logger
}

// List returns chats matching the optional q filter, most recent first.
func (h ChatHandler) List(c *gin.Context) {
	items := h.Store.Search(c.Query("q"))
	c.JSON(http.StatusOK, dto.ChatList{Items: items, TotalUnread: h.Store.TotalUnread()})
}

func (h ChatHandler) Create(c *gin.Context) {
	var req dto.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created := h.Store.CreateChat(c.Request.Context(), req.Participants, req.Product, req.SwapRequest)
	c.JSON(http.StatusCreated, created)
}

func (h ChatHandler) Get(c *gin.Context) {
	ch, ok := h.Store.Chat(c.Param("id"))
	if !ok {
		notFound(c, "chat")
		return
	}
	c.JSON(http.StatusOK, ch)
}

// SendMessage stamps and emits a message. Without a live socket nothing is sent and
// the response says so.
func (h ChatHandler) SendMessage(c *gin.Context) {
	chatID := c.Param("id")
	if _, ok := h.Store.Chat(chatID); !ok {
		notFound(c, "chat")
		return
	}
	var draft chat.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := draft.Validate(); err != nil {
		respondError(c, h.Logger, err, "send message")
		return
	}
	msg, sent := h.Store.SendMessage(c.Request.Context(), chatID, draft)
	if !sent {
		c.JSON(http.StatusOK, dto.SendMessageResponse{Sent: false})
		return
	}
	c.JSON(http.StatusAccepted, dto.SendMessageResponse{Sent: true, Message: &msg})
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	chatID := c.Param("id")
	if _, ok := h.Store.Chat(chatID); !ok {
		notFound(c, "chat")
		return
	}
	h.Store.MarkAsRead(c.Request.Context(), chatID)
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := strings.TrimSpace(req.ChatID)
	if id == "" {
		h.Store.SetActiveChat(c.Request.Context(), nil)
		c.Status(http.StatusNoContent)
		return
	}
	ch, ok := h.Store.Chat(id)
	if !ok {
		notFound(c, "chat")
		return
	}
	h.Store.SetActiveChat(c.Request.Context(), &ch)
	active, _ := h.Store.ActiveChat()
	c.JSON(http.StatusOK, active)
}

var _ ChatHTTP = ChatHandler{}
