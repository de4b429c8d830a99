package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentme-app/internal/app/dto"
	"rentme-app/internal/app/messaging"
	"rentme-app/internal/app/session"
)

type RealtimeHandler struct {
	Messaging *messaging.Store
	Session   *session.Store
	Logger    *slog.Logger
}

// Connect opens the real-time channel for the given user, or for the signed-in user
// when the body names none.
func (h RealtimeHandler) Connect(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" && h.Session != nil {
		if u, ok := h.Session.CurrentUser(); ok {
			userID = string(u.ID)
		}
	}
	if err := h.Messaging.InitializeSocket(c.Request.Context(), userID); err != nil {
		if statusFor(err) == http.StatusBadRequest {
			respondError(c, h.Logger, err, "connect")
			return
		}
		if h.Logger != nil {
			h.Logger.Warn("socket connect failed", "user_id", userID, "error", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "real-time server unreachable"})
		return
	}
	c.JSON(http.StatusAccepted, h.status())
}

func (h RealtimeHandler) Disconnect(c *gin.Context) {
	h.Messaging.DisconnectSocket()
	c.Status(http.StatusNoContent)
}

func (h RealtimeHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.status())
}

func (h RealtimeHandler) status() dto.RealtimeStatus {
	return dto.RealtimeStatus{
		State:       string(h.Messaging.ConnectionState()),
		Connected:   h.Messaging.IsConnected(),
		OnlineUsers: h.Messaging.OnlineUsers(),
	}
}

var _ RealtimeHTTP = RealtimeHandler{}
