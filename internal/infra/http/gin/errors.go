package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	swaphandlers "rentme-app/internal/app/handlers/swaps"
	"rentme-app/internal/app/messaging"
	"rentme-app/internal/domain/chat"
	"rentme-app/internal/domain/swap"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, swaphandlers.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, swaphandlers.ErrInvalidInput),
		errors.Is(err, messaging.ErrUserIDRequired),
		errors.Is(err, chat.ErrUnknownMessageType),
		errors.Is(err, chat.ErrMissingContent),
		errors.Is(err, chat.ErrMissingProduct),
		errors.Is(err, chat.ErrMissingSwapRequest),
		errors.Is(err, chat.ErrInvalidSender):
		return http.StatusBadRequest
	case errors.Is(err, swap.ErrInvalidTransition), errors.Is(err, swap.ErrUnknownStatus):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error, action string, attrs ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error(action+" failed", append(attrs, "error", err)...)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}
