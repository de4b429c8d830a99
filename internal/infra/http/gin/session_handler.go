package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentme-app/internal/app/dto"
	"rentme-app/internal/app/session"
	"rentme-app/internal/domain/user"
)

type SessionHandler struct {
	Store *session.Store
}

func (h SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

func (h SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(string(req.User.ID)) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}
	if req.User.UserType != "" && !req.User.UserType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user type"})
		return
	}
	h.Store.Login(c.Request.Context(), req.User)
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

func (h SessionHandler) Logout(c *gin.Context) {
	h.Store.Logout(c.Request.Context())
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

func (h SessionHandler) UpdateUser(c *gin.Context) {
	var patch user.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.UserType != nil && !patch.UserType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown user type"})
		return
	}
	if !h.Store.UpdateUser(c.Request.Context(), patch) {
		notFound(c, "session user")
		return
	}
	u, _ := h.Store.CurrentUser()
	c.JSON(http.StatusOK, dto.UpdateUserResponse{Applied: true, User: &u})
}

func (h SessionHandler) CompleteOnboarding(c *gin.Context) {
	h.Store.CompleteOnboarding(c.Request.Context())
	c.JSON(http.StatusOK, h.Store.Snapshot())
}

var _ SessionHTTP = SessionHandler{}
