package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentme-app/internal/infra/config"
	"rentme-app/internal/infra/obs"
)

type SessionHTTP interface {
	Get(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	UpdateUser(c *gin.Context)
	CompleteOnboarding(c *gin.Context)
}

type SwapHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Accept(c *gin.Context)
	Decline(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	Stats(c *gin.Context)
	Items(c *gin.Context)
	AddItem(c *gin.Context)
	RemoveItem(c *gin.Context)
}

type ChatHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
	SetActive(c *gin.Context)
}

type RealtimeHTTP interface {
	Connect(c *gin.Context)
	Disconnect(c *gin.Context)
	Status(c *gin.Context)
}

type Handlers struct {
	Session  SessionHTTP
	Swaps    SwapHTTP
	Chats    ChatHTTP
	Realtime RealtimeHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewRouter builds the bridge routes without touching the global gin mode.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(obsMW.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Session != nil {
		api.GET("/session", h.Session.Get)
		api.POST("/session/login", h.Session.Login)
		api.POST("/session/logout", h.Session.Logout)
		api.PATCH("/session/user", h.Session.UpdateUser)
		api.POST("/session/onboarding", h.Session.CompleteOnboarding)
	}
	if h.Swaps != nil {
		swaps := api.Group("/swaps")
		swaps.GET("", h.Swaps.List)
		swaps.POST("", h.Swaps.Create)
		swaps.GET("/stats/:userID", h.Swaps.Stats)
		swaps.GET("/items", h.Swaps.Items)
		swaps.POST("/items", h.Swaps.AddItem)
		swaps.DELETE("/items/:id", h.Swaps.RemoveItem)
		swaps.GET("/:id", h.Swaps.Get)
		swaps.POST("/:id/accept", h.Swaps.Accept)
		swaps.POST("/:id/decline", h.Swaps.Decline)
		swaps.POST("/:id/cancel", h.Swaps.Cancel)
		swaps.POST("/:id/complete", h.Swaps.Complete)
	}
	if h.Chats != nil {
		chats := api.Group("/chats")
		chats.GET("", h.Chats.List)
		chats.POST("", h.Chats.Create)
		chats.PUT("/active", h.Chats.SetActive)
		chats.GET("/:id", h.Chats.Get)
		chats.POST("/:id/messages", h.Chats.SendMessage)
		chats.POST("/:id/read", h.Chats.MarkRead)
	}
	if h.Realtime != nil {
		api.POST("/realtime/connect", h.Realtime.Connect)
		api.POST("/realtime/disconnect", h.Realtime.Disconnect)
		api.GET("/realtime/status", h.Realtime.Status)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
