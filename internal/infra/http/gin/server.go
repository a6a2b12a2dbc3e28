package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"recyclemart/internal/infra/config"
	"recyclemart/internal/infra/obs"
)

type ChatHTTP interface {
	Conversations(c *gin.Context)
	Select(c *gin.Context)
	Thread(c *gin.Context)
	SendText(c *gin.Context)
	SendAttachment(c *gin.Context)
	Open(c *gin.Context)
	State(c *gin.Context)
	Notifications(c *gin.Context)
	Stream(c *gin.Context)
}

type CatalogHTTP interface {
	Ads(c *gin.Context)
	Categories(c *gin.Context)
}

type Handlers struct {
	Chat    ChatHTTP
	Catalog CatalogHTTP
}

// NewServer builds the local bridge server. It binds to cfg.BridgeAddr.
func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.BridgeAddr,
		Handler:           NewRouter(cfg.Env, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(env string, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
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
	if h.Chat != nil {
		chat := api.Group("/chat")
		chat.GET("/state", h.Chat.State)
		chat.GET("/conversations", h.Chat.Conversations)
		chat.POST("/conversations/:id/select", h.Chat.Select)
		chat.GET("/thread", h.Chat.Thread)
		chat.POST("/messages", h.Chat.SendText)
		chat.POST("/attachments", h.Chat.SendAttachment)
		chat.POST("/open", h.Chat.Open)
		chat.GET("/notifications", h.Chat.Notifications)
		chat.GET("/stream", h.Chat.Stream)
	}
	if h.Catalog != nil {
		api.GET("/ads", h.Catalog.Ads)
		api.GET("/categories", h.Catalog.Categories)
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
