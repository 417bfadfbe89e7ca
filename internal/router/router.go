package router

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/hertz-contrib/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/internal/gateway"
	"github.com/mbeoliero/uq/internal/handler"
	"github.com/mbeoliero/uq/internal/middleware"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Contact *handler.ContactHandler
	Message *handler.MessageHandler
	AI      *handler.AIHandler
}

// SetupRouter sets up all routes
func SetupRouter(r *route.Engine, cfg *config.Config, handlers *Handlers, validator middleware.TokenValidator, wsServer *gateway.WsServer) {
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	r.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})
	r.GET("/metrics", adaptor.HertzHandler(promhttp.Handler()))

	auth := middleware.JWTAuth(validator)

	// Auth routes, verify also serves the emailed link
	verifyLimit := middleware.RateLimit(cfg.Auth.VerifyRPS, cfg.Auth.VerifyBurst)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/magic_link", handlers.Auth.RequestMagicLink)
		authGroup.POST("/verify", verifyLimit, handlers.Auth.Verify)
		authGroup.GET("/verify", verifyLimit, handlers.Auth.Verify)
		authGroup.POST("/logout", auth, handlers.Auth.Logout)
	}

	userGroup := r.Group("/user", auth)
	{
		userGroup.GET("/info", handlers.User.GetUserInfo)
		userGroup.GET("/profile/:user_id", handlers.User.GetProfile)
		userGroup.GET("/uq/:uq_number", handlers.User.GetByUqNumber)
		userGroup.GET("/registry", handlers.User.ListRegistry)
		userGroup.PUT("/update", handlers.User.UpdateUserInfo)
		userGroup.PUT("/status", handlers.User.SetStatus)
	}

	contactGroup := r.Group("/contact", auth)
	{
		contactGroup.POST("/add", handlers.Contact.AddContact)
		contactGroup.GET("/list", handlers.Contact.ListContacts)
		contactGroup.POST("/remove", handlers.Contact.RemoveContact)
	}

	msgGroup := r.Group("/msg", auth)
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.GET("/list", handlers.Message.ListMessages)
		msgGroup.GET("/get", handlers.Message.GetMessage)
		msgGroup.POST("/mark_read", handlers.Message.MarkRead)
		msgGroup.GET("/unread_counts", handlers.Message.UnreadCounts)
	}

	// AI routes call a paid provider, limited per user
	aiGroup := r.Group("/ai", auth, middleware.RateLimit(cfg.AI.RateRPS, cfg.AI.RateBurst))
	{
		aiGroup.POST("/translate", handlers.AI.Translate)
		aiGroup.POST("/summarize", handlers.AI.Summarize)
	}

	allowedOrigins := cfg.Server.AllowedOrigins
	upgrader := &websocket.HertzUpgrader{
		CheckOrigin: func(ctx *app.RequestContext) bool {
			return checkOrigin(ctx, allowedOrigins)
		},
	}

	r.GET("/ws", func(ctx context.Context, c *app.RequestContext) {
		wsServer.HandleHertzConnection(ctx, c, upgrader)
	})
}

// checkOrigin validates the Origin header against allowed origins
func checkOrigin(ctx *app.RequestContext, allowedOrigins []string) bool {
	origin := string(ctx.Request.Header.Peek("Origin"))

	// same-origin request or non-browser client
	if origin == "" {
		return true
	}

	// no allow list rejects all cross-origin upgrades
	if len(allowedOrigins) == 0 {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			return true
		}
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}
