package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"hivley/config"
	"hivley/internal/handler"
	"hivley/internal/middleware"
	"hivley/internal/transport/httpdto"
	"hivley/internal/websocket"
	"hivley/pkg/database"
	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Profile      *handler.ProfileHandler
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Status       *handler.StatusHandler
	Presence     *handler.PresenceHandler
	Realtime     *websocket.Handler
}

// Dependencies are the non-handler collaborators routes need. Limiter
// may be nil, which disables rate limiting.
type Dependencies struct {
	DB      *gorm.DB
	Tokens  middleware.TokenParser
	Limiter middleware.Limiter
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) SetupRoutes(h *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.SecurityHeaders())
	s.engine.Use(middleware.CORS(s.config.CORSOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), deps.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.HealthResponse{Status: "unhealthy", Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, httpdto.HealthResponse{Status: "healthy"})
	})

	requireAuth := middleware.AuthMiddleware(deps.Tokens)

	v1 := s.engine.Group("/v1")

	auth := v1.Group("/auth")
	{
		authLimit := middleware.AuthRateLimitMiddleware(deps.Limiter, s.logger)
		auth.POST("/signup", authLimit, h.Auth.Signup)
		auth.POST("/login", authLimit, h.Auth.Login)
		auth.GET("/me", requireAuth, h.Auth.Me)
	}

	v1.GET("/profiles/:id", requireAuth, h.Profile.Get)

	conversations := v1.Group("/conversations", requireAuth)
	{
		conversations.GET("", h.Conversation.List)
		conversations.POST("/direct", h.Conversation.CreateDirect)
		conversations.POST("/group", h.Conversation.CreateGroup)
		conversations.GET("/:id", h.Conversation.Get)
		conversations.POST("/:id/read", h.Conversation.MarkRead)
		conversations.PUT("/:id/notifications", h.Conversation.SetNotifications)
		conversations.PUT("/:id/title", h.Conversation.Rename)
		conversations.GET("/:id/messages", h.Message.List)
		conversations.POST("/:id/messages", middleware.MessageRateLimitMiddleware(deps.Limiter, s.logger), h.Message.Send)
	}

	messages := v1.Group("/messages", requireAuth)
	{
		messages.PATCH("/:id", h.Message.Edit)
		messages.DELETE("/:id", h.Message.Delete)
		messages.PUT("/:id/status", h.Status.MarkStatus)
		messages.GET("/:id/status", h.Status.Aggregate)
		messages.GET("/:id/reactions", h.Status.ListReactions)
		messages.POST("/:id/reactions", h.Status.AddReaction)
		messages.DELETE("/:id/reactions", h.Status.RemoveReaction)
	}

	presence := v1.Group("/presence", requireAuth)
	{
		presence.GET("", h.Presence.Get)
		presence.POST("/heartbeat", h.Presence.Heartbeat)
	}

	// token travels in the query string; browsers cannot set headers on upgrade
	v1.GET("/ws", h.Realtime.Connect)

	s.engine.NoRoute(staticFallback(s.config.StaticDir))
}

// Run serves until ctx is cancelled, then shuts down within 5 seconds.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}
	return nil
}
