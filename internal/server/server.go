package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-support/config"
	"storefront-support/internal/handler"
	"storefront-support/internal/middleware"
	"storefront-support/internal/services"
	"storefront-support/internal/transport/httpdto"
	"storefront-support/internal/websocket"
	"storefront-support/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Availability *handler.AvailabilityHandler
	Upload       *handler.UploadHandler
	Agent        *handler.AgentHandler
	Stream       *websocket.Handler
}

// Dependencies are the collaborators routes need beyond the handlers.
type Dependencies struct {
	Auth           *services.AuthService
	MessageLimiter middleware.MessageLimiter
	Gatherer       prometheus.Gatherer
	// HealthChecks are run by /health; any error marks the instance unhealthy.
	HealthChecks map[string]func(ctx context.Context) error
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

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORSAllowedOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		for name, check := range deps.HealthChecks {
			if err := check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(name+": "+err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	if deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	requireAuth := middleware.AuthMiddleware(deps.Auth)
	optionalAuth := middleware.OptionalAuthMiddleware(deps.Auth)

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/availability", optionalAuth, handlers.Availability.Get)

		v1.POST("/conversations", optionalAuth, handlers.Conversation.Create)
		v1.POST("/conversations/current", requireAuth, handlers.Conversation.Current)
		v1.POST("/request-human", requireAuth, handlers.Conversation.RequestHuman)

		v1.POST("/messages", requireAuth, middleware.MessageRateLimitMiddleware(deps.MessageLimiter), handlers.Message.Send)
		v1.GET("/messages", requireAuth, handlers.Message.List)

		if handlers.Upload != nil {
			v1.POST("/upload", requireAuth, middleware.MessageRateLimitMiddleware(deps.MessageLimiter), handlers.Upload.Upload)
		}
		if handlers.Stream != nil {
			v1.GET("/conversations/:id/stream", requireAuth, handlers.Stream.Stream)
		}
	}

	agent := v1.Group("/agent", requireAuth, middleware.RequireRole(services.RoleAgent))
	{
		agent.GET("/queue", handlers.Agent.Queue)
		agent.POST("/queue/accept", handlers.Agent.AcceptNext)
		agent.POST("/presence", handlers.Agent.Presence)
		agent.GET("/conversations/:id", handlers.Agent.Conversation)
		agent.POST("/conversations/:id/accept", handlers.Agent.Accept)
		agent.POST("/conversations/:id/messages", handlers.Agent.Reply)
		agent.POST("/conversations/:id/resolve", handlers.Agent.Resolve)
		agent.POST("/conversations/:id/close", handlers.Agent.Close)
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
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
