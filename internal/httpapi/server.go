// Package httpapi is the Control Plane: a gin HTTP surface plus a
// gorilla/websocket tail of a session's event bus, for starting and
// observing sessions and pipeline runs. It is operational tooling, not a
// chat front-end — every route acts on an id the caller already has
// (from a prior create/run call), never renders a UI.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config is the Control Plane listener configuration.
type Config struct {
	Host string
	Port int
	Mode string // local, production
}

// Server is the Control Plane's HTTP+WebSocket listener.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	sessions   *SessionManager
	pipelines  *PipelineManager
}

// NewServer wires routes for session submission/steering/event tailing
// and pipeline run/checkpoint inspection.
func NewServer(cfg Config, sessions *SessionManager, pipelines *PipelineManager, logger *zap.Logger) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	sessionHandlers := &sessionHandlers{sessions: sessions, logger: logger}
	pipelineHandlers := &pipelineHandlers{pipelines: pipelines, logger: logger}

	v1 := router.Group("/sessions")
	{
		v1.POST("", sessionHandlers.create)
		v1.POST("/:id/submit", sessionHandlers.submit)
		v1.POST("/:id/steer", sessionHandlers.steer)
		v1.GET("/:id/events", sessionHandlers.events)
		v1.POST("/:id/close", sessionHandlers.close)
	}

	p1 := router.Group("/pipelines")
	{
		p1.POST("/:name/run", pipelineHandlers.run)
		p1.GET("/runs/:id/checkpoint", pipelineHandlers.checkpoint)
		p1.GET("/runs/:id", pipelineHandlers.status)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: router},
		logger:     logger,
		sessions:   sessions,
		pipelines:  pipelines,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting control plane", zap.String("address", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control plane server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping control plane")
	return s.httpServer.Shutdown(ctx)
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
