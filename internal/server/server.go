package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/hollowgrove/cascade"
	"github.com/hollowgrove/cascade/internal/artifact"
	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/capability/remote"
	"github.com/hollowgrove/cascade/internal/capability/script"
	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/internal/pool"
	"github.com/hollowgrove/cascade/internal/preset"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/events"
	"github.com/hollowgrove/cascade/pkg/util"
)

type (
	// Deps carries the collaborators the server exposes over HTTP. Health
	// and Artifacts may be nil when those subsystems are not configured
	Deps struct {
		Runner    *workflow.Runner
		Caps      *capability.Registry
		Presets   *preset.Registry
		Scripts   *script.Registry
		Artifacts *artifact.Store
		Health    *remote.HealthChecker
		Hub       *events.Hub
		Pool      *pool.Pool[any]
		Config    *config.Config
	}

	// Server implements the HTTP API server for the workflow service
	Server struct {
		deps    *Deps
		sockets util.Set[*Client]
		started time.Time
		mu      sync.Mutex
	}
)

var ErrInvalidJSON = errors.New("invalid JSON payload")

// NewServer creates a new HTTP API server
func NewServer(deps *Deps) *Server {
	return &Server{
		deps:    deps,
		sockets: util.Set[*Client]{},
		started: time.Now(),
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Workflow endpoints
	wf := router.Group("/workflow")
	{
		wf.POST("/run", s.runWorkflow)
		wf.GET("/presets", s.listPresets)
	}

	// Capability endpoints
	caps := router.Group("/capability")
	{
		caps.GET("", s.listCapabilities)
		caps.GET("/health", s.capabilityHealth)
	}

	// Artifact endpoints
	art := router.Group("/artifact")
	{
		art.POST("", s.uploadArtifact)
		art.GET("/:id", s.downloadArtifact)
		art.DELETE("/:id", s.deleteArtifact)
	}

	// WebSocket
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service:      cascade.Name,
		Version:      cascade.Version,
		Status:       "healthy",
		UptimeSec:    time.Since(s.started).Seconds(),
		Pool:         s.deps.Pool.Stats(),
		Capabilities: len(s.deps.Caps.Names()),
	})
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
