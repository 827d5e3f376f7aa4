package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/capability/kvstore"
	"github.com/hollowgrove/cascade/internal/capability/textkit"
	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/internal/pool"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/log"
)

// capserve hosts a set of capabilities behind the remote invocation
// protocol, one mount point per capability. An engine reaches a hosted
// capability with REMOTE_CAPABILITIES=echo=http://host:9090/echo
type capserve struct {
	cfg        *config.Config
	pool       *pool.Pool[any]
	caps       *capability.Registry
	httpServer *http.Server
}

const defaultPort = 9090

var ErrRegisterCapability = errors.New("failed to register capability")

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	cfg.APIPort = defaultPort
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &capserve{cfg: cfg}
	if err := s.run(); err != nil {
		slog.Error("Failed to start capability host", log.Error(err))
		os.Exit(1)
	}
}

func (s *capserve) run() error {
	s.setupLogging()

	if err := s.initializeCapabilities(); err != nil {
		return err
	}
	s.startServer()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.shutdown()
	return nil
}

func (s *capserve) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(level)

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	slog.Info("Capability host starting")

	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.String("redis_addr", s.cfg.RedisAddr))
}

func (s *capserve) initializeCapabilities() error {
	s.caps = capability.NewRegistry()

	serve := []capability.Capability{
		capability.NewEcho(),
		textkit.New(),
	}
	if s.cfg.RedisAddr != "" {
		s.pool = pool.New[any](s.cfg.PoolCapacity, releaseResource)
		serve = append(serve, kvstore.NewCapability(s.pool, kvstore.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}))
	}

	for _, c := range serve {
		if err := s.caps.Register(c); err != nil {
			return fmt.Errorf("%w: %w", ErrRegisterCapability, err)
		}
	}

	slog.Info("Hosting capabilities",
		slog.Any("names", s.caps.Names()))
	return nil
}

func (s *capserve) setupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	mount := router.Group("/:cap")
	{
		mount.POST("/invoke", s.handleInvoke)
		mount.GET("/health", s.handleHealth)
	}

	return router
}

func (s *capserve) handleInvoke(c *gin.Context) {
	target, err := s.caps.Get(c.Param("cap"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}

	var req api.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("invalid JSON payload: %v", err),
			Status: http.StatusBadRequest,
		})
		return
	}

	outputs, err := target.Invoke(
		c.Request.Context(), req.Operation, req.Payload,
	)
	if err != nil {
		// Capability failures ride inside a successful HTTP exchange so the
		// engine can distinguish them from transport errors
		c.JSON(http.StatusOK, api.InvokeResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, api.InvokeResponse{
		Success: true,
		Outputs: outputs,
	})
}

func (s *capserve) handleHealth(c *gin.Context) {
	target, err := s.caps.Get(c.Param("cap"))
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, api.CapabilityDigest{
		Name:       target.Name(),
		Operations: target.Operations(),
	})
}

func (s *capserve) startServer() {
	router := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *capserve) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	if s.pool != nil {
		s.pool.Purge()
	}

	slog.Info("Server exited")
}

// releaseResource closes evicted pool residents that hold external
// connections, such as kvstore clients
func releaseResource(v any) error {
	if closer, ok := v.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
