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
	"time"

	app "github.com/hollowgrove/cascade"
	"github.com/hollowgrove/cascade/internal/artifact"
	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/capability/kvstore"
	"github.com/hollowgrove/cascade/internal/capability/remote"
	"github.com/hollowgrove/cascade/internal/capability/script"
	"github.com/hollowgrove/cascade/internal/capability/textkit"
	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/internal/pool"
	"github.com/hollowgrove/cascade/internal/preset"
	"github.com/hollowgrove/cascade/internal/server"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/events"
	"github.com/hollowgrove/cascade/pkg/log"
	"github.com/hollowgrove/cascade/pkg/util/call"
)

type cascade struct {
	cfg        *config.Config
	pool       *pool.Pool[any]
	sweeper    *pool.Sweeper
	artifacts  *artifact.Store
	caps       *capability.Registry
	scripts    *script.Registry
	presets    *preset.Registry
	hub        *events.Hub
	runner     *workflow.Runner
	health     *remote.HealthChecker
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateArtifactStore = errors.New("failed to create artifact store")
	ErrRegisterCapability  = errors.New("failed to register capability")
	ErrLoadPresets         = errors.New("failed to load presets")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &cascade{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start service", log.Error(err))
		os.Exit(1)
	}
}

func (s *cascade) run() error {
	if err := call.Perform(
		s.initializeResources,
		s.initializeCapabilities,
		s.initializePresets,
	); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *cascade) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Cascade starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Int("pool_capacity", s.cfg.PoolCapacity),
		slog.String("preset_dir", s.cfg.PresetDir),
		slog.String("artifact_bucket", s.cfg.ArtifactBucketURL),
		slog.String("redis_addr", s.cfg.RedisAddr),
		slog.Int("remote_capabilities", len(s.cfg.RemoteCapabilities)))
}

func (s *cascade) initializeResources() error {
	s.pool = pool.New[any](s.cfg.PoolCapacity, releaseResource)
	if s.cfg.PoolSweepInterval > 0 && s.cfg.PoolIdleTimeout > 0 {
		s.sweeper = pool.NewSweeper(s.cfg.PoolSweepInterval, func() int {
			return s.pool.SweepIdle(s.cfg.PoolIdleTimeout)
		})
		s.sweeper.Start()
	}

	store, err := artifact.NewStore(
		context.Background(), s.cfg.ArtifactBucketURL, s.cfg.ArtifactPrefix,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateArtifactStore, err)
	}
	s.artifacts = store

	s.hub = events.NewHub()
	return nil
}

func (s *cascade) initializeCapabilities() error {
	s.scripts = script.NewRegistry()
	s.caps = capability.NewRegistry()

	caps := []capability.Capability{
		capability.NewEcho(),
		textkit.New(),
		script.NewCapability(s.scripts),
		artifact.NewCapability(s.artifacts),
	}
	if s.cfg.RedisAddr != "" {
		caps = append(caps, kvstore.NewCapability(s.pool, kvstore.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		}))
	}

	var remotes []*remote.Capability
	timeout := time.Duration(s.cfg.StepTimeout) * time.Millisecond
	for _, rc := range s.cfg.RemoteCapabilities {
		target := remote.New(rc.Name, rc.URL, timeout)
		remotes = append(remotes, target)
		caps = append(caps, target)
	}

	for _, c := range caps {
		if err := s.caps.Register(c); err != nil {
			return fmt.Errorf("%w: %w", ErrRegisterCapability, err)
		}
	}

	if len(remotes) > 0 {
		s.health = remote.NewHealthChecker(s.hub, remotes)
		s.health.Start()
	}

	s.runner = workflow.NewRunner(s.caps, s.hub)
	return nil
}

func (s *cascade) initializePresets() error {
	s.presets = preset.NewRegistry()
	if err := s.presets.LoadDir(s.cfg.PresetDir); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadPresets, err)
	}
	return nil
}

func (s *cascade) startServer() {
	s.apiServer = server.NewServer(&server.Deps{
		Runner:    s.runner,
		Caps:      s.caps,
		Presets:   s.presets,
		Scripts:   s.scripts,
		Artifacts: s.artifacts,
		Health:    s.health,
		Hub:       s.hub,
		Pool:      s.pool,
		Config:    s.cfg,
	})
	router := s.apiServer.SetupRoutes()

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

func (s *cascade) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	if s.health != nil {
		s.health.Stop()
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	s.pool.Purge()
	s.hub.Close()

	if err := s.artifacts.Close(); err != nil {
		slog.Error("Artifact store close failed", log.Error(err))
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
