package helpers

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/capability/textkit"
	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/events"
)

// TestRunEnv holds the components needed for runner and server testing
type TestRunEnv struct {
	Registry *capability.Registry
	Recorder *RecordingCapability
	Runner   *workflow.Runner
	Hub      *events.Hub
	Config   *config.Config
	Cleanup  func()
}

// NewTestRun creates a run environment with the built-in capabilities, a
// recording capability registered as "mock", and an event hub
func NewTestRun(t *testing.T) *TestRunEnv {
	t.Helper()

	reg := capability.NewRegistry()
	rec := NewRecording("mock")
	require.NoError(t, reg.Register(rec))
	require.NoError(t, reg.Register(capability.NewEcho()))
	require.NoError(t, reg.Register(textkit.New()))

	hub := events.NewHub()
	runner := workflow.NewRunner(reg, hub)

	cfg := NewTestConfig()
	cfg.APIHost = "localhost"
	cfg.StepTimeout = 5 * api.Second
	cfg.GroupTimeout = 10 * api.Second
	cfg.ShutdownTimeout = 2 * time.Second

	return &TestRunEnv{
		Registry: reg,
		Recorder: rec,
		Runner:   runner,
		Hub:      hub,
		Config:   cfg,
		Cleanup:  hub.Close,
	}
}

// WithRunEnv runs a test function against a fresh run environment
func WithRunEnv(t *testing.T, fn func(*TestRunEnv)) {
	t.Helper()
	env := NewTestRun(t)
	defer env.Cleanup()
	fn(env)
}

// WithRedis runs a test function against an in-memory Redis server
func WithRedis(t *testing.T, fn func(addr string, mr *miniredis.Miniredis)) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()
	fn(server.Addr(), server)
}
