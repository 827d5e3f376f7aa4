package capability

import (
	"context"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
)

// DefaultSleepMs bounds the sleep operation when no duration is provided
const DefaultSleepMs = 100

// NewEcho creates the echo capability. Its operations are intentionally
// trivial: ping reflects the payload, fail reports a failure through the
// output map, and sleep blocks until the duration elapses or the context
// is cancelled
func NewEcho() *Map {
	return NewMap("echo", map[string]Func{
		"ping":  echoPing,
		"fail":  echoFail,
		"sleep": echoSleep,
	})
}

func echoPing(_ context.Context, payload api.Args) (api.Args, error) {
	res := payload.Set("pong", true)
	return res, nil
}

func echoFail(_ context.Context, payload api.Args) (api.Args, error) {
	msg := payload.GetString("message", "echo failure requested")
	return api.Args{"error": msg}, nil
}

func echoSleep(ctx context.Context, payload api.Args) (api.Args, error) {
	ms := payload.GetInt64("duration_ms", DefaultSleepMs)
	if ms <= 0 {
		ms = DefaultSleepMs
	}
	d := time.Duration(ms) * time.Millisecond

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return api.Args{"slept_ms": ms}, nil
	}
}
