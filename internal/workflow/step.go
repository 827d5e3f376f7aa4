package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Resolver locates a capability by name
	Resolver interface {
		Get(name string) (capability.Capability, error)
	}

	// StepExecutor runs one step at a time: it resolves the capability,
	// invokes the operation under a per-attempt deadline, applies the
	// step's retry policy, and normalizes every outcome into a StepResult.
	// It never returns an error; failures become StepResults with ok=false
	StepExecutor struct {
		resolve Resolver
	}

	invokeOutcome struct {
		output api.Args
		err    error
	}
)

// ErrStepTimeout reports that a single attempt exceeded the step's timeout
var ErrStepTimeout = errors.New("step timed out")

// NewStepExecutor creates a step executor backed by the given resolver
func NewStepExecutor(resolve Resolver) *StepExecutor {
	return &StepExecutor{resolve: resolve}
}

// Run executes a step with an already resolved payload. The result's
// elapsed time spans every attempt. An unknown capability fails
// immediately without retries; invocation errors and timeouts are retried
// per the step's policy, and the last attempt's error is the one reported
func (e *StepExecutor) Run(
	ctx context.Context, step *api.StepSpec, payload api.Args,
) *api.StepResult {
	start := time.Now()

	target, err := e.resolve.Get(step.Capability)
	if err != nil {
		return failure(step.Name, start, err.Error())
	}

	lastErr := ""
	for attempt := 0; attempt <= step.Retries; attempt++ {
		output, err := e.attempt(ctx, target, step, payload)
		if err == nil {
			return classify(step.Name, start, output)
		}
		lastErr = err.Error()

		if ctx.Err() != nil {
			break
		}
		if attempt < step.Retries && step.RetryBackoff > 0 {
			backoff := time.Duration(step.RetryBackoff) * time.Millisecond
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return failure(step.Name, start, lastErr)
			case <-timer.C:
			}
		}
	}

	if lastErr == "" {
		lastErr = "step failed"
	}
	return failure(step.Name, start, lastErr)
}

// attempt performs one invocation bounded by the step's timeout. The
// capability call runs in its own goroutine so a handler that ignores
// cancellation cannot hold up the attempt past its deadline
func (e *StepExecutor) attempt(
	ctx context.Context, target capability.Capability, step *api.StepSpec,
	payload api.Args,
) (api.Args, error) {
	attemptCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(
			ctx, time.Duration(step.Timeout)*time.Millisecond,
		)
		defer cancel()
	}

	done := make(chan invokeOutcome, 1)
	go func() {
		output, err := target.Invoke(attemptCtx, step.Operation, payload)
		done <- invokeOutcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) &&
			ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %dms", ErrStepTimeout, step.Timeout)
		}
		return out.output, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %dms", ErrStepTimeout, step.Timeout)
	}
}

// classify turns a returned value into a StepResult. A map without an
// "error" key is a success; a map carrying one fails with that value as
// the message, and a nil return fails outright
func classify(name api.Name, start time.Time, output api.Args) *api.StepResult {
	if output == nil {
		return failure(name, start, "unknown error")
	}
	if v, ok := output["error"]; ok {
		msg := ""
		if v != nil {
			msg = fmt.Sprintf("%v", v)
		}
		if msg == "" {
			msg = "step reported an error"
		}
		return failure(name, start, msg)
	}
	return &api.StepResult{
		Name:       name,
		OK:         true,
		Output:     output,
		ElapsedSec: elapsedSince(start),
	}
}

func failure(name api.Name, start time.Time, msg string) *api.StepResult {
	return &api.StepResult{
		Name:       name,
		Error:      msg,
		ElapsedSec: elapsedSince(start),
	}
}

func elapsedSince(start time.Time) float64 {
	return math.Round(time.Since(start).Seconds()*1000) / 1000
}
