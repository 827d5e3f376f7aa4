package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Getter exposes recorded step outputs for context assertions
	Getter interface {
		Lookup(step api.Name) (api.Args, bool)
	}

	// Wrapper wraps testify assertions with Cascade-specific helpers
	Wrapper struct {
		*testing.T
		*assert.Assertions
		Require *assert.Assertions
	}
)

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus Cascade-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// StepValid asserts that a step spec is valid
func (w *Wrapper) StepValid(s *api.StepSpec) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotEmpty(s.Name)
	w.NotEmpty(s.Capability)
	w.NotEmpty(s.Operation)
}

// StepInvalid asserts that a step spec is invalid and returns the validation
// error
func (w *Wrapper) StepInvalid(
	s *api.StepSpec, expectedErrorContains string,
) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// WorkflowValid asserts that a workflow spec is valid
func (w *Wrapper) WorkflowValid(spec *api.WorkflowSpec) {
	w.Helper()
	w.NoError(spec.Validate())
	w.NotEmpty(spec.Sequence)
}

// WorkflowInvalid asserts that a workflow spec is invalid and returns the
// validation error
func (w *Wrapper) WorkflowInvalid(
	spec *api.WorkflowSpec, expectedErrorContains string,
) error {
	w.Helper()
	err := spec.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// ResultOK asserts that a step result succeeded
func (w *Wrapper) ResultOK(r *api.StepResult) {
	w.Helper()
	w.NotNil(r)
	if r == nil {
		return
	}
	w.True(r.OK, "step %s should have succeeded: %s", r.Name, r.Error)
	w.Empty(r.Error)
}

// ResultFailed asserts that a step result failed
func (w *Wrapper) ResultFailed(r *api.StepResult, contains string) {
	w.Helper()
	w.NotNil(r)
	if r == nil {
		return
	}
	w.False(r.OK, "step %s should have failed", r.Name)
	w.Nil(r.Output)
	if contains != "" {
		w.Contains(r.Error, contains)
	}
}

// ContextHasSteps asserts that outputs were recorded for specific steps
func (w *Wrapper) ContextHasSteps(get Getter, steps ...api.Name) {
	w.Helper()
	for _, step := range steps {
		_, ok := get.Lookup(step)
		w.True(ok, "context should have step output: %s", step)
	}
}

// ContextStepEquals asserts that a recorded step output key has the expected
// value
func (w *Wrapper) ContextStepEquals(
	get Getter, step api.Name, key api.Name, expected any,
) {
	w.Helper()
	out, ok := get.Lookup(step)
	w.True(ok, "context should have step output: %s", step)
	if !ok {
		return
	}
	w.Equal(expected, out[key])
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.StepTimeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}

// EventuallyWithError runs a condition that returns an error until it succeeds
// or times out
func (w *Wrapper) EventuallyWithError(
	condition func() error, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		err := condition()
		if err == nil {
			return
		}
		lastErr = err
		time.Sleep(DefaultRetryInterval)
	}
	if lastErr != nil {
		w.Fail(msg+": last error: "+lastErr.Error(), args...)
		return
	}
	w.Fail(msg, args...)
}
