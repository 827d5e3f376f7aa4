package assert

import (
	"errors"
	"testing"
	"time"

	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/pkg/api"
)

type mockGetter struct {
	outputs map[api.Name]api.Args
}

func (g *mockGetter) Lookup(step api.Name) (api.Args, bool) {
	out, ok := g.outputs[step]
	return out, ok
}

func TestNew(t *testing.T) {
	wrapper := New(t)

	if wrapper.T != t {
		t.Error("Wrapper.T should be set to the testing.T instance")
	}
	if wrapper.Assertions == nil {
		t.Error("Wrapper.Assertions should be initialized")
	}
	if wrapper.Require == nil {
		t.Error("Wrapper.Require should be initialized")
	}
}

func TestStepValid(t *testing.T) {
	as := New(t)

	as.StepValid(&api.StepSpec{
		Name:       "fetch",
		Capability: "echo",
		Operation:  "ping",
		Timeout:    5 * api.Second,
	})
	as.StepValid(&api.StepSpec{
		Name:       "retryful",
		Capability: "echo",
		Operation:  "ping",
		Retries:    3,
	})
}

func TestStepInvalid(t *testing.T) {
	as := New(t)

	err := as.StepInvalid(&api.StepSpec{
		Capability: "echo",
		Operation:  "ping",
	}, "step name empty")
	as.ErrorIs(err, api.ErrStepNameEmpty)

	err = as.StepInvalid(&api.StepSpec{
		Name:      "fetch",
		Operation: "ping",
	}, "capability empty")
	as.ErrorIs(err, api.ErrCapabilityEmpty)

	err = as.StepInvalid(&api.StepSpec{
		Name:       "fetch",
		Capability: "echo",
		Operation:  "ping",
		Timeout:    -1,
	}, "timeout cannot be negative")
	as.ErrorIs(err, api.ErrNegativeTimeout)
}

func TestWorkflowValid(t *testing.T) {
	as := New(t)

	as.WorkflowValid(&api.WorkflowSpec{
		Name: "wf",
		Sequence: []*api.Unit{
			{Step: &api.StepSpec{
				Name:       "fetch",
				Capability: "echo",
				Operation:  "ping",
			}},
		},
	})
}

func TestWorkflowInvalid(t *testing.T) {
	as := New(t)

	err := as.WorkflowInvalid(
		&api.WorkflowSpec{Name: "wf"}, "sequence empty",
	)
	as.ErrorIs(err, api.ErrEmptySequence)

	err = as.WorkflowInvalid(&api.WorkflowSpec{
		Name: "wf",
		Sequence: []*api.Unit{
			{Step: &api.StepSpec{
				Name:       "dup",
				Capability: "echo",
				Operation:  "ping",
			}},
			{Step: &api.StepSpec{
				Name:       "dup",
				Capability: "echo",
				Operation:  "ping",
			}},
		},
	}, "duplicate name")
	as.ErrorIs(err, api.ErrDuplicateName)
}

func TestResultOK(t *testing.T) {
	as := New(t)

	as.ResultOK(&api.StepResult{
		Name:       "fetch",
		OK:         true,
		Output:     api.Args{"text": "hi"},
		ElapsedSec: 0.001,
	})
}

func TestResultFailed(t *testing.T) {
	as := New(t)

	as.ResultFailed(&api.StepResult{
		Name:  "fetch",
		Error: "connection refused",
	}, "refused")

	// any failure matches an empty contains
	as.ResultFailed(&api.StepResult{
		Name:  "fetch",
		Error: "whatever",
	}, "")
}

func TestContextAssertions(t *testing.T) {
	as := New(t)

	get := &mockGetter{outputs: map[api.Name]api.Args{
		"fetch":  {"text": "hello"},
		"failed": nil,
	}}

	as.ContextHasSteps(get, "fetch", "failed")
	as.ContextStepEquals(get, "fetch", "text", "hello")
}

func TestConfigAssertions(t *testing.T) {
	as := New(t)

	as.ConfigValid(config.NewDefaultConfig())

	bad := config.NewDefaultConfig()
	bad.APIPort = -1
	as.ConfigInvalid(bad, "invalid API port")
}

func TestEventually(t *testing.T) {
	as := New(t)

	calls := 0
	as.Eventually(func() bool {
		calls++
		return calls >= 2
	}, time.Second, "condition should pass")
}

func TestEventuallyWithError(t *testing.T) {
	as := New(t)

	calls := 0
	as.EventuallyWithError(func() error {
		calls++
		if calls < 2 {
			return errors.New("not yet")
		}
		return nil
	}, time.Second, "condition should settle")
}
