package helpers

import (
	"github.com/google/uuid"

	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/pkg/api"
)

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestStep creates a basic echo step with a unique name
func NewTestStep() *api.StepSpec {
	return &api.StepSpec{
		Name:       api.Name("test-step-" + uuid.New().String()[:8]),
		Capability: "echo",
		Operation:  "ping",
		Timeout:    5 * api.Second,
	}
}

// NewStepFor creates a step invoking a specific capability operation
func NewStepFor(
	name api.Name, capability, operation string, payload api.Args,
) *api.StepSpec {
	return &api.StepSpec{
		Name:       name,
		Capability: capability,
		Operation:  operation,
		Payload:    payload,
		Timeout:    5 * api.Second,
	}
}

// NewTestGroup creates a parallel group over the given steps
func NewTestGroup(name api.Name, steps ...*api.StepSpec) *api.GroupSpec {
	return &api.GroupSpec{
		Name:    name,
		Steps:   steps,
		Timeout: 10 * api.Second,
	}
}

// StepUnit wraps a step as a sequence unit
func StepUnit(step *api.StepSpec) *api.Unit {
	return &api.Unit{Step: step}
}

// GroupUnit wraps a group as a sequence unit
func GroupUnit(group *api.GroupSpec) *api.Unit {
	return &api.Unit{Group: group}
}

// NewTestWorkflow creates a workflow over the given units
func NewTestWorkflow(name api.Name, units ...*api.Unit) *api.WorkflowSpec {
	return &api.WorkflowSpec{
		Name:     name,
		Sequence: units,
	}
}
