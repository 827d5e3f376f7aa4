package builder

import (
	"maps"

	"github.com/hollowgrove/cascade/pkg/api"
)

// Step assembles an api.StepSpec. Timeouts and backoffs are in
// milliseconds; zero values defer to the server's configured defaults
type Step struct {
	payload      api.Args
	name         api.Name
	capability   string
	operation    string
	timeout      int64
	retries      int
	retryBackoff int64
}

// NewStep creates a new step builder with the specified name
func NewStep(name api.Name) *Step {
	return &Step{
		name:    name,
		payload: api.Args{},
	}
}

// WithCapability sets the capability the step invokes
func (s *Step) WithCapability(name string) *Step {
	res := *s
	res.capability = name
	return &res
}

// WithOperation sets the operation invoked on the step's capability
func (s *Step) WithOperation(name string) *Step {
	res := *s
	res.operation = name
	return &res
}

// WithPayload replaces the step's payload
func (s *Step) WithPayload(payload api.Args) *Step {
	res := *s
	res.payload = maps.Clone(payload)
	if res.payload == nil {
		res.payload = api.Args{}
	}
	return &res
}

// WithInput sets a single payload entry. Values may carry placeholder
// strings produced by Ref, resolved against run context before dispatch
func (s *Step) WithInput(name api.Name, value any) *Step {
	res := *s
	res.payload = maps.Clone(s.payload)
	res.payload[name] = value
	return &res
}

func (s *Step) WithTimeout(timeout int64) *Step {
	res := *s
	res.timeout = timeout
	return &res
}

func (s *Step) WithRetries(count int) *Step {
	res := *s
	res.retries = count
	return &res
}

func (s *Step) WithRetryBackoff(backoff int64) *Step {
	res := *s
	res.retryBackoff = backoff
	return &res
}

func (s *Step) Build() (*api.StepSpec, error) {
	step := &api.StepSpec{
		Payload:      maps.Clone(s.payload),
		Name:         s.name,
		Capability:   s.capability,
		Operation:    s.operation,
		Timeout:      s.timeout,
		Retries:      s.retries,
		RetryBackoff: s.retryBackoff,
	}

	if err := step.Validate(); err != nil {
		return nil, err
	}

	return step, nil
}

// Ref produces a placeholder string resolved against run context at
// dispatch time. The path is either an initial input name or a dotted
// step.field pair, as in Ref("fetch.body")
func Ref(path string) string {
	return "{" + path + "}"
}
