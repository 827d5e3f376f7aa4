package builder

import (
	"github.com/hollowgrove/cascade/pkg/api"
)

// Group assembles an api.GroupSpec whose steps run concurrently under a
// shared deadline
type Group struct {
	steps   []*Step
	name    api.Name
	timeout int64
}

// NewGroup creates a new group builder with the specified name
func NewGroup(name api.Name) *Group {
	return &Group{
		name:  name,
		steps: []*Step{},
	}
}

// WithSteps replaces the group's member steps
func (g *Group) WithSteps(steps ...*Step) *Group {
	res := *g
	res.steps = make([]*Step, len(steps))
	copy(res.steps, steps)
	return &res
}

// WithStep appends a single member step to the group
func (g *Group) WithStep(step *Step) *Group {
	res := *g
	res.steps = make([]*Step, len(g.steps)+1)
	copy(res.steps, g.steps)
	res.steps[len(g.steps)] = step
	return &res
}

// WithTimeout sets the shared deadline for the group in milliseconds.
// Zero defers to the server's configured default
func (g *Group) WithTimeout(timeout int64) *Group {
	res := *g
	res.timeout = timeout
	return &res
}

func (g *Group) Build() (*api.GroupSpec, error) {
	steps := make([]*api.StepSpec, len(g.steps))
	for i, s := range g.steps {
		step, err := s.Build()
		if err != nil {
			return nil, err
		}
		steps[i] = step
	}

	group := &api.GroupSpec{
		Name:    g.name,
		Steps:   steps,
		Timeout: g.timeout,
	}

	if err := group.Validate(); err != nil {
		return nil, err
	}

	return group, nil
}
