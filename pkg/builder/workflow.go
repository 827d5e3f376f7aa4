package builder

import (
	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Workflow assembles an api.WorkflowSpec: an ordered sequence of steps
	// and parallel groups, an optional return target, and an optional
	// rerank policy
	Workflow struct {
		rerank *api.RerankSpec
		name   api.Name
		ret    api.Name
		units  []unit
	}

	unit struct {
		step  *Step
		group *Group
	}
)

// NewWorkflow creates a new workflow builder with the specified name
func NewWorkflow(name api.Name) *Workflow {
	return &Workflow{
		name:  name,
		units: []unit{},
	}
}

// WithStep appends a step to the workflow's sequence
func (w *Workflow) WithStep(step *Step) *Workflow {
	return w.withUnit(unit{step: step})
}

// WithGroup appends a parallel group to the workflow's sequence
func (w *Workflow) WithGroup(group *Group) *Workflow {
	return w.withUnit(unit{group: group})
}

// WithReturn names the unit whose output becomes the run's sole result
func (w *Workflow) WithReturn(target api.Name) *Workflow {
	res := *w
	res.ret = target
	return &res
}

// WithRerank selects a built-in winner policy for parallel groups
func (w *Workflow) WithRerank(builtin string) *Workflow {
	res := *w
	res.rerank = &api.RerankSpec{Builtin: builtin}
	return &res
}

// WithRerankScript selects group winners with an inline script. The
// script receives the successful results and returns a step name
func (w *Workflow) WithRerankScript(language, script string) *Workflow {
	res := *w
	res.rerank = &api.RerankSpec{
		Language: language,
		Script:   script,
	}
	return &res
}

func (w *Workflow) withUnit(u unit) *Workflow {
	res := *w
	res.units = make([]unit, len(w.units)+1)
	copy(res.units, w.units)
	res.units[len(w.units)] = u
	return &res
}

func (w *Workflow) Build() (*api.WorkflowSpec, error) {
	seq := make([]*api.Unit, len(w.units))
	for i, u := range w.units {
		if u.step != nil {
			step, err := u.step.Build()
			if err != nil {
				return nil, err
			}
			seq[i] = &api.Unit{Step: step}
			continue
		}
		group, err := u.group.Build()
		if err != nil {
			return nil, err
		}
		seq[i] = &api.Unit{Group: group}
	}

	spec := &api.WorkflowSpec{
		Rerank:       w.rerank,
		Name:         w.name,
		ReturnTarget: w.ret,
		Sequence:     seq,
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}
