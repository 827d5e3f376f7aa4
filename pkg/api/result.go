package api

type (
	// UnitKind tags a report entry as a single step or a parallel group
	UnitKind string

	// StepResult captures the outcome of one step execution. Output is nil
	// when the step failed. ElapsedSec spans every attempt of the step
	StepResult struct {
		Output     Args    `json:"output,omitempty"`
		Name       Name    `json:"name"`
		Error      string  `json:"error,omitempty"`
		ElapsedSec float64 `json:"elapsed_sec"`
		OK         bool    `json:"ok"`
	}

	// GroupResult captures the outcome of a parallel group. Results holds
	// the members that completed before the group deadline, in completion
	// order. Dropped names the members cancelled at the deadline. Winner is
	// empty when no member succeeded
	GroupResult struct {
		Name    Name          `json:"name"`
		Winner  Name          `json:"winner,omitempty"`
		Results []*StepResult `json:"results"`
		Dropped []Name        `json:"dropped,omitempty"`
	}

	// ReportEntry is one unit of the run report, in declaration order
	ReportEntry struct {
		Step  *StepResult  `json:"step,omitempty"`
		Group *GroupResult `json:"group,omitempty"`
		Kind  UnitKind     `json:"kind"`
	}

	// RunReport is the complete record of one workflow run: every unit's
	// outcome plus the final step-output context. Output carries the return
	// target's output when the spec declared one
	RunReport struct {
		Context    Args           `json:"context"`
		Output     Args           `json:"result,omitempty"`
		Workflow   Name           `json:"workflow"`
		RunID      string         `json:"run_id"`
		Entries    []*ReportEntry `json:"report"`
		ElapsedSec float64        `json:"elapsed_sec"`
	}
)

const (
	UnitKindStep     UnitKind = "step"
	UnitKindParallel UnitKind = "parallel"
)

// Lookup returns the output recorded for a named unit during the run. The
// boolean reports whether the unit completed at all; a failed unit yields
// (nil, true)
func (r *RunReport) Lookup(name Name) (Args, bool) {
	out, ok := r.Context[name]
	if !ok || out == nil {
		return nil, ok
	}
	args, ok := out.(Args)
	return args, ok
}

// StepEntry wraps a step result as a report entry
func StepEntry(res *StepResult) *ReportEntry {
	return &ReportEntry{Kind: UnitKindStep, Step: res}
}

// GroupEntry wraps a group result as a report entry
func GroupEntry(res *GroupResult) *ReportEntry {
	return &ReportEntry{Kind: UnitKindParallel, Group: res}
}
