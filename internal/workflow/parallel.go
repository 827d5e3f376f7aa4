package workflow

import (
	"context"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/util"
)

type (
	// ResolvedStep pairs a group member with its resolved payload
	ResolvedStep struct {
		Step    *api.StepSpec
		Payload api.Args
	}

	// GroupExecutor runs a parallel group: every member starts
	// concurrently, and the group deadline cancels whatever has not
	// finished. Cancelled members are excluded from the returned results
	GroupExecutor struct {
		steps *StepExecutor
	}
)

// NewGroupExecutor creates a parallel group executor that runs members
// through the given step executor
func NewGroupExecutor(steps *StepExecutor) *GroupExecutor {
	return &GroupExecutor{steps: steps}
}

// Run executes every member concurrently and collects results in
// completion order until all members finish or the group deadline
// elapses. The second return value names the members cancelled at the
// deadline. Retries remain a per-step concern inside the member runs
func (e *GroupExecutor) Run(
	ctx context.Context, group *api.GroupSpec, members []*ResolvedStep,
) ([]*api.StepResult, []api.Name) {
	groupCtx := ctx
	var cancel context.CancelFunc
	if group.Timeout > 0 {
		groupCtx, cancel = context.WithTimeout(
			ctx, time.Duration(group.Timeout)*time.Millisecond,
		)
	} else {
		groupCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan *api.StepResult, len(members))
	for _, m := range members {
		go func() {
			res := e.steps.Run(groupCtx, m.Step, m.Payload)
			if !res.OK && groupCtx.Err() != nil {
				// interrupted by group cancellation rather than finished
				return
			}
			done <- res
		}()
	}

	results := make([]*api.StepResult, 0, len(members))
	finished := util.Set[api.Name]{}

collect:
	for range members {
		select {
		case res := <-done:
			results = append(results, res)
			finished.Add(res.Name)
		case <-groupCtx.Done():
			// grab anything that completed before the deadline fired
			for len(results) < len(members) {
				select {
				case res := <-done:
					results = append(results, res)
					finished.Add(res.Name)
				default:
					break collect
				}
			}
			break collect
		}
	}

	var dropped []api.Name
	for _, m := range members {
		if !finished.Contains(m.Step.Name) {
			dropped = append(dropped, m.Step.Name)
		}
	}
	return results, dropped
}
