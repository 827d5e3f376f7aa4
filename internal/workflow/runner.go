package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/events"
	"github.com/hollowgrove/cascade/pkg/log"
)

// Runner drives a workflow spec to completion: units run in declaration
// order, steps sequentially and groups concurrently, with every output
// recorded into the run context before the next unit resolves its payload.
// A failed unit records a nil output and the run continues
type Runner struct {
	steps  *StepExecutor
	groups *GroupExecutor
	sink   events.Sink
}

// NewRunner constructs a runner over the given capability resolver. Run
// events are published to sink, which may be nil
func NewRunner(resolve Resolver, sink events.Sink) *Runner {
	steps := NewStepExecutor(resolve)
	return &Runner{
		steps:  steps,
		groups: NewGroupExecutor(steps),
		sink:   sink,
	}
}

// Run executes the workflow and returns its report. The report includes
// every unit outcome and the final context snapshot. When the spec names a
// return target, the report's Output carries that unit's recorded output
func (r *Runner) Run(
	ctx context.Context, spec *api.WorkflowSpec, inputs api.Args,
) (*api.RunReport, error) {
	if len(spec.Sequence) == 0 {
		return nil, api.ErrEmptySequence
	}

	runID := uuid.NewString()
	start := time.Now()
	store := NewContext(inputs)

	slog.Info("Workflow run starting",
		log.RunID(runID), log.Workflow(spec.Name),
		slog.Int("units", len(spec.Sequence)),
	)
	r.publish(events.RunStarted, runID, spec.Name, "", api.Args{
		"units": len(spec.Sequence),
	})

	entries := make([]*api.ReportEntry, 0, len(spec.Sequence))
	for _, unit := range spec.Sequence {
		switch {
		case unit.Step != nil:
			entries = append(entries, r.runStep(ctx, runID, spec, store, unit.Step))
		case unit.Group != nil:
			entries = append(entries, r.runGroup(ctx, runID, spec, store, unit.Group))
		}
	}

	report := &api.RunReport{
		RunID:      runID,
		Workflow:   spec.Name,
		Entries:    entries,
		Context:    store.Snapshot(),
		ElapsedSec: elapsedSince(start),
	}

	if spec.ReturnTarget != "" {
		out, ok := store.Lookup(spec.ReturnTarget)
		if !ok {
			err := fmt.Errorf("%w: %s", api.ErrReturnTargetMissing, spec.ReturnTarget)
			slog.Warn("Workflow run failed",
				log.RunID(runID), log.Workflow(spec.Name), log.Error(err),
			)
			r.publish(events.RunFailed, runID, spec.Name, spec.ReturnTarget, api.Args{
				"error": err.Error(),
			})
			return nil, err
		}
		report.Output = out
	}

	slog.Info("Workflow run completed",
		log.RunID(runID), log.Workflow(spec.Name),
		slog.Float64("elapsed_sec", report.ElapsedSec),
	)
	r.publish(events.RunCompleted, runID, spec.Name, "", api.Args{
		"elapsed_sec": report.ElapsedSec,
	})
	return report, nil
}

func (r *Runner) runStep(
	ctx context.Context, runID string, spec *api.WorkflowSpec,
	store *Context, step *api.StepSpec,
) *api.ReportEntry {
	payload, _ := store.Resolve(step.Payload).(api.Args)

	r.publish(events.StepStarted, runID, spec.Name, step.Name, nil)
	res := r.steps.Run(ctx, step, payload)
	if res.OK {
		store.Record(step.Name, res.Output)
		slog.Debug("Step completed",
			log.RunID(runID), log.Step(step.Name),
			slog.Float64("elapsed_sec", res.ElapsedSec),
		)
		r.publish(events.StepCompleted, runID, spec.Name, step.Name, api.Args{
			"elapsed_sec": res.ElapsedSec,
			"capability":  step.Capability,
		})
	} else {
		store.Record(step.Name, nil)
		slog.Warn("Step failed",
			log.RunID(runID), log.Step(step.Name), log.ErrorString(res.Error),
		)
		r.publish(events.StepFailed, runID, spec.Name, step.Name, api.Args{
			"error": res.Error,
		})
	}
	return api.StepEntry(res)
}

func (r *Runner) runGroup(
	ctx context.Context, runID string, spec *api.WorkflowSpec,
	store *Context, group *api.GroupSpec,
) *api.ReportEntry {
	members := make([]*ResolvedStep, len(group.Steps))
	for i, s := range group.Steps {
		payload, _ := store.Resolve(s.Payload).(api.Args)
		members[i] = &ResolvedStep{Step: s, Payload: payload}
	}

	r.publish(events.GroupStarted, runID, spec.Name, group.Name, api.Args{
		"members": len(members),
	})
	results, dropped := r.groups.Run(ctx, group, members)

	var oks []*api.StepResult
	for _, res := range results {
		if res.OK {
			oks = append(oks, res)
		}
	}

	winner := selectWinner(spec.RerankFn, oks)
	groupRes := &api.GroupResult{
		Name:    group.Name,
		Results: results,
		Dropped: dropped,
	}
	if winner != nil {
		groupRes.Winner = winner.Name
		store.Record(group.Name, winner.Output)
	} else {
		store.Record(group.Name, nil)
	}

	slog.Debug("Group completed",
		log.RunID(runID), log.Group(group.Name),
		slog.Int("completed", len(results)),
		slog.Int("dropped", len(dropped)),
		slog.String("winner", string(groupRes.Winner)),
	)
	r.publish(events.GroupCompleted, runID, spec.Name, group.Name, api.Args{
		"completed": len(results),
		"dropped":   len(dropped),
		"winner":    string(groupRes.Winner),
	})
	return api.GroupEntry(groupRes)
}

// selectWinner applies the spec's rerank policy over the successful member
// results. A nil policy falls back to the earliest success, as does a
// policy that declines to pick
func selectWinner(fn api.RerankFunc, oks []*api.StepResult) *api.StepResult {
	if len(oks) == 0 {
		return nil
	}
	if fn == nil {
		return SelectFirst(oks)
	}
	if winner := fn(oks); winner != nil {
		return winner
	}
	return SelectFirst(oks)
}

func (r *Runner) publish(
	typ events.Type, runID string, workflow, unit api.Name, data api.Args,
) {
	events.Publish(r.sink, events.New(typ, runID, workflow, unit, data))
}
