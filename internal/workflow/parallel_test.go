package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/hollowgrove/cascade/internal/assert"
	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
)

func newGroupExecutor(t *testing.T) *workflow.GroupExecutor {
	t.Helper()
	reg := newStepRegistry(t, map[string]capability.Func{
		"sleep": func(ctx context.Context, payload api.Args) (api.Args, error) {
			ms := payload.GetInt64("ms", 0)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return api.Args{"ms": ms}, nil
			}
		},
		"fail": func(context.Context, api.Args) (api.Args, error) {
			return api.Args{"error": "member failed"}, nil
		},
		"stall": func(context.Context, api.Args) (api.Args, error) {
			time.Sleep(10 * time.Second)
			return api.Args{"done": true}, nil
		},
	})
	return workflow.NewGroupExecutor(workflow.NewStepExecutor(reg))
}

func sleepMember(name api.Name, ms int64) *workflow.ResolvedStep {
	return &workflow.ResolvedStep{
		Step: &api.StepSpec{
			Name:       name,
			Capability: "test",
			Operation:  "sleep",
		},
		Payload: api.Args{"ms": ms},
	}
}

func opMember(name api.Name, operation string) *workflow.ResolvedStep {
	return &workflow.ResolvedStep{
		Step: &api.StepSpec{
			Name:       name,
			Capability: "test",
			Operation:  operation,
		},
	}
}

func TestGroupRunCompletionOrder(t *testing.T) {
	as := assert.New(t)

	exec := newGroupExecutor(t)
	members := []*workflow.ResolvedStep{
		sleepMember("slow", 120),
		sleepMember("fast", 5),
		sleepMember("mid", 60),
	}

	results, dropped := exec.Run(
		context.Background(), &api.GroupSpec{Name: "g"}, members,
	)

	as.Require.Len(results, 3)
	as.Empty(dropped)
	as.Equal(api.Name("fast"), results[0].Name)
	as.Equal(api.Name("mid"), results[1].Name)
	as.Equal(api.Name("slow"), results[2].Name)
	for _, res := range results {
		as.ResultOK(res)
	}
}

func TestGroupRunDeadlineDropsUnfinished(t *testing.T) {
	as := assert.New(t)

	exec := newGroupExecutor(t)
	members := []*workflow.ResolvedStep{
		sleepMember("fast", 5),
		opMember("stuck", "stall"),
	}

	results, dropped := exec.Run(
		context.Background(), &api.GroupSpec{Name: "g", Timeout: 80}, members,
	)

	as.Require.Len(results, 1)
	as.Equal(api.Name("fast"), results[0].Name)
	as.Equal([]api.Name{"stuck"}, dropped)
}

func TestGroupRunFailuresIncluded(t *testing.T) {
	as := assert.New(t)

	exec := newGroupExecutor(t)
	members := []*workflow.ResolvedStep{
		opMember("broken", "fail"),
		sleepMember("healthy", 1),
	}

	results, dropped := exec.Run(
		context.Background(), &api.GroupSpec{Name: "g"}, members,
	)

	as.Require.Len(results, 2)
	as.Empty(dropped)

	byName := map[api.Name]*api.StepResult{}
	for _, res := range results {
		byName[res.Name] = res
	}
	as.ResultFailed(byName["broken"], "member failed")
	as.ResultOK(byName["healthy"])
}

func TestGroupRunNoTimeout(t *testing.T) {
	as := assert.New(t)

	exec := newGroupExecutor(t)
	members := []*workflow.ResolvedStep{sleepMember("only", 50)}

	results, dropped := exec.Run(
		context.Background(), &api.GroupSpec{Name: "g"}, members,
	)

	as.Require.Len(results, 1)
	as.Empty(dropped)
	as.ResultOK(results[0])
}

func TestGroupRunParentCancelled(t *testing.T) {
	as := assert.New(t)

	exec := newGroupExecutor(t)
	members := []*workflow.ResolvedStep{
		sleepMember("fast", 5),
		opMember("stuck", "stall"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	results, dropped := exec.Run(ctx, &api.GroupSpec{Name: "g"}, members)

	as.Require.Len(results, 1)
	as.Equal(api.Name("fast"), results[0].Name)
	as.Equal([]api.Name{"stuck"}, dropped)
}
