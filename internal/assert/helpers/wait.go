package helpers

import (
	"testing"
	"time"

	"github.com/kode4food/caravan/topic"

	"github.com/hollowgrove/cascade/pkg/events"
)

// EventWaiter waits for a run event matching a filter. Create it before
// triggering the action so no event is missed
type EventWaiter struct {
	consumer topic.Consumer[*events.Event]
	filter   events.Filter
	desc     string // for error messages
}

// NewEventWaiter subscribes to the hub for events matching the filter
func NewEventWaiter(
	hub *events.Hub, filter events.Filter, desc string,
) *EventWaiter {
	return &EventWaiter{
		consumer: hub.NewConsumer(),
		filter:   filter,
		desc:     desc,
	}
}

// Wait blocks until a matching event arrives and returns it, failing the
// test when the timeout expires first
func (w *EventWaiter) Wait(t *testing.T, timeout time.Duration) *events.Event {
	t.Helper()
	defer w.consumer.Close()

	deadline := time.After(timeout)
	for {
		select {
		case ev := <-w.consumer.Receive():
			if ev != nil && w.filter(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", w.desc)
			return nil
		}
	}
}

// SubscribeToRunStatus creates a waiter for a run's terminal event
func (env *TestRunEnv) SubscribeToRunStatus() *EventWaiter {
	return NewEventWaiter(
		env.Hub,
		events.FilterTypes(events.RunCompleted, events.RunFailed),
		"run completion",
	)
}

// SubscribeToWorkflow creates a waiter for a workflow's terminal event
func (env *TestRunEnv) SubscribeToWorkflow(name string) *EventWaiter {
	return NewEventWaiter(
		env.Hub,
		events.AndFilters(
			events.FilterTypes(events.RunCompleted, events.RunFailed),
			events.FilterWorkflows(name),
		),
		"workflow "+name+" completion",
	)
}
