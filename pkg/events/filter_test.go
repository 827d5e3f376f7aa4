package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hollowgrove/cascade/pkg/events"
)

func TestFilterTypes(t *testing.T) {
	filter := events.FilterTypes(events.StepStarted, events.StepCompleted)

	assert.True(t, filter(&events.Event{Type: events.StepStarted}))
	assert.True(t, filter(&events.Event{Type: events.StepCompleted}))
	assert.False(t, filter(&events.Event{Type: events.RunStarted}))
}

func TestFilterRuns(t *testing.T) {
	filter := events.FilterRuns("run-1")

	assert.True(t, filter(&events.Event{RunID: "run-1"}))
	assert.False(t, filter(&events.Event{RunID: "run-2"}))
}

func TestFilterWorkflows(t *testing.T) {
	filter := events.FilterWorkflows("asr")

	assert.True(t, filter(&events.Event{Workflow: "asr"}))
	assert.False(t, filter(&events.Event{Workflow: "other"}))
}

func TestAndFilters(t *testing.T) {
	filter := events.AndFilters(
		events.FilterRuns("run-1"),
		events.FilterTypes(events.StepFailed),
	)

	assert.True(t, filter(
		&events.Event{RunID: "run-1", Type: events.StepFailed},
	))
	assert.False(t, filter(
		&events.Event{RunID: "run-1", Type: events.StepStarted},
	))
	assert.False(t, filter(
		&events.Event{RunID: "run-2", Type: events.StepFailed},
	))
}

func TestOrFilters(t *testing.T) {
	filter := events.OrFilters(
		events.FilterTypes(events.RunCompleted),
		events.FilterTypes(events.RunFailed),
	)

	assert.True(t, filter(&events.Event{Type: events.RunCompleted}))
	assert.True(t, filter(&events.Event{Type: events.RunFailed}))
	assert.False(t, filter(&events.Event{Type: events.RunStarted}))
}

func TestMatchAll(t *testing.T) {
	filter := events.MatchAll()
	assert.True(t, filter(&events.Event{Type: events.RunStarted}))
	assert.True(t, filter(&events.Event{}))
}
