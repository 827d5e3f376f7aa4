// Package events defines the run event catalog and an in-process fan-out
// hub used to stream workflow progress to subscribers
package events

import (
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Type identifies a kind of run event
	Type string

	// Event is the envelope published for every observable state change
	// during a workflow run
	Event struct {
		Timestamp time.Time `json:"timestamp"`
		Data      api.Args  `json:"data,omitempty"`
		Type      Type      `json:"type"`
		RunID     string    `json:"run_id"`
		Workflow  api.Name  `json:"workflow,omitempty"`
		Unit      api.Name  `json:"unit,omitempty"`
	}

	// Sink accepts published run events. Hub satisfies this interface
	Sink interface {
		Publish(*Event)
	}
)

const (
	RunStarted     Type = "run.started"
	RunCompleted   Type = "run.completed"
	RunFailed      Type = "run.failed"
	StepStarted    Type = "step.started"
	StepCompleted  Type = "step.completed"
	StepFailed     Type = "step.failed"
	GroupStarted   Type = "group.started"
	GroupCompleted Type = "group.completed"
)

// New constructs a run event stamped with the current time
func New(typ Type, runID string, workflow, unit api.Name, data api.Args) *Event {
	return &Event{
		Type:      typ,
		RunID:     runID,
		Workflow:  workflow,
		Unit:      unit,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// Publish sends an event to the sink, tolerating a nil sink or event
func Publish(s Sink, ev *Event) {
	if s == nil || ev == nil {
		return
	}
	s.Publish(ev)
}
