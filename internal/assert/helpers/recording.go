package helpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
)

// RecordingCapability is a scriptable capability for testing. Operations
// return configured outputs or errors, optionally after a delay, and every
// invocation is recorded
type RecordingCapability struct {
	responses map[string]api.Args
	errors    map[string]error
	delays    map[string]time.Duration
	invokedCh map[string]chan struct{}
	name      string
	invoked   []string
	mu        sync.Mutex
}

// NewRecording creates a recording capability registered under name
func NewRecording(name string) *RecordingCapability {
	return &RecordingCapability{
		name:      name,
		responses: map[string]api.Args{},
		errors:    map[string]error{},
		delays:    map[string]time.Duration{},
		invoked:   []string{},
		invokedCh: map[string]chan struct{}{},
	}
}

// Name returns the capability name
func (c *RecordingCapability) Name() string {
	return c.name
}

// Operations returns the operations with configured outcomes, sorted
func (c *RecordingCapability) Operations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := map[string]bool{}
	for op := range c.responses {
		seen[op] = true
	}
	for op := range c.errors {
		seen[op] = true
	}
	res := make([]string, 0, len(seen))
	for op := range seen {
		res = append(res, op)
	}
	sort.Strings(res)
	return res
}

// Invoke records the invocation and returns the configured outcome. An
// unconfigured operation succeeds with empty outputs
func (c *RecordingCapability) Invoke(
	ctx context.Context, operation string, _ api.Args,
) (api.Args, error) {
	c.mu.Lock()
	c.invoked = append(c.invoked, operation)
	if ch, ok := c.invokedCh[operation]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	delay := c.delays[operation]
	failure, hasFailure := c.errors[operation]
	outputs, hasOutputs := c.responses[operation]
	c.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if hasFailure {
		return nil, failure
	}
	if hasOutputs {
		return outputs, nil
	}
	return api.Args{}, nil
}

// SetResponse configures the outputs returned for an operation
func (c *RecordingCapability) SetResponse(operation string, outputs api.Args) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[operation] = outputs
}

// SetError configures an error returned for an operation
func (c *RecordingCapability) SetError(operation string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[operation] = err
}

// ClearError removes any configured error for an operation
func (c *RecordingCapability) ClearError(operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errors, operation)
}

// SetDelay configures a delay applied before an operation's outcome. The
// delay honors context cancellation
func (c *RecordingCapability) SetDelay(operation string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[operation] = d
}

// GetInvocations returns the operations invoked so far, in order
func (c *RecordingCapability) GetInvocations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]string, len(c.invoked))
	copy(res, c.invoked)
	return res
}

// Invocations returns how many times an operation was invoked
func (c *RecordingCapability) Invocations(operation string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, op := range c.invoked {
		if op == operation {
			count++
		}
	}
	return count
}

// WasInvoked returns whether an operation was invoked
func (c *RecordingCapability) WasInvoked(operation string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wasInvokedLocked(operation)
}

// WaitForInvocation blocks until an operation is invoked or the timeout
// expires
func (c *RecordingCapability) WaitForInvocation(
	operation string, timeout time.Duration,
) bool {
	c.mu.Lock()
	if c.wasInvokedLocked(operation) {
		c.mu.Unlock()
		return true
	}
	ch, ok := c.invokedCh[operation]
	if !ok {
		ch = make(chan struct{}, 1)
		c.invokedCh[operation] = ch
	}
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return c.WasInvoked(operation)
	}
}

func (c *RecordingCapability) wasInvokedLocked(operation string) bool {
	for _, op := range c.invoked {
		if op == operation {
			return true
		}
	}
	return false
}
