package remote

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kode4food/caravan/topic"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/events"
	"github.com/hollowgrove/cascade/pkg/log"
)

// HealthChecker periodically probes remote capability services and keeps
// their last observed state for the health API
type HealthChecker struct {
	ctx         context.Context
	cancel      context.CancelFunc
	client      *http.Client
	consumer    topic.Consumer[*events.Event]
	targets     []*Capability
	states      map[string]*api.HealthState
	lastSuccess map[string]time.Time
	mu          sync.RWMutex
}

const (
	successWindow       = 60 * time.Second
	healthCheckTimeout  = 3 * time.Second
	healthCheckInterval = 30 * time.Second
	httpErrorThreshold  = 400
)

// NewHealthChecker creates a health checker for the given remote
// capabilities. Step completions observed on the hub count as recent contact
// with their capability and suppress the next probe
func NewHealthChecker(hub *events.Hub, targets []*Capability) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())
	states := make(map[string]*api.HealthState, len(targets))
	for _, target := range targets {
		states[target.name] = &api.HealthState{Status: api.HealthUnknown}
	}
	return &HealthChecker{
		ctx:         ctx,
		cancel:      cancel,
		consumer:    hub.NewConsumer(),
		targets:     targets,
		states:      states,
		lastSuccess: map[string]time.Time{},
		client: &http.Client{
			Timeout: healthCheckTimeout,
		},
	}
}

func (h *HealthChecker) Start() {
	go h.healthCheckLoop()
	go h.eventLoop()
}

func (h *HealthChecker) Stop() {
	h.cancel()
	h.consumer.Close()
}

// Snapshot returns a copy of the current health states keyed by capability
// name
func (h *HealthChecker) Snapshot() map[string]*api.HealthState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	res := make(map[string]*api.HealthState, len(h.states))
	for name, state := range h.states {
		copied := *state
		res[name] = &copied
	}
	return res
}

// CheckNow runs one probe round synchronously. Probes are spread across the
// check interval when more than one target is configured
func (h *HealthChecker) CheckNow() {
	var delay time.Duration
	if len(h.targets) > 1 {
		delay = healthCheckInterval / time.Duration(len(h.targets))
	}

	for _, target := range h.targets {
		h.check(target)
		if delay > 0 {
			time.Sleep(delay)
		}
	}
}

func (h *HealthChecker) healthCheckLoop() {
	slog.Info("Health checker started",
		slog.Int("targets", len(h.targets)))
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	h.CheckNow()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.CheckNow()
		}
	}
}

func (h *HealthChecker) eventLoop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case event, ok := <-h.consumer.Receive():
			if !ok {
				return
			}
			h.handleStepCompleted(event)
		}
	}
}

func (h *HealthChecker) handleStepCompleted(event *events.Event) {
	if event.Type != events.StepCompleted {
		return
	}
	name := event.Data.GetString("capability", "")
	if name == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.states[name]; !ok {
		return
	}
	h.lastSuccess[name] = time.Now()
}

func (h *HealthChecker) check(target *Capability) {
	h.mu.RLock()
	lastSuccess, hasRecent := h.lastSuccess[target.name]
	h.mu.RUnlock()

	if hasRecent && time.Since(lastSuccess) < successWindow {
		h.setState(target.name, api.HealthHealthy, "")
		return
	}

	resp, err := h.client.Get(target.baseURL + healthPath)
	if err != nil {
		slog.Error("Health check failed",
			log.Capability(target.name), log.Error(err))
		h.setState(target.name, api.HealthUnhealthy, err.Error())
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= httpErrorThreshold {
		slog.Error("Health check failed",
			log.Capability(target.name),
			log.Status(resp.Status))
		h.setState(target.name, api.HealthUnhealthy, "HTTP "+resp.Status)
		return
	}

	h.setState(target.name, api.HealthHealthy, "")
}

func (h *HealthChecker) setState(
	name string, status api.HealthStatus, errMsg string,
) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states[name] = &api.HealthState{
		CheckedAt: time.Now(),
		Status:    status,
		Error:     errMsg,
	}
}
