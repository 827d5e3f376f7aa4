package api

import "time"

type (
	// RunRequest submits a workflow for execution. Exactly one of Sequence
	// or Preset must be provided; Return overrides a preset's return target
	RunRequest struct {
		Inputs   Args        `json:"inputs,omitempty"`
		Rerank   *RerankSpec `json:"rerank,omitempty"`
		Name     Name        `json:"name,omitempty"`
		Preset   string      `json:"preset,omitempty"`
		Return   Name        `json:"return,omitempty"`
		Sequence []*Unit     `json:"sequence,omitempty"`
	}

	// RunResponse is returned for a completed run. Result is populated when
	// a return target was declared; Report and Context otherwise
	RunResponse struct {
		Result   Args           `json:"result,omitempty"`
		Context  Args           `json:"context,omitempty"`
		Workflow Name           `json:"workflow"`
		RunID    string         `json:"run_id"`
		Report   []*ReportEntry `json:"report,omitempty"`
		Count    int            `json:"count,omitempty"`
		OK       bool           `json:"ok"`
	}

	// PresetDigest provides summary information about a workflow preset
	PresetDigest struct {
		Name        string   `json:"name"`
		Version     string   `json:"version,omitempty"`
		Description string   `json:"description,omitempty"`
		Source      string   `json:"source"`
		Tags        []string `json:"tags,omitempty"`
		Units       int      `json:"units"`
	}

	// PresetsResponse contains a list of available workflow presets
	PresetsResponse struct {
		Presets []*PresetDigest `json:"presets"`
		Count   int             `json:"count"`
	}

	// CapabilityDigest describes a registered capability and its operations
	CapabilityDigest struct {
		Name       string   `json:"name"`
		Operations []string `json:"operations"`
	}

	// CapabilitiesResponse contains a list of registered capabilities
	CapabilitiesResponse struct {
		Capabilities []*CapabilityDigest `json:"capabilities"`
		Count        int                 `json:"count"`
	}

	// InvokeRequest is the wire form of a remote capability invocation
	InvokeRequest struct {
		Payload   Args   `json:"payload,omitempty"`
		Operation string `json:"operation"`
	}

	// InvokeResponse is the wire form of a remote capability's result
	InvokeResponse struct {
		Outputs Args   `json:"outputs,omitempty"`
		Error   string `json:"error,omitempty"`
		Success bool   `json:"success"`
	}

	// PoolStats provides a snapshot of the resource pool's bookkeeping
	PoolStats struct {
		Size      int   `json:"size"`
		Capacity  int   `json:"capacity"`
		Hits      int64 `json:"hits"`
		Misses    int64 `json:"misses"`
		Evictions int64 `json:"evictions"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service      string    `json:"service"`
		Version      string    `json:"version"`
		Status       string    `json:"status"`
		UptimeSec    float64   `json:"uptime_sec"`
		Pool         PoolStats `json:"pool"`
		Capabilities int       `json:"capabilities"`
	}

	// HealthStatus classifies a remote capability's reachability
	HealthStatus string

	// HealthState is the last observed health of a remote capability
	HealthState struct {
		CheckedAt time.Time    `json:"checked_at"`
		Status    HealthStatus `json:"status"`
		Error     string       `json:"error,omitempty"`
	}

	// HealthListResponse contains health states for remote capabilities
	HealthListResponse struct {
		Health map[string]*HealthState `json:"health"`
		Count  int                     `json:"count"`
	}

	// ArtifactResponse describes a stored artifact
	ArtifactResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name,omitempty"`
		ContentType string `json:"content_type,omitempty"`
		Size        int64  `json:"size"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)
