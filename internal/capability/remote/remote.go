// Package remote proxies capability operations to external HTTP services
// and tracks their availability
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/log"
)

// Capability forwards operations to an external capability service over
// HTTP. The remote side owns its operation catalog, so Operations reports
// nothing and unknown operations surface as remote failures
type Capability struct {
	client  *http.Client
	name    string
	baseURL string
}

const (
	invokePath     = "/invoke"
	healthPath     = "/health"
	defaultTimeout = 30 * time.Second
	userAgent      = "Cascade-Engine/1.0"
)

var (
	ErrUnsuccessful = errors.New("remote capability returned success=false")
	ErrHTTPError    = errors.New("remote capability returned HTTP error")
)

// New creates a remote capability rooted at baseURL. A timeout of zero or
// less falls back to the default client timeout
func New(name, baseURL string, timeout time.Duration) *Capability {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Capability{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Capability) Name() string {
	return c.name
}

func (c *Capability) Operations() []string {
	return nil
}

func (c *Capability) BaseURL() string {
	return c.baseURL
}

func (c *Capability) Invoke(
	ctx context.Context, operation string, payload api.Args,
) (api.Args, error) {
	body, err := json.Marshal(api.InvokeRequest{
		Operation: operation,
		Payload:   payload,
	})
	if err != nil {
		slog.Error("Failed to marshal invoke request",
			log.Capability(c.name), log.Error(err))
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+invokePath, bytes.NewBuffer(body),
	)
	if err != nil {
		slog.Error("Failed to create invoke request",
			log.Capability(c.name), log.Error(err))
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	dur := time.Since(start)

	if err != nil {
		slog.Error("Remote invoke failed",
			log.Capability(c.name), log.Operation(operation),
			slog.Duration("duration", dur), log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read invoke response",
			log.Capability(c.name), log.Error(err))
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Remote invoke HTTP error",
			log.Capability(c.name), log.Operation(operation),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(respBody)))
		return nil, fmt.Errorf("%w: HTTP %d", ErrHTTPError, resp.StatusCode)
	}

	var response api.InvokeResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		slog.Error("Failed to unmarshal invoke response",
			log.Capability(c.name), log.Error(err))
		return nil, err
	}

	if !response.Success {
		if response.Error == "" {
			return nil, ErrUnsuccessful
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, response.Error)
	}

	if response.Outputs == nil {
		return api.Args{}, nil
	}
	return response.Outputs, nil
}
