package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/internal/capability/remote"
	"github.com/hollowgrove/cascade/internal/capability/textkit"
	"github.com/hollowgrove/cascade/internal/config"
	"github.com/hollowgrove/cascade/pkg/api"
)

func TestInvokeRoundTrip(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	counter := remote.New("textkit", srv.URL+"/textkit", 0)
	outputs, err := counter.Invoke(
		context.Background(), "word_count", api.Args{
			"text": "one two three",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, outputs.GetInt("words", 0))
	assert.Equal(t, 13, outputs.GetInt("chars", 0))
}

func TestInvokeUnknownOperation(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	echo := remote.New("echo", srv.URL+"/echo", 0)
	_, err := echo.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrUnsuccessful)
	assert.Contains(t, err.Error(), "operation not found")
}

func TestInvokeUnknownCapability(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	ghost := remote.New("ghost", srv.URL+"/ghost", 0)
	_, err := ghost.Invoke(context.Background(), "ping", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, remote.ErrHTTPError)
}

func TestInvokeInvalidJSON(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	resp, err := http.Post(
		srv.URL+"/echo/invoke", "application/json",
		strings.NewReader("not-json"),
	)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthDescribesCapability(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/echo/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var digest api.CapabilityDigest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&digest))
	assert.Equal(t, "echo", digest.Name)
	assert.Contains(t, digest.Operations, "ping")
}

func TestHealthUnknownCapability(t *testing.T) {
	srv := testHost(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ghost/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func testHost(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	caps := capability.NewRegistry()
	require.NoError(t, caps.Register(capability.NewEcho()))
	require.NoError(t, caps.Register(textkit.New()))

	s := &capserve{cfg: config.NewDefaultConfig(), caps: caps}
	return httptest.NewServer(s.setupRoutes())
}
