package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "gocloud.dev/blob/memblob"

	"github.com/hollowgrove/cascade/internal/artifact"
	"github.com/hollowgrove/cascade/internal/assert/helpers"
	"github.com/hollowgrove/cascade/internal/capability/kvstore"
	"github.com/hollowgrove/cascade/internal/capability/remote"
	"github.com/hollowgrove/cascade/internal/pool"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/events"
)

func TestKvChainAcrossSteps(t *testing.T) {
	helpers.WithRedis(t, func(addr string, _ *miniredis.Miniredis) {
		env := helpers.NewTestRun(t)
		defer env.Cleanup()

		p := pool.New[any](4, releaseClient)
		kv := kvstore.NewCapability(p, kvstore.Options{Addr: addr})
		require.NoError(t, env.Registry.Register(kv))

		spec := helpers.NewTestWorkflow("kv-chain",
			helpers.StepUnit(helpers.NewStepFor(
				"put", "kvstore", "set", api.Args{
					"key":   "greeting",
					"value": "{seed}",
				},
			)),
			helpers.StepUnit(helpers.NewStepFor(
				"fetch", "kvstore", "get", api.Args{"key": "greeting"},
			)),
		)
		require.NoError(t, spec.Validate())

		report, err := env.Runner.Run(
			context.Background(), spec, api.Args{"seed": "hello"},
		)
		require.NoError(t, err)

		put, ok := report.Lookup("put")
		require.True(t, ok)
		assert.Equal(t, true, put["stored"])

		fetch, ok := report.Lookup("fetch")
		require.True(t, ok)
		assert.Equal(t, true, fetch["found"])
		assert.Equal(t, "hello", fetch["value"])

		// Both steps share one pooled client
		assert.Equal(t, 1, p.Len())
		stats := p.Stats()
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(1), stats.Hits)

		assert.Equal(t, 1, p.Purge())
		assert.Equal(t, 0, p.Len())
	})
}

func TestArtifactReadInWorkflow(t *testing.T) {
	ctx := context.Background()
	store, err := artifact.NewStore(ctx, "mem://", "integration")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	meta, err := store.Put(
		ctx, "notes.txt", "text/plain", []byte("alpha beta gamma"),
	)
	require.NoError(t, err)

	env := helpers.NewTestRun(t)
	defer env.Cleanup()
	require.NoError(t, env.Registry.Register(artifact.NewCapability(store)))

	spec := helpers.NewTestWorkflow("artifact-count",
		helpers.StepUnit(helpers.NewStepFor(
			"read", "artifact", "read_text", api.Args{"id": meta.ID},
		)),
		helpers.StepUnit(helpers.NewStepFor(
			"count", "textkit", "word_count", api.Args{
				"text": "{read.text}",
			},
		)),
	)
	require.NoError(t, spec.Validate())

	report, err := env.Runner.Run(ctx, spec, nil)
	require.NoError(t, err)

	read, ok := report.Lookup("read")
	require.True(t, ok)
	assert.Equal(t, "alpha beta gamma", read["text"])
	assert.Equal(t, "notes.txt", read["name"])

	count, ok := report.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, 3, count["words"])
	assert.Equal(t, 16, count["chars"])
}

func TestRemoteCapabilityInWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/invoke":
				var req api.InvokeRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				text := req.Payload.GetString("text", "")
				writeJSON(w, api.InvokeResponse{
					Success: true,
					Outputs: api.Args{"text": strings.ToUpper(text)},
				})
			case "/health":
				w.WriteHeader(http.StatusOK)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		},
	))
	defer srv.Close()

	env := helpers.NewTestRun(t)
	defer env.Cleanup()

	shout := remote.New("shout", srv.URL, 0)
	require.NoError(t, env.Registry.Register(shout))

	spec := helpers.NewTestWorkflow("remote-shout",
		helpers.StepUnit(helpers.NewStepFor(
			"yell", "shout", "upper", api.Args{"text": "{seed}"},
		)),
	)
	require.NoError(t, spec.Validate())

	report, err := env.Runner.Run(
		context.Background(), spec, api.Args{"seed": "quiet"},
	)
	require.NoError(t, err)

	yell, ok := report.Lookup("yell")
	require.True(t, ok)
	assert.Equal(t, "QUIET", yell["text"])

	checker := remote.NewHealthChecker(
		env.Hub, []*remote.Capability{shout},
	)
	defer checker.Stop()

	checker.CheckNow()
	snap := checker.Snapshot()
	require.Contains(t, snap, "shout")
	assert.Equal(t, api.HealthHealthy, snap["shout"].Status)
}

func TestGroupWinnerFeedsLaterStep(t *testing.T) {
	env := helpers.NewTestRun(t)
	defer env.Cleanup()

	clean := helpers.NewStepFor("clean", "textkit", "normalize", api.Args{
		"text":  "{text}",
		"lower": true,
	})
	brief := helpers.NewStepFor("brief", "textkit", "head", api.Args{
		"text":      "{clean.text}",
		"max_runes": 10,
	})
	full := helpers.NewStepFor("full", "textkit", "normalize", api.Args{
		"text": "{clean.text}",
	})

	spec := helpers.NewTestWorkflow("variants",
		helpers.StepUnit(clean),
		helpers.GroupUnit(helpers.NewTestGroup("pick", brief, full)),
		helpers.StepUnit(helpers.NewStepFor(
			"count", "textkit", "word_count", api.Args{
				"text": "{pick.text}",
			},
		)),
	)
	fn, ok := workflow.BuiltinSelector(api.RerankLongestText)
	require.True(t, ok)
	spec.RerankFn = fn
	spec.ReturnTarget = "count"
	require.NoError(t, spec.Validate())

	done := env.SubscribeToWorkflow("variants")
	report, err := env.Runner.Run(
		context.Background(), spec,
		api.Args{"text": "Plenty Of Mixed CASE words here"},
	)
	require.NoError(t, err)

	ev := done.Wait(t, 2*time.Second)
	assert.Equal(t, events.RunCompleted, ev.Type)
	assert.Equal(t, report.RunID, ev.RunID)

	// longest_text picks the untruncated variant; its full text flows into
	// the counting step through the group's context record
	assert.Equal(t, 6, report.Output["words"])

	pick, ok := report.Lookup("pick")
	require.True(t, ok)
	assert.Equal(t, "plenty of mixed case words here", pick["text"])
}

func releaseClient(v any) error {
	if closer, ok := v.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
