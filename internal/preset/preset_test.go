package preset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowgrove/cascade/internal/preset"
	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/builder"
)

func smallSpec(t *testing.T, name api.Name) *api.WorkflowSpec {
	t.Helper()
	spec, err := builder.NewWorkflow(name).
		WithStep(builder.NewStep("only").
			WithCapability("echo").
			WithOperation("ping")).
		Build()
	require.NoError(t, err)
	return spec
}

func TestBuiltins(t *testing.T) {
	r := preset.NewRegistry()

	assert.True(t, r.Has(preset.EchoPipeline))
	assert.True(t, r.Has(preset.TextPipeline))

	echo, err := r.Get(preset.EchoPipeline)
	assert.NoError(t, err)
	assert.NoError(t, echo.Validate())
	assert.Equal(t, api.Name("confirm"), echo.ReturnTarget)
	assert.Len(t, echo.Sequence, 2)

	text, err := r.Get(preset.TextPipeline)
	assert.NoError(t, err)
	assert.NoError(t, text.Validate())
	require.NotNil(t, text.Rerank)
	assert.Equal(t, api.RerankLongestText, text.Rerank.Builtin)
	require.NotNil(t, text.Sequence[1].Group)
	assert.Len(t, text.Sequence[1].Group.Steps, 2)
}

func TestGetReturnsCopy(t *testing.T) {
	r := preset.NewRegistry()

	first, err := r.Get(preset.EchoPipeline)
	require.NoError(t, err)
	first.ReturnTarget = "ping"
	first.Sequence[0].Step.Timeout = 123

	second, err := r.Get(preset.EchoPipeline)
	require.NoError(t, err)
	assert.Equal(t, api.Name("confirm"), second.ReturnTarget)
	assert.Zero(t, second.Sequence[0].Step.Timeout)
}

func TestGetMissing(t *testing.T) {
	r := preset.NewRegistry()
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, preset.ErrNotFound)
}

func TestRegister(t *testing.T) {
	r := preset.NewRegistry()
	spec := smallSpec(t, "custom")
	m := &preset.Manifest{Name: "custom", Version: "0.1.0"}

	assert.NoError(t, r.Register(m, spec))
	assert.True(t, r.Has("custom"))
	assert.ErrorContains(t, r.Register(m, spec), "already registered")
}

func TestRegisterInvalidName(t *testing.T) {
	r := preset.NewRegistry()
	spec := smallSpec(t, "x")

	for _, name := range []string{"", "Has Spaces", "UPPER", "semi;colon"} {
		err := r.Register(&preset.Manifest{Name: name}, spec)
		assert.ErrorIs(t, err, preset.ErrNameInvalid, name)
	}
}

func TestRegisterInvalidSpec(t *testing.T) {
	r := preset.NewRegistry()
	err := r.Register(&preset.Manifest{Name: "empty"}, &api.WorkflowSpec{
		Name: "empty",
	})
	assert.ErrorIs(t, err, api.ErrEmptySequence)
}

func TestListSorted(t *testing.T) {
	r := preset.NewRegistry()
	require.NoError(t, r.Register(
		&preset.Manifest{Name: "aaa-first"}, smallSpec(t, "aaa-first")))

	digests := r.List()
	require.NotEmpty(t, digests)
	for i := 1; i < len(digests); i++ {
		assert.Less(t, digests[i-1].Name, digests[i].Name)
	}
	assert.Equal(t, "aaa-first", digests[0].Name)
	assert.Equal(t, preset.SourceBuiltin, digests[0].Source)
	assert.Equal(t, 1, digests[0].Units)
}
