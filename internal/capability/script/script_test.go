package script_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hollowgrove/cascade/internal/capability/script"
	"github.com/hollowgrove/cascade/pkg/api"
)

func TestRegistryGet(t *testing.T) {
	reg := script.NewRegistry()

	env, err := reg.Get(api.ScriptLangLua)
	assert.NoError(t, err)
	assert.NotNil(t, env)

	env, err = reg.Get(api.ScriptLangAle)
	assert.NoError(t, err)
	assert.NotNil(t, env)

	_, err = reg.Get("cobol")
	assert.ErrorIs(t, err, script.ErrUnsupportedLanguage)
	assert.Contains(t, err.Error(), "cobol")
}

func TestEvalLua(t *testing.T) {
	cap := script.NewCapability(script.NewRegistry())
	assert.Equal(t, "script", cap.Name())
	assert.Equal(t, []string{"eval"}, cap.Operations())

	out, err := cap.Invoke(context.Background(), "eval", api.Args{
		"language": api.ScriptLangLua,
		"script":   "return {sum = a + b}",
		"args":     map[string]any{"a": 2, "b": 3},
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, out["sum"])
}

func TestEvalAle(t *testing.T) {
	cap := script.NewCapability(script.NewRegistry())

	out, err := cap.Invoke(context.Background(), "eval", api.Args{
		"language": api.ScriptLangAle,
		"script":   "{:sum (+ a b)}",
		"args":     api.Args{"a": 2, "b": 3},
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, out["sum"])
}

func TestEvalScalarNormalized(t *testing.T) {
	cap := script.NewCapability(script.NewRegistry())

	out, err := cap.Invoke(context.Background(), "eval", api.Args{
		"language": api.ScriptLangLua,
		"script":   "return 2 + 3",
	})
	assert.NoError(t, err)
	assert.Equal(t, api.Args{"result": 5}, out)
}

func TestEvalFaults(t *testing.T) {
	cap := script.NewCapability(script.NewRegistry())

	tests := []struct {
		name     string
		payload  api.Args
		expected string
	}{
		{
			name:     "missing_script",
			payload:  api.Args{"language": api.ScriptLangLua},
			expected: "script is required",
		},
		{
			name:     "blank_script",
			payload:  api.Args{"language": api.ScriptLangLua, "script": "  "},
			expected: "script is required",
		},
		{
			name:     "missing_language",
			payload:  api.Args{"script": "return 1"},
			expected: "language is required",
		},
		{
			name: "unknown_language",
			payload: api.Args{
				"language": "cobol",
				"script":   "MOVE A TO B",
			},
			expected: "unsupported script language",
		},
		{
			name: "compile_error",
			payload: api.Args{
				"language": api.ScriptLangLua,
				"script":   "return {broken =",
			},
			expected: "",
		},
		{
			name: "execution_error",
			payload: api.Args{
				"language": api.ScriptLangLua,
				"script":   "error('kaboom')",
			},
			expected: "kaboom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := cap.Invoke(context.Background(), "eval", tt.payload)
			assert.NoError(t, err)
			assert.Contains(t, out, api.Name("error"))
			msg, ok := out["error"].(string)
			assert.True(t, ok)
			assert.NotEmpty(t, msg)
			if tt.expected != "" {
				assert.Contains(t, msg, tt.expected)
			}
		})
	}
}

func TestEvalArgsSortedDeterministically(t *testing.T) {
	cap := script.NewCapability(script.NewRegistry())

	// Argument order is sorted by name, so b-a is stable across calls
	for range 5 {
		out, err := cap.Invoke(context.Background(), "eval", api.Args{
			"language": api.ScriptLangLua,
			"script":   "return {diff = b - a}",
			"args":     map[string]any{"b": 10, "a": 4},
		})
		assert.NoError(t, err)
		assert.Equal(t, 6, out["diff"])
	}
}
