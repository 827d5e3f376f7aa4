package script_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hollowgrove/cascade/internal/capability/script"
	"github.com/hollowgrove/cascade/pkg/api"
)

func rerankResults() []*api.StepResult {
	return []*api.StepResult{
		{
			Name:       "quick",
			OK:         true,
			Output:     api.Args{"text": "ok"},
			ElapsedSec: 0.01,
		},
		{
			Name:       "slow",
			OK:         true,
			Output:     api.Args{"text": "a much longer answer"},
			ElapsedSec: 0.2,
		},
	}
}

func TestSelectorPicksByOutput(t *testing.T) {
	sel, err := script.Selector(
		script.NewRegistry(), api.ScriptLangLua, `
			local best = nil
			local len = -1
			for _, r in ipairs(results) do
				if r.ok and #r.output.text > len then
					best = r.name
					len = #r.output.text
				end
			end
			return best
		`,
	)
	assert.NoError(t, err)

	winner := sel(rerankResults())
	assert.NotNil(t, winner)
	assert.Equal(t, api.Name("slow"), winner.Name)
}

func TestSelectorAle(t *testing.T) {
	sel, err := script.Selector(
		script.NewRegistry(), api.ScriptLangAle, `"slow"`,
	)
	assert.NoError(t, err)

	winner := sel(rerankResults())
	assert.NotNil(t, winner)
	assert.Equal(t, api.Name("slow"), winner.Name)
}

func TestSelectorCompileError(t *testing.T) {
	_, err := script.Selector(
		script.NewRegistry(), api.ScriptLangLua, "return {oops =",
	)
	assert.Error(t, err)
}

func TestSelectorUnknownLanguage(t *testing.T) {
	_, err := script.Selector(script.NewRegistry(), "cobol", "MOVE A TO B")
	assert.ErrorIs(t, err, script.ErrUnsupportedLanguage)
}

func TestSelectorUnknownNameYieldsNoWinner(t *testing.T) {
	sel, err := script.Selector(
		script.NewRegistry(), api.ScriptLangLua, "return 'nobody'",
	)
	assert.NoError(t, err)
	assert.Nil(t, sel(rerankResults()))
}

func TestSelectorEmptyNameYieldsNoWinner(t *testing.T) {
	sel, err := script.Selector(
		script.NewRegistry(), api.ScriptLangLua, "return nil",
	)
	assert.NoError(t, err)
	assert.Nil(t, sel(rerankResults()))
}

func TestSelectorRuntimeErrorYieldsNoWinner(t *testing.T) {
	sel, err := script.Selector(
		script.NewRegistry(), api.ScriptLangLua, "error('no thanks')",
	)
	assert.NoError(t, err)
	assert.Nil(t, sel(rerankResults()))
}
