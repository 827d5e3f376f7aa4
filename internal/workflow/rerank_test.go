package workflow_test

import (
	"testing"

	"github.com/hollowgrove/cascade/internal/assert"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
)

func textResult(name api.Name, text string) *api.StepResult {
	return &api.StepResult{
		Name:   name,
		OK:     true,
		Output: api.Args{"text": text},
	}
}

func TestSelectFirst(t *testing.T) {
	as := assert.New(t)

	as.Nil(workflow.SelectFirst(nil))
	as.Nil(workflow.SelectFirst([]*api.StepResult{}))

	results := []*api.StepResult{
		textResult("one", "a"),
		textResult("two", "bb"),
	}
	winner := workflow.SelectFirst(results)
	as.Require.NotNil(winner)
	as.Equal(api.Name("one"), winner.Name)
}

func TestSelectLongestText(t *testing.T) {
	as := assert.New(t)

	as.Nil(workflow.SelectLongestText(nil))

	results := []*api.StepResult{
		textResult("short", "one"),
		textResult("long", "long long"),
		textResult("tied", "also long"),
	}
	winner := workflow.SelectLongestText(results)
	as.Require.NotNil(winner)
	as.Equal(api.Name("long"), winner.Name)
}

func TestSelectLongestTextRawFallback(t *testing.T) {
	as := assert.New(t)

	results := []*api.StepResult{
		textResult("typed", "abc"),
		{
			Name:   "raw",
			OK:     true,
			Output: api.Args{"raw_text": "abcde"},
		},
	}
	winner := workflow.SelectLongestText(results)
	as.Require.NotNil(winner)
	as.Equal(api.Name("raw"), winner.Name)
}

func TestSelectLongestTextCountsRunes(t *testing.T) {
	as := assert.New(t)

	// "éé" is four bytes but two runes, so "abc" is the longer text
	results := []*api.StepResult{
		textResult("accented", "éé"),
		textResult("ascii", "abc"),
	}
	winner := workflow.SelectLongestText(results)
	as.Require.NotNil(winner)
	as.Equal(api.Name("ascii"), winner.Name)
}

func TestSelectLongestTextMissingFields(t *testing.T) {
	as := assert.New(t)

	results := []*api.StepResult{
		{Name: "bare", OK: true, Output: api.Args{"other": 1}},
		{Name: "empty", OK: true},
		textResult("present", "x"),
	}
	winner := workflow.SelectLongestText(results)
	as.Require.NotNil(winner)
	as.Equal(api.Name("present"), winner.Name)

	// with no text anywhere the earliest result is kept
	winner = workflow.SelectLongestText(results[:2])
	as.Require.NotNil(winner)
	as.Equal(api.Name("bare"), winner.Name)
}

func TestBuiltinSelector(t *testing.T) {
	as := assert.New(t)

	results := []*api.StepResult{
		textResult("one", "a"),
		textResult("two", "a much longer answer"),
	}

	fn, ok := workflow.BuiltinSelector(api.RerankFirst)
	as.Require.True(ok)
	as.Equal(api.Name("one"), fn(results).Name)

	fn, ok = workflow.BuiltinSelector(api.RerankLongestText)
	as.Require.True(ok)
	as.Equal(api.Name("two"), fn(results).Name)

	fn, ok = workflow.BuiltinSelector("bogus")
	as.False(ok)
	as.Nil(fn)
}
