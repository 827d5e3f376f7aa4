package workflow

import (
	"unicode/utf8"

	"github.com/hollowgrove/cascade/pkg/api"
)

// SelectFirst picks the first successful result in completion order.
// Completion order under true parallelism is nondeterministic; callers
// wanting a stable winner should use a content-based selector instead
func SelectFirst(results []*api.StepResult) *api.StepResult {
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// SelectLongestText picks the result with the longest text field,
// preferring "text" and falling back to "raw_text". Ties keep the
// earliest result
func SelectLongestText(results []*api.StepResult) *api.StepResult {
	var best *api.StepResult
	bestLen := -1
	for _, r := range results {
		if l := textLength(r); l > bestLen {
			best = r
			bestLen = l
		}
	}
	return best
}

// BuiltinSelector returns the rerank function registered under a builtin
// name
func BuiltinSelector(name string) (api.RerankFunc, bool) {
	switch name {
	case api.RerankFirst:
		return SelectFirst, true
	case api.RerankLongestText:
		return SelectLongestText, true
	default:
		return nil, false
	}
}

func textLength(r *api.StepResult) int {
	if r == nil || r.Output == nil {
		return 0
	}
	text := r.Output.GetString("text", "")
	if text == "" {
		text = r.Output.GetString("raw_text", "")
	}
	return utf8.RuneCountInString(text)
}
