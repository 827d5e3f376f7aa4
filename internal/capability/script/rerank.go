package script

import (
	"log/slog"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/log"
)

// resultsArgName is the single argument a rerank script receives
const resultsArgName = "results"

// Selector compiles a rerank script and wraps it as an api.RerankFunc. The
// script receives a "results" array of completed member outcomes and returns
// the name of the winning step. An unknown or empty name, or a script
// failure, yields no winner so the caller falls back to the first success
func Selector(reg *Registry, language, script string) (api.RerankFunc, error) {
	env, err := reg.Get(language)
	if err != nil {
		return nil, err
	}
	c, err := env.Compile(script, []string{resultsArgName})
	if err != nil {
		return nil, err
	}

	return func(results []*api.StepResult) *api.StepResult {
		inputs := api.Args{resultsArgName: resultsView(results)}
		out, err := env.Execute(c, inputs)
		if err != nil {
			slog.Warn("rerank script failed", log.Error(err))
			return nil
		}
		name := out.GetString("result", "")
		if name == "" {
			return nil
		}
		for _, res := range results {
			if res.Name == api.Name(name) {
				return res
			}
		}
		slog.Warn("rerank script chose unknown step", log.Step(name))
		return nil
	}, nil
}

// resultsView renders step results as plain values a script can traverse
func resultsView(results []*api.StepResult) []any {
	view := make([]any, len(results))
	for i, res := range results {
		output := make(map[string]any, len(res.Output))
		for k, v := range res.Output {
			output[string(k)] = v
		}
		view[i] = map[string]any{
			"name":        string(res.Name),
			"ok":          res.OK,
			"output":      output,
			"elapsed_sec": res.ElapsedSec,
			"error":       res.Error,
		}
	}
	return view
}
