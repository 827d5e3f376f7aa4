package preset

import (
	"fmt"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/builder"
)

// Built-in preset names
const (
	EchoPipeline = "echo-pipeline"
	TextPipeline = "text-pipeline"
)

func registerBuiltins(r *Registry) {
	builtins := []struct {
		build    func() (*api.WorkflowSpec, error)
		manifest *Manifest
	}{
		{
			build: buildEchoPipeline,
			manifest: &Manifest{
				Name:        EchoPipeline,
				Version:     "1.0.0",
				Description: "two-step echo round trip",
				Tags:        []string{"smoke"},
			},
		},
		{
			build: buildTextPipeline,
			manifest: &Manifest{
				Name:        TextPipeline,
				Version:     "1.0.0",
				Description: "normalize text, then race a summary against a headline",
				Tags:        []string{"text", "smoke"},
			},
		},
	}

	for _, b := range builtins {
		spec, err := b.build()
		if err == nil {
			err = r.Register(b.manifest, spec)
		}
		if err != nil {
			panic(fmt.Sprintf("builtin preset %s: %s", b.manifest.Name, err))
		}
	}
}

func buildEchoPipeline() (*api.WorkflowSpec, error) {
	return builder.NewWorkflow(EchoPipeline).
		WithStep(builder.NewStep("ping").
			WithCapability("echo").
			WithOperation("ping").
			WithInput("seed", builder.Ref("seed"))).
		WithStep(builder.NewStep("confirm").
			WithCapability("echo").
			WithOperation("ping").
			WithInput("echoed", builder.Ref("ping.pong"))).
		WithReturn("confirm").
		Build()
}

func buildTextPipeline() (*api.WorkflowSpec, error) {
	return builder.NewWorkflow(TextPipeline).
		WithStep(builder.NewStep("clean").
			WithCapability("textkit").
			WithOperation("normalize").
			WithInput("text", builder.Ref("text")).
			WithInput("lower", true)).
		WithGroup(builder.NewGroup("variants").
			WithStep(builder.NewStep("summary").
				WithCapability("textkit").
				WithOperation("summarize").
				WithInput("text", builder.Ref("clean.text"))).
			WithStep(builder.NewStep("headline").
				WithCapability("textkit").
				WithOperation("head").
				WithInput("text", builder.Ref("clean.text")).
				WithInput("max_runes", 48))).
		WithRerank(api.RerankLongestText).
		WithReturn("variants").
		Build()
}
