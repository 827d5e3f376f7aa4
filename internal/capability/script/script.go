// Package script provides sandboxed Ale and Lua execution for inline
// workflow scripts: the "script" capability's eval operation and scripted
// winner selection for parallel groups.
package script

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Registry manages script environments for the supported languages
	Registry struct {
		envs map[string]Environment
	}

	// Environment defines a script execution environment
	Environment interface {
		// Validate checks whether a script compiles
		Validate(script string, argNames []string) error

		// Compile compiles a script taking the named arguments
		Compile(script string, argNames []string) (Compiled, error)

		// Execute runs a compiled script against the inputs
		Execute(c Compiled, inputs api.Args) (api.Args, error)
	}

	// Compiled represents a compiled script for any supported language.
	// Concrete types: *compiledAle (Ale), *CompiledLua (Lua)
	Compiled any
)

var ErrUnsupportedLanguage = errors.New("unsupported script language")

// NewRegistry creates a script registry with Ale and Lua environments
func NewRegistry() *Registry {
	return &Registry{
		envs: map[string]Environment{
			api.ScriptLangAle: NewAleEnv(),
			api.ScriptLangLua: NewLuaEnv(),
		},
	}
}

// Get returns the script environment for the given language
func (r *Registry) Get(language string) (Environment, error) {
	env, ok := r.envs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return env, nil
}

// NewCapability exposes the registry as the "script" capability. The eval
// operation compiles and runs an inline script: the payload carries
// "language", "script", and an optional "args" map whose sorted keys become
// the script's arguments. Script faults are reported through the "error"
// output key
func NewCapability(reg *Registry) *capability.Map {
	return capability.NewMap("script", map[string]capability.Func{
		"eval": func(_ context.Context, payload api.Args) (api.Args, error) {
			return reg.eval(payload), nil
		},
	})
}

func (r *Registry) eval(payload api.Args) api.Args {
	source := payload.GetString("script", "")
	if strings.TrimSpace(source) == "" {
		return api.Args{"error": "script is required"}
	}
	language := payload.GetString("language", "")
	if language == "" {
		return api.Args{"error": "language is required"}
	}
	env, err := r.Get(language)
	if err != nil {
		return api.Args{"error": err.Error()}
	}

	inputs := scriptInputs(payload["args"])
	c, err := env.Compile(source, sortedArgNames(inputs))
	if err != nil {
		return api.Args{"error": err.Error()}
	}
	out, err := env.Execute(c, inputs)
	if err != nil {
		return api.Args{"error": err.Error()}
	}
	return out
}

func scriptInputs(value any) api.Args {
	switch v := value.(type) {
	case api.Args:
		return v
	case map[string]any:
		return api.Normalize(v)
	default:
		return api.Args{}
	}
}

func sortedArgNames(inputs api.Args) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func cacheKey(script string, argNames []string) string {
	h := sha256.New()
	h.Write([]byte(script))
	for _, name := range argNames {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
