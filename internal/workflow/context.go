// Package workflow contains the run-time core: the per-run context with
// placeholder resolution, the step and parallel group executors, winner
// selection for parallel groups, and the runner that drives a declared
// sequence to completion.
package workflow

import (
	"maps"
	"strings"

	"github.com/hollowgrove/cascade/pkg/api"
)

// Context accumulates step outputs during a single run, seeded with the
// caller's root inputs. It is scoped to one Run invocation and is only
// touched between units, so it carries no lock
type Context struct {
	root   api.Args
	byStep map[api.Name]api.Args
}

// NewContext creates a run context seeded with root inputs
func NewContext(inputs api.Args) *Context {
	root := api.Args{}
	if inputs != nil {
		root = maps.Clone(inputs)
	}
	return &Context{
		root:   root,
		byStep: map[api.Name]api.Args{},
	}
}

// Record stores a completed unit's output under its name. Failed units
// record nil so downstream placeholders resolve to null rather than
// failing the run
func (c *Context) Record(step api.Name, output api.Args) {
	c.byStep[step] = output
}

// Lookup returns the recorded output for a unit. The boolean reports
// whether the unit completed at all; a failed unit yields (nil, true)
func (c *Context) Lookup(step api.Name) (api.Args, bool) {
	out, ok := c.byStep[step]
	return out, ok
}

// Snapshot returns the recorded outputs keyed by unit name
func (c *Context) Snapshot() api.Args {
	res := make(api.Args, len(c.byStep))
	for name, out := range c.byStep {
		res[name] = out
	}
	return res
}

// Resolve replaces placeholder strings of the exact form "{key}" within a
// payload value, recursing through maps and lists. A key without a dot
// names a root input; "step.field.path" navigates a recorded output;
// a bare key matching neither resolves against recorded outputs as a
// whole. Missing keys and paths resolve to nil. Strings that are not an
// exact "{...}" wrapper pass through unchanged
func (c *Context) Resolve(value any) any {
	switch v := value.(type) {
	case api.Args:
		res := make(api.Args, len(v))
		for name, item := range v {
			res[name] = c.Resolve(item)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(v))
		for name, item := range v {
			res[name] = c.Resolve(item)
		}
		return res
	case []any:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = c.Resolve(item)
		}
		return res
	case string:
		return c.resolveString(v)
	default:
		return value
	}
}

func (c *Context) resolveString(s string) any {
	if len(s) < 2 || !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return s
	}
	key := s[1 : len(s)-1]

	step, path, dotted := strings.Cut(key, ".")
	if !dotted {
		if v, ok := c.root[api.Name(key)]; ok {
			return v
		}
		if out, ok := c.byStep[api.Name(key)]; ok && out != nil {
			return out
		}
		return nil
	}

	out, ok := c.byStep[api.Name(step)]
	if !ok || out == nil {
		return nil
	}
	return lookupPath(out, path)
}

func lookupPath(obj any, dotted string) any {
	cur := obj
	for _, part := range strings.Split(dotted, ".") {
		switch m := cur.(type) {
		case api.Args:
			v, ok := m[api.Name(part)]
			if !ok {
				return nil
			}
			cur = v
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil
			}
			cur = v
		default:
			return nil
		}
	}
	return cur
}
