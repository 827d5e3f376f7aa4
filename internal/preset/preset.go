// Package preset resolves named workflow presets. Presets come from two
// sources: built-ins registered in code and a preset directory scanned at
// startup, where file entries shadow built-ins of the same name
package preset

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Manifest describes a preset as published in its manifest.json
	Manifest struct {
		Name         string   `json:"name"`
		Version      string   `json:"version,omitempty"`
		Description  string   `json:"description,omitempty"`
		SequenceFile string   `json:"sequence_file,omitempty"`
		Tags         []string `json:"tags,omitempty"`
	}

	entry struct {
		manifest *Manifest
		spec     *api.WorkflowSpec
		source   string
	}

	// Registry maps preset names to workflow specs. It is safe for
	// concurrent use
	Registry struct {
		presets map[string]*entry
		mu      sync.RWMutex
	}
)

// Preset sources as reported in digests
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
)

var (
	ErrNotFound    = errors.New("preset not found")
	ErrNameInvalid = errors.New("preset name invalid")
)

// NewRegistry creates a preset registry seeded with the built-in presets
func NewRegistry() *Registry {
	r := &Registry{
		presets: map[string]*entry{},
	}
	registerBuiltins(r)
	return r
}

// Register adds an in-code preset. Names must already be in sanitized
// form. Registering a name twice is an error
func (r *Registry) Register(m *Manifest, spec *api.WorkflowSpec) error {
	if err := checkName(m.Name); err != nil {
		return err
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[m.Name]; ok {
		return fmt.Errorf("preset already registered: %s", m.Name)
	}
	r.presets[m.Name] = &entry{
		manifest: m,
		spec:     spec,
		source:   SourceBuiltin,
	}
	return nil
}

// Get returns a deep copy of the named preset's workflow spec. Callers
// can stamp defaults or override the return target on the copy without
// affecting later resolutions
func (r *Registry) Get(name string) (*api.WorkflowSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.spec.Clone(), nil
}

// Has reports whether a preset is registered under name
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.presets[name]
	return ok
}

// List returns a digest of every registered preset, sorted by name
func (r *Registry) List() []*api.PresetDigest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*api.PresetDigest, 0, len(r.presets))
	for _, e := range r.presets {
		res = append(res, &api.PresetDigest{
			Name:        e.manifest.Name,
			Version:     e.manifest.Version,
			Description: e.manifest.Description,
			Source:      e.source,
			Tags:        e.manifest.Tags,
			Units:       len(e.spec.Sequence),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}

func (r *Registry) put(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[e.manifest.Name] = e
}

func checkName(name string) error {
	if name == "" || api.SanitizeName(name) != name {
		return fmt.Errorf("%w: %q", ErrNameInvalid, name)
	}
	return nil
}
