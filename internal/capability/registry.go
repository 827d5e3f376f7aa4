package capability

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hollowgrove/cascade/pkg/api"
)

// Registry maps capability names to implementations. It is safe for
// concurrent use
type Registry struct {
	caps map[string]Capability
	mu   sync.RWMutex
}

// NewRegistry creates an empty capability registry
func NewRegistry() *Registry {
	return &Registry{
		caps: map[string]Capability{},
	}
}

// Register adds a capability to the registry. Registering a name twice is
// an error
func (r *Registry) Register(c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, ok := r.caps[name]; ok {
		return fmt.Errorf("capability already registered: %s", name)
	}
	r.caps[name] = c
	return nil
}

// Get returns the capability registered under name
func (r *Registry) Get(name string) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return c, nil
}

// Has reports whether a capability is registered under name
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.caps[name]
	return ok
}

// Names returns all registered capability names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.caps))
	for name := range r.caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Digests returns a digest of every registered capability, sorted by name
func (r *Registry) Digests() []*api.CapabilityDigest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*api.CapabilityDigest, 0, len(r.caps))
	for _, c := range r.caps {
		res = append(res, &api.CapabilityDigest{
			Name:       c.Name(),
			Operations: c.Operations(),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}
