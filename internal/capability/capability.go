package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/util"
)

type (
	// Capability is a named provider of operations that workflow steps can
	// invoke. Implementations must be safe for concurrent use
	Capability interface {
		Name() string
		Operations() []string
		Invoke(
			ctx context.Context, operation string, payload api.Args,
		) (api.Args, error)
	}

	// Func performs a single capability operation
	Func func(ctx context.Context, payload api.Args) (api.Args, error)

	// Map adapts a set of operation functions into a Capability. Results
	// are normalized to Args and panics surface as invocation errors
	Map struct {
		ops  map[string]Func
		name string
	}
)

var (
	ErrNotFound          = errors.New("capability not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrInvokePanic       = errors.New("operation panicked")
)

// NewMap creates a Capability backed by a map of operation functions
func NewMap(name string, ops map[string]Func) *Map {
	return &Map{
		name: name,
		ops:  ops,
	}
}

func (m *Map) Name() string {
	return m.name
}

func (m *Map) Operations() []string {
	res := make([]string, 0, len(m.ops))
	for op := range m.ops {
		res = append(res, op)
	}
	sort.Strings(res)
	return res
}

func (m *Map) Invoke(
	ctx context.Context, operation string, payload api.Args,
) (api.Args, error) {
	fn, ok := m.ops[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s",
			ErrOperationNotFound, m.name, operation)
	}
	return util.CatchPanic(ErrInvokePanic, func() (api.Args, error) {
		return fn(ctx, payload)
	})
}
