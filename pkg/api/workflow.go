package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/hollowgrove/cascade/pkg/util"
)

type (
	// StepSpec declares one invocation of a capability operation within a
	// workflow. Timeout and RetryBackoff are in milliseconds
	StepSpec struct {
		Payload      Args   `json:"payload,omitempty"`
		Name         Name   `json:"name"`
		Capability   string `json:"capability"`
		Operation    string `json:"operation"`
		Timeout      int64  `json:"timeout,omitempty"`
		Retries      int    `json:"retries,omitempty"`
		RetryBackoff int64  `json:"retry_backoff,omitempty"`
	}

	// GroupSpec declares a set of steps executed concurrently under a shared
	// deadline. Timeout is in milliseconds
	GroupSpec struct {
		Name    Name        `json:"name"`
		Steps   []*StepSpec `json:"steps"`
		Timeout int64       `json:"timeout,omitempty"`
	}

	// Unit is one element of a workflow sequence: either a single step or a
	// parallel group, never both
	Unit struct {
		Step  *StepSpec
		Group *GroupSpec
	}

	// WorkflowSpec declares a complete workflow: an ordered sequence of
	// units, an optional return target naming the unit whose output becomes
	// the run's sole result, and an optional rerank policy for selecting a
	// winner among parallel group members
	WorkflowSpec struct {
		RerankFn     RerankFunc  `json:"-"`
		Rerank       *RerankSpec `json:"rerank,omitempty"`
		Name         Name        `json:"name"`
		ReturnTarget Name        `json:"return,omitempty"`
		Sequence     []*Unit     `json:"sequence"`
	}

	// RerankSpec selects a winner policy by built-in name or by an inline
	// script that receives the successful results and returns a step name
	RerankSpec struct {
		Builtin  string `json:"builtin,omitempty"`
		Language string `json:"language,omitempty"`
		Script   string `json:"script,omitempty"`
	}

	// RerankFunc chooses one winning result among successful group members
	RerankFunc func([]*StepResult) *StepResult
)

const (
	ScriptLangAle = "ale"
	ScriptLangLua = "lua"

	RerankFirst       = "first"
	RerankLongestText = "longest_text"
)

const (
	Second int64 = 1000
	Minute       = Second * 60
	Hour         = Minute * 60
)

var (
	ErrStepNameEmpty       = errors.New("step name empty")
	ErrCapabilityEmpty     = errors.New("step capability empty")
	ErrOperationEmpty      = errors.New("step operation empty")
	ErrNegativeTimeout     = errors.New("timeout cannot be negative")
	ErrNegativeRetries     = errors.New("retries cannot be negative")
	ErrNegativeBackoff     = errors.New("retry_backoff cannot be negative")
	ErrGroupNameEmpty      = errors.New("group name empty")
	ErrGroupEmpty          = errors.New("group has no steps")
	ErrUnitEmpty           = errors.New("unit declares neither step nor group")
	ErrUnitAmbiguous       = errors.New("unit declares both step and group")
	ErrDuplicateName       = errors.New("duplicate name in sequence")
	ErrEmptySequence       = errors.New("workflow sequence empty")
	ErrReturnTargetMissing = errors.New("return target not found")
	ErrRerankAmbiguous     = errors.New("rerank declares both builtin and script")
	ErrRerankEmpty         = errors.New("rerank declares neither builtin nor script")
	ErrUnknownBuiltin      = errors.New("unknown rerank builtin")
	ErrScriptLanguageEmpty = errors.New("script language empty")
	ErrBadScriptLanguage   = errors.New("unsupported script language")
)

var (
	validBuiltins = util.SetOf(
		RerankFirst,
		RerankLongestText,
	)

	validLanguages = util.SetOf(
		ScriptLangAle,
		ScriptLangLua,
	)
)

// Clone returns a deep copy of the step spec. Payload values are shared;
// the payload map itself is copied
func (s *StepSpec) Clone() *StepSpec {
	res := *s
	res.Payload = maps.Clone(s.Payload)
	return &res
}

// Clone returns a deep copy of the group spec
func (g *GroupSpec) Clone() *GroupSpec {
	res := *g
	res.Steps = make([]*StepSpec, len(g.Steps))
	for i, s := range g.Steps {
		res.Steps[i] = s.Clone()
	}
	return &res
}

// Clone returns a deep copy of the unit
func (u *Unit) Clone() *Unit {
	res := &Unit{}
	if u.Step != nil {
		res.Step = u.Step.Clone()
	}
	if u.Group != nil {
		res.Group = u.Group.Clone()
	}
	return res
}

// Clone returns a deep copy of the workflow spec. Callers can stamp
// defaults or override the return target without affecting the original
func (w *WorkflowSpec) Clone() *WorkflowSpec {
	res := *w
	if w.Rerank != nil {
		rerank := *w.Rerank
		res.Rerank = &rerank
	}
	res.Sequence = make([]*Unit, len(w.Sequence))
	for i, u := range w.Sequence {
		res.Sequence[i] = u.Clone()
	}
	return &res
}

// UnitName returns the declared name of the unit's step or group
func (u *Unit) UnitName() Name {
	if u.Step != nil {
		return u.Step.Name
	}
	if u.Group != nil {
		return u.Group.Name
	}
	return ""
}

// UnmarshalJSON decodes a sequence unit from its flat wire form. A unit
// carrying a "steps" array is a parallel group, anything else is a step
func (u *Unit) UnmarshalJSON(data []byte) error {
	var probe struct {
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Steps != nil {
		group := &GroupSpec{}
		if err := json.Unmarshal(data, group); err != nil {
			return err
		}
		u.Group = group
		return nil
	}
	step := &StepSpec{}
	if err := json.Unmarshal(data, step); err != nil {
		return err
	}
	u.Step = step
	return nil
}

// MarshalJSON encodes the unit back to its flat wire form
func (u *Unit) MarshalJSON() ([]byte, error) {
	if u.Group != nil {
		return json.Marshal(u.Group)
	}
	return json.Marshal(u.Step)
}

func (s *StepSpec) Validate() error {
	if s.Name == "" {
		return ErrStepNameEmpty
	}
	if s.Capability == "" {
		return fmt.Errorf("%w: %s", ErrCapabilityEmpty, s.Name)
	}
	if s.Operation == "" {
		return fmt.Errorf("%w: %s", ErrOperationEmpty, s.Name)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTimeout, s.Name)
	}
	if s.Retries < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeRetries, s.Name)
	}
	if s.RetryBackoff < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeBackoff, s.Name)
	}
	return nil
}

func (g *GroupSpec) Validate() error {
	if g.Name == "" {
		return ErrGroupNameEmpty
	}
	if len(g.Steps) == 0 {
		return fmt.Errorf("%w: %s", ErrGroupEmpty, g.Name)
	}
	if g.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTimeout, g.Name)
	}
	for _, s := range g.Steps {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unit) Validate() error {
	if u.Step == nil && u.Group == nil {
		return ErrUnitEmpty
	}
	if u.Step != nil && u.Group != nil {
		return ErrUnitAmbiguous
	}
	if u.Step != nil {
		return u.Step.Validate()
	}
	return u.Group.Validate()
}

// Validate checks the workflow spec for structural problems: an empty
// sequence, malformed units, name collisions, or a bad rerank declaration.
// Step and group names share one namespace within a run
func (w *WorkflowSpec) Validate() error {
	if len(w.Sequence) == 0 {
		return ErrEmptySequence
	}

	seen := util.Set[Name]{}
	for _, u := range w.Sequence {
		if err := u.Validate(); err != nil {
			return err
		}
		names := []Name{u.UnitName()}
		if u.Group != nil {
			for _, s := range u.Group.Steps {
				names = append(names, s.Name)
			}
		}
		for _, name := range names {
			if seen.Contains(name) {
				return fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}
			seen.Add(name)
		}
	}

	if w.Rerank != nil {
		return w.Rerank.Validate()
	}
	return nil
}

func (r *RerankSpec) Validate() error {
	hasBuiltin := r.Builtin != ""
	hasScript := r.Script != ""

	if hasBuiltin && hasScript {
		return ErrRerankAmbiguous
	}
	if !hasBuiltin && !hasScript {
		return ErrRerankEmpty
	}

	if hasBuiltin {
		if !validBuiltins.Contains(r.Builtin) {
			return fmt.Errorf("%w: %s", ErrUnknownBuiltin, r.Builtin)
		}
		return nil
	}

	if r.Language == "" {
		return ErrScriptLanguageEmpty
	}
	if !validLanguages.Contains(r.Language) {
		return fmt.Errorf("%w: %s", ErrBadScriptLanguage, r.Language)
	}
	return nil
}
