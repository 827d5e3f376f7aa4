package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hollowgrove/cascade/internal/capability/script"
	"github.com/hollowgrove/cascade/internal/workflow"
	"github.com/hollowgrove/cascade/pkg/api"
)

var (
	ErrSpecSourceNeeded = errors.New(
		"exactly one of sequence or preset is required")
	ErrBadRerank = errors.New("invalid rerank policy")
)

// adhocName names workflows submitted without one
const adhocName = api.Name("adhoc")

func (s *Server) runWorkflow(c *gin.Context) {
	var req api.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	spec, ok := s.resolveSpec(c, &req)
	if !ok {
		return
	}

	if err := spec.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	if !s.bindRerank(c, spec) {
		return
	}
	s.applyDefaults(spec)

	report, err := s.deps.Runner.Run(c.Request.Context(), spec, req.Inputs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, api.ErrEmptySequence) ||
			errors.Is(err, api.ErrReturnTargetMissing) {
			status = http.StatusBadRequest
		}
		c.JSON(status, api.ErrorResponse{
			Error:  err.Error(),
			Status: status,
		})
		return
	}

	c.JSON(http.StatusOK, runResponse(spec, report))
}

func (s *Server) listPresets(c *gin.Context) {
	digests := s.deps.Presets.List()
	c.JSON(http.StatusOK, api.PresetsResponse{
		Presets: digests,
		Count:   len(digests),
	})
}

// resolveSpec turns a run request into a workflow spec, either from the
// named preset or from the inline sequence. Request-level return and
// rerank settings override a preset's own
func (s *Server) resolveSpec(
	c *gin.Context, req *api.RunRequest,
) (*api.WorkflowSpec, bool) {
	hasSequence := len(req.Sequence) > 0
	hasPreset := req.Preset != ""

	if hasSequence == hasPreset {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  ErrSpecSourceNeeded.Error(),
			Status: http.StatusBadRequest,
		})
		return nil, false
	}

	if hasPreset {
		spec, err := s.deps.Presets.Get(req.Preset)
		if err != nil {
			c.JSON(http.StatusNotFound, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusNotFound,
			})
			return nil, false
		}
		if req.Return != "" {
			spec.ReturnTarget = req.Return
		}
		if req.Rerank != nil {
			spec.Rerank = req.Rerank
		}
		return spec, true
	}

	name := api.SanitizeName(req.Name)
	if name == "" {
		name = adhocName
	}
	return &api.WorkflowSpec{
		Rerank:       req.Rerank,
		Name:         name,
		ReturnTarget: req.Return,
		Sequence:     req.Sequence,
	}, true
}

// bindRerank resolves the spec's rerank declaration into a callable
// selector. Built-ins bind directly; scripts are compiled up front so a
// broken script fails the request instead of the run
func (s *Server) bindRerank(c *gin.Context, spec *api.WorkflowSpec) bool {
	if spec.Rerank == nil {
		return true
	}

	if spec.Rerank.Builtin != "" {
		fn, ok := workflow.BuiltinSelector(spec.Rerank.Builtin)
		if !ok {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error: fmt.Sprintf("%s: %s",
					api.ErrUnknownBuiltin, spec.Rerank.Builtin),
				Status: http.StatusBadRequest,
			})
			return false
		}
		spec.RerankFn = fn
		return true
	}

	fn, err := script.Selector(
		s.deps.Scripts, spec.Rerank.Language, spec.Rerank.Script,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrBadRerank, err),
			Status: http.StatusBadRequest,
		})
		return false
	}
	spec.RerankFn = fn
	return true
}

// applyDefaults stamps configured timeouts onto units that left them zero
func (s *Server) applyDefaults(spec *api.WorkflowSpec) {
	for _, u := range spec.Sequence {
		switch {
		case u.Step != nil:
			s.stepDefaults(u.Step)
		case u.Group != nil:
			if u.Group.Timeout == 0 {
				u.Group.Timeout = s.deps.Config.GroupTimeout
			}
			for _, step := range u.Group.Steps {
				s.stepDefaults(step)
			}
		}
	}
}

func (s *Server) stepDefaults(step *api.StepSpec) {
	if step.Timeout == 0 {
		step.Timeout = s.deps.Config.StepTimeout
	}
}

// runResponse shapes the HTTP reply: the sole result when a return target
// was declared, the full report and context otherwise
func runResponse(spec *api.WorkflowSpec, report *api.RunReport) *api.RunResponse {
	res := &api.RunResponse{
		Workflow: report.Workflow,
		RunID:    report.RunID,
		OK:       true,
	}
	if spec.ReturnTarget != "" {
		res.Result = report.Output
		return res
	}
	res.Report = report.Entries
	res.Context = report.Context
	res.Count = len(report.Entries)
	return res
}
