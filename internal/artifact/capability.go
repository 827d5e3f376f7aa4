package artifact

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/hollowgrove/cascade/internal/capability"
	"github.com/hollowgrove/cascade/pkg/api"
)

// NewCapability exposes stored artifacts to workflow steps as the
// "artifact" capability. stat reports metadata; read_text returns an
// artifact's content for text inputs
func NewCapability(s *Store) *capability.Map {
	return capability.NewMap("artifact", map[string]capability.Func{
		"stat":      s.statOp,
		"read_text": s.readTextOp,
	})
}

func (s *Store) statOp(
	ctx context.Context, payload api.Args,
) (api.Args, error) {
	id := payload.GetString("id", "")
	if id == "" {
		return api.Args{"error": "id is required"}, nil
	}

	meta, err := s.Stat(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return api.Args{"error": err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	return api.Args{
		"id":           meta.ID,
		"name":         meta.Name,
		"content_type": meta.ContentType,
		"size":         meta.Size,
	}, nil
}

func (s *Store) readTextOp(
	ctx context.Context, payload api.Args,
) (api.Args, error) {
	id := payload.GetString("id", "")
	if id == "" {
		return api.Args{"error": "id is required"}, nil
	}

	data, meta, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return api.Args{"error": err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return api.Args{"error": "artifact is not text"}, nil
	}

	return api.Args{
		"text": string(data),
		"name": meta.Name,
		"size": meta.Size,
	}, nil
}
