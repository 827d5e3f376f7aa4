package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/hollowgrove/cascade/pkg/api"
	"github.com/hollowgrove/cascade/pkg/log"
)

// wireWorkflow is the on-disk form of a preset's workflow file
type wireWorkflow struct {
	Rerank   *api.RerankSpec `json:"rerank,omitempty"`
	Return   api.Name        `json:"return,omitempty"`
	Sequence []*api.Unit     `json:"sequence"`
}

const (
	manifestFile        = "manifest.json"
	defaultVersion      = "0.1.0"
	defaultSequenceFile = "workflow.json"
)

var (
	ErrBadManifest = errors.New("malformed preset manifest")
	ErrBadSequence = errors.New("malformed preset sequence")
)

// LoadDir scans a preset directory, one subdirectory per preset, and
// registers every valid entry. File presets shadow built-ins of the same
// name. Invalid entries are skipped with a warning; a missing directory
// is not an error
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("Preset directory absent", slog.String("dir", dir))
			return nil
		}
		return err
	}

	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		e, err := loadOne(filepath.Join(dir, de.Name()))
		if err != nil {
			slog.Warn("Skipping preset",
				slog.String("dir", de.Name()), log.Error(err))
			continue
		}
		r.put(e)
		slog.Info("Preset loaded",
			log.Preset(e.manifest.Name),
			slog.String("version", e.manifest.Version),
		)
	}
	return nil
}

func loadOne(dir string) (*entry, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, ErrBadManifest
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadManifest, err)
	}
	if m.Version == "" {
		m.Version = defaultVersion
	}
	if m.SequenceFile == "" {
		m.SequenceFile = defaultSequenceFile
	}
	if err := checkName(m.Name); err != nil {
		return nil, err
	}

	seq, err := os.ReadFile(filepath.Join(dir, m.SequenceFile))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(seq) {
		return nil, ErrBadSequence
	}
	wire := &wireWorkflow{}
	if err := json.Unmarshal(seq, wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSequence, err)
	}

	spec := &api.WorkflowSpec{
		Rerank:       wire.Rerank,
		Name:         api.Name(m.Name),
		ReturnTarget: wire.Return,
		Sequence:     wire.Sequence,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &entry{
		manifest: m,
		spec:     spec,
		source:   SourceFile,
	}, nil
}
