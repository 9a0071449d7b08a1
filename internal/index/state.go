package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// StateArtifact mirrors the current-state embedding artifact the upstream
// pipeline refreshes for each horizon.
type StateArtifact struct {
	Horizon     string    `json:"horizon"`
	Dimension   int       `json:"dimension"`
	GeneratedAt time.Time `json:"generated_at"`
	Vector      []float64 `json:"vector"`
}

// StateFileName returns the current-state artifact name for a horizon.
func StateFileName(h domain.Horizon) string {
	return fmt.Sprintf("current_state_%s.json", h)
}

// FileStateProvider reads current-state embeddings from per-horizon JSON
// files. Each read hits the filesystem so a refreshed artifact is picked up
// without a restart.
type FileStateProvider struct {
	dir string
}

// NewFileStateProvider creates a provider over a directory of state files.
func NewFileStateProvider(dir string) *FileStateProvider {
	return &FileStateProvider{dir: dir}
}

// QueryVector loads the embedded current state for a horizon.
func (p *FileStateProvider) QueryVector(ctx context.Context, horizon domain.Horizon) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(p.dir, StateFileName(horizon))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var file StateArtifact
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if file.Horizon != string(horizon) {
		return nil, fmt.Errorf("state %s: horizon mismatch: file says %q", path, file.Horizon)
	}
	if len(file.Vector) == 0 || len(file.Vector) != file.Dimension {
		return nil, fmt.Errorf("state %s: vector length %d, declared dimension %d", path, len(file.Vector), file.Dimension)
	}
	return file.Vector, nil
}
