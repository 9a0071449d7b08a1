package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// FileVersion is the index artifact schema version this loader understands.
const FileVersion = 1

// Artifact mirrors the on-disk JSON artifact written by the embedding
// pipeline (and by cmd/genindex for fixtures).
type Artifact struct {
	Version    int         `json:"version"`
	Horizon    string      `json:"horizon"`
	Dimension  int         `json:"dimension"`
	Metric     string      `json:"metric"`
	RecordIDs  []string    `json:"record_ids"`
	Timestamps []time.Time `json:"timestamps"`
	Vectors    [][]float64 `json:"vectors"`
	Outcomes   [][]float64 `json:"outcomes"`
}

// FileName returns the index artifact name for a horizon.
func FileName(h domain.Horizon) string {
	return fmt.Sprintf("analog_index_%s.json", h)
}

// Load reads the index artifact for every horizon from dir, concurrently.
// The first failure aborts the whole load: a service with a missing or
// corrupt index for one horizon should not start half-blind.
func Load(ctx context.Context, dir string, horizons []domain.Horizon) (map[domain.Horizon]*Handle, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	handles := make(map[domain.Horizon]*Handle, len(horizons))

	for _, horizon := range horizons {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			handle, err := LoadFile(filepath.Join(dir, FileName(horizon)), horizon)
			if err != nil {
				return err
			}
			mu.Lock()
			handles[horizon] = handle
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return handles, nil
}

// LoadFile reads and validates a single index artifact. The horizon baked
// into the file must match the one the caller expects.
func LoadFile(path string, horizon domain.Horizon) (*Handle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var file Artifact
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}

	if err := validateFile(file, horizon); err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}

	hash := sha256.Sum256(raw)
	return &Handle{
		horizon:     horizon,
		dimension:   file.Dimension,
		metric:      Metric(file.Metric),
		contentHash: hex.EncodeToString(hash[:]),
		recordIDs:   file.RecordIDs,
		timestamps:  file.Timestamps,
		vectors:     file.Vectors,
		outcomes:    file.Outcomes,
	}, nil
}

func validateFile(file Artifact, horizon domain.Horizon) error {
	if file.Version != FileVersion {
		return fmt.Errorf("unsupported version %d (want %d)", file.Version, FileVersion)
	}
	if file.Horizon != string(horizon) {
		return fmt.Errorf("horizon mismatch: file says %q, expected %q", file.Horizon, horizon)
	}
	switch Metric(file.Metric) {
	case MetricL2, MetricCosine:
	default:
		return fmt.Errorf("unknown metric %q", file.Metric)
	}
	if file.Dimension < 1 {
		return fmt.Errorf("non-positive dimension %d", file.Dimension)
	}
	if len(file.Vectors) == 0 {
		return fmt.Errorf("empty index")
	}

	n := len(file.Vectors)
	if len(file.Outcomes) != n || len(file.RecordIDs) != n || len(file.Timestamps) != n {
		return fmt.Errorf("parallel arrays disagree: %d vectors, %d outcomes, %d ids, %d timestamps",
			n, len(file.Outcomes), len(file.RecordIDs), len(file.Timestamps))
	}

	for i, v := range file.Vectors {
		if len(v) != file.Dimension {
			return fmt.Errorf("vector %d has dimension %d (want %d)", i, len(v), file.Dimension)
		}
	}
	for i, o := range file.Outcomes {
		if len(o) != domain.OutcomeWidth {
			return fmt.Errorf("outcome %d has %d columns (want %d)", i, len(o), domain.OutcomeWidth)
		}
	}
	return nil
}
