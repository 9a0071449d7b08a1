package pool

import (
	"context"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Climatology is the degraded backend: it answers every search with a
// deterministic synthetic ensemble drawn from climatological distributions.
// It holds no resources, so a single instance serves any number of callers.
type Climatology struct{}

// NewClimatology returns the shared fallback backend.
func NewClimatology() *Climatology { return &Climatology{} }

// Query fabricates k climatology hits. The query vector is ignored: without
// an index there is nothing to compare it against.
func (c *Climatology) Query(ctx context.Context, _ domain.Horizon, _ []float64, k int) ([]domain.AnalogHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return domain.SyntheticEnsemble(k), nil
}

// Degraded reports true: climatology answers are always degraded.
func (c *Climatology) Degraded() bool { return true }
