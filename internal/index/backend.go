package index

import (
	"context"
	"fmt"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Backend serves analog searches from a set of loaded handles, one per
// horizon. It satisfies the pool's backend contract.
type Backend struct {
	handles map[domain.Horizon]*Handle
}

// NewBackend wraps loaded handles into a searchable backend.
func NewBackend(handles map[domain.Horizon]*Handle) *Backend {
	return &Backend{handles: handles}
}

// Query runs a k-nearest-neighbor search against the horizon's handle.
// Horizon validity is checked upstream, but a handle can still be absent if
// the service was configured with a subset of horizons.
func (b *Backend) Query(ctx context.Context, horizon domain.Horizon, vector []float64, k int) ([]domain.AnalogHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, ok := b.handles[horizon]
	if !ok {
		return nil, fmt.Errorf("no index loaded for horizon %s", horizon)
	}
	return handle.Search(vector, k)
}

// Degraded reports false: a loaded index backend serves real analogs.
func (b *Backend) Degraded() bool { return false }

// Handle exposes the loaded handle for a horizon, for health reporting and
// artifact validation.
func (b *Backend) Handle(horizon domain.Horizon) (*Handle, bool) {
	h, ok := b.handles[horizon]
	return h, ok
}
