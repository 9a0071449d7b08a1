package domain

import "context"

// StateProvider supplies the embedded representation of the current
// atmospheric state for a horizon. Embedding generation lives in the
// upstream pipeline; this service only consumes its vectors. A provider
// failure degrades the forecast to climatology rather than failing it.
type StateProvider interface {
	QueryVector(ctx context.Context, horizon Horizon) ([]float64, error)
}
