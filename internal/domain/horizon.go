package domain

import (
	"fmt"
	"strings"
	"time"
)

// Horizon is a supported forecast lead time. Each horizon is served by its
// own embedding index.
type Horizon string

const (
	Horizon6h  Horizon = "6h"
	Horizon12h Horizon = "12h"
	Horizon24h Horizon = "24h"
	Horizon48h Horizon = "48h"
)

// Horizons lists the supported lead times in ascending order.
func Horizons() []Horizon {
	return []Horizon{Horizon6h, Horizon12h, Horizon24h, Horizon48h}
}

// ParseHorizon validates a horizon string from a request or configuration.
// Input is trimmed and lowercased; anything outside the supported set is an
// invalid request.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(s)))
	switch h {
	case Horizon6h, Horizon12h, Horizon24h, Horizon48h:
		return h, nil
	}
	return "", fmt.Errorf("%w: unsupported horizon %q (supported: 6h, 12h, 24h, 48h)", ErrInvalidRequest, s)
}

// Lead returns the horizon as a duration. All supported horizons are valid
// Go duration strings, so this cannot fail for a parsed Horizon.
func (h Horizon) Lead() time.Duration {
	d, err := time.ParseDuration(string(h))
	if err != nil {
		return 0
	}
	return d
}

func (h Horizon) String() string { return string(h) }
