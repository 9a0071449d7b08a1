package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Horizon
		wantErr  bool
	}{
		{"6h", "6h", Horizon6h, false},
		{"12h", "12h", Horizon12h, false},
		{"24h", "24h", Horizon24h, false},
		{"48h", "48h", Horizon48h, false},
		{"uppercase", "24H", Horizon24h, false},
		{"surrounding whitespace", "  6h  ", Horizon6h, false},
		{"unsupported 72h", "72h", "", true},
		{"unsupported 3h", "3h", "", true},
		{"missing unit", "24", "", true},
		{"empty", "", "", true},
		{"garbage", "tomorrow", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := ParseHorizon(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, h)
		})
	}
}

func TestHorizonLead(t *testing.T) {
	assert.Equal(t, 6*time.Hour, Horizon6h.Lead())
	assert.Equal(t, 12*time.Hour, Horizon12h.Lead())
	assert.Equal(t, 24*time.Hour, Horizon24h.Lead())
	assert.Equal(t, 48*time.Hour, Horizon48h.Lead())
}

func TestHorizons(t *testing.T) {
	hs := Horizons()
	require.Len(t, hs, 4)

	for i := 1; i < len(hs); i++ {
		assert.Less(t, hs[i-1].Lead(), hs[i].Lead())
	}
}
