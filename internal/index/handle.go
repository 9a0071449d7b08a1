// Package index loads precomputed analog embedding indices and serves
// exact k-nearest-neighbor searches over them. Index construction happens
// in the upstream embedding pipeline; this package only consumes its
// artifacts.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Metric identifies the distance function an index was built with.
type Metric string

const (
	MetricL2     Metric = "l2"
	MetricCosine Metric = "cosine"
)

// Handle is a loaded, read-only embedding index for one horizon. Vectors,
// outcomes and record metadata are parallel arrays; nothing mutates after
// load, so a handle is safe for concurrent searches.
type Handle struct {
	horizon     domain.Horizon
	dimension   int
	metric      Metric
	contentHash string

	recordIDs  []string
	timestamps []time.Time
	vectors    [][]float64
	outcomes   [][]float64
}

func (h *Handle) Horizon() domain.Horizon { return h.horizon }
func (h *Handle) Dimension() int          { return h.dimension }
func (h *Handle) VectorCount() int        { return len(h.vectors) }
func (h *Handle) Metric() Metric          { return h.metric }

// ContentHash is the sha256 of the index file, hex encoded. Two services
// serving the same hash serve identical analogs.
func (h *Handle) ContentHash() string { return h.contentHash }

// Search scans every stored vector and returns the k nearest to the query,
// ascending by distance. k is capped at the record count.
func (h *Handle) Search(query []float64, k int) ([]domain.AnalogHit, error) {
	if k < 1 {
		return nil, fmt.Errorf("search: k must be positive, got %d", k)
	}
	if len(query) != h.dimension {
		return nil, fmt.Errorf("search: query dimension %d, index dimension %d", len(query), h.dimension)
	}
	if k > len(h.vectors) {
		k = len(h.vectors)
	}

	type scored struct {
		idx      int
		distance float64
	}

	scores := make([]scored, len(h.vectors))
	for i, v := range h.vectors {
		scores[i] = scored{idx: i, distance: h.distance(query, v)}
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].distance < scores[j].distance })

	hits := make([]domain.AnalogHit, 0, k)
	for _, s := range scores[:k] {
		hits = append(hits, domain.AnalogHit{
			RecordID:  h.recordIDs[s.idx],
			Distance:  s.distance,
			Timestamp: h.timestamps[s.idx],
			Outcome:   h.outcomes[s.idx],
		})
	}
	return hits, nil
}

func (h *Handle) distance(a, b []float64) float64 {
	if h.metric == MetricCosine {
		return cosineDistance(a, b)
	}
	return l2Distance(a, b)
}

func l2Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 − cosine similarity, so 0 means identical direction
// and 2 means opposite. Zero-norm vectors compare as maximally distant.
func cosineDistance(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
