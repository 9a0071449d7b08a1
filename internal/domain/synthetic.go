package domain

import (
	"fmt"
	"math"
	"sort"
)

// climatologyQuantiles are standard-normal z-scores for the 10th through 90th
// percentiles in steps of ten, ordered nearest the median first.
var climatologyQuantiles = []float64{0, 0.25, -0.25, 0.52, -0.52, 0.84, -0.84, 1.28, -1.28}

// SyntheticEnsemble fabricates k analog hits from the climatological
// distribution, for searches no index backend can serve. Each hit's outcome
// is climMean + z×climStd per variable (floored at zero for non-negative
// variables) and its distance is |z|, so aggregation and risk scoring run
// unchanged on degraded results. Hits are deterministic: fixed quantiles,
// cycled when k exceeds the quantile set, sorted ascending by distance.
func SyntheticEnsemble(k int) []AnalogHit {
	if k < 1 {
		return nil
	}

	hits := make([]AnalogHit, 0, k)
	for i := 0; i < k; i++ {
		z := climatologyQuantiles[i%len(climatologyQuantiles)]
		outcome := make([]float64, OutcomeWidth)
		for _, iv := range internalVariables {
			v := iv.ClimMean + z*iv.ClimStd
			if iv.NonNegative && v < 0 {
				v = 0
			}
			outcome[iv.Column] = v
		}
		hits = append(hits, AnalogHit{
			RecordID: fmt.Sprintf("climatology-%03d", i),
			Distance: math.Abs(z),
			Outcome:  outcome,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
