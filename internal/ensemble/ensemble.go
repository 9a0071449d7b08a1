// Package ensemble aggregates analog outcomes into per-variable forecast
// bands with uncertainty and confidence.
package ensemble

import (
	"math"

	"github.com/couchcryptid/analog-forecast/internal/domain"
)

// Config holds the aggregation knobs.
type Config struct {
	// PercentileMultiplier scales the ensemble standard deviation into the
	// p05/p95 band. 1.645 gives 90% coverage under a normal assumption.
	PercentileMultiplier float64
	// DegradedCeiling caps confidence when the ensemble is synthetic.
	DegradedCeiling float64
	// MinAnalogs is the analog count at which the count factor of the
	// confidence score reaches one half.
	MinAnalogs int
}

// Band is a canonical-unit forecast band for one variable.
type Band struct {
	Value      float64
	P05        float64
	P95        float64
	Confidence float64
}

// Aggregator turns analog hit sets into statistics and forecast bands.
type Aggregator struct {
	cfg    Config
	mapper *domain.VariableMapper
}

// New creates an aggregator over the variable schema.
func New(cfg Config, mapper *domain.VariableMapper) *Aggregator {
	return &Aggregator{cfg: cfg, mapper: mapper}
}

// Aggregate computes mean, sample standard deviation and count for every
// internal variable across the hit set. Samples with short or non-finite
// outcome rows are skipped per variable, so one bad record cannot sink a
// whole forecast.
func (a *Aggregator) Aggregate(hits []domain.AnalogHit) map[string]domain.EnsembleStatistics {
	stats := make(map[string]domain.EnsembleStatistics, domain.OutcomeWidth)

	for _, iv := range a.mapper.Internals() {
		var (
			sum   float64
			count int
		)
		for _, hit := range hits {
			v, ok := sample(hit, iv.Column)
			if !ok {
				continue
			}
			sum += v
			count++
		}
		if count == 0 {
			continue
		}

		mean := sum / float64(count)

		var sqsum float64
		for _, hit := range hits {
			v, ok := sample(hit, iv.Column)
			if !ok {
				continue
			}
			d := v - mean
			sqsum += d * d
		}

		var std float64
		if count > 1 {
			std = math.Sqrt(sqsum / float64(count-1))
		}

		stats[iv.Name] = domain.EnsembleStatistics{
			Mean:        mean,
			StdDev:      std,
			AnalogCount: count,
		}
	}

	return stats
}

// Band builds the canonical-unit forecast band for one internal variable.
// The band always satisfies P05 <= Value <= P95, including the zero-variance
// and single-analog cases where all three coincide.
func (a *Aggregator) Band(stats domain.EnsembleStatistics, iv domain.InternalVariable, degraded bool) Band {
	value := stats.Mean
	half := a.cfg.PercentileMultiplier * stats.StdDev

	p05 := value - half
	p95 := value + half
	if p05 > value {
		p05 = value
	}
	if p95 < value {
		p95 = value
	}
	if iv.NonNegative && p05 < 0 {
		p05 = 0
	}

	return Band{
		Value:      value,
		P05:        p05,
		P95:        p95,
		Confidence: a.Confidence(stats, iv.ClimStd, degraded),
	}
}

// Confidence scores a variable's band in [0, 1]: the product of a count
// factor n/(n+minAnalogs), rising with ensemble size, and a spread factor
// climStd/(climStd+std), falling as the ensemble disperses beyond
// climatology. Degraded ensembles are capped at the configured ceiling so a
// climatology answer never looks confident.
func (a *Aggregator) Confidence(stats domain.EnsembleStatistics, climStd float64, degraded bool) float64 {
	if stats.AnalogCount == 0 {
		return 0
	}

	countFactor := float64(stats.AnalogCount) / float64(stats.AnalogCount+a.cfg.MinAnalogs)

	spreadFactor := 1.0
	if climStd > 0 {
		spreadFactor = climStd / (climStd + stats.StdDev)
	}

	confidence := countFactor * spreadFactor
	if degraded && confidence > a.cfg.DegradedCeiling {
		confidence = a.cfg.DegradedCeiling
	}
	return confidence
}

func sample(hit domain.AnalogHit, column int) (float64, bool) {
	if column >= len(hit.Outcome) {
		return 0, false
	}
	v := hit.Outcome[column]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
