package domain

import (
	"fmt"
	"strings"
)

// Risk levels in ascending severity.
const (
	RiskMinimal  = "minimal"
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
	RiskExtreme  = "extreme"
)

var riskRank = map[string]int{
	RiskMinimal:  0,
	RiskLow:      1,
	RiskModerate: 2,
	RiskHigh:     3,
	RiskExtreme:  4,
}

// RiskRule classifies one hazard category from one internal variable.
type RiskRule struct {
	Category string
	Variable string
	// Breakpoints are the lower bounds of low, moderate, high and extreme,
	// in the variable's canonical unit. Below the first breakpoint is
	// minimal.
	Breakpoints [4]float64
}

// DefaultRiskTable returns the operational hazard rules. CAPE breakpoints
// follow the conventional marginal/moderate/strong/extreme instability
// ranges; precipitation and wind breakpoints are per-horizon accumulation
// and sustained-speed figures used by warning desks.
func DefaultRiskTable() []RiskRule {
	return []RiskRule{
		{Category: "convective_instability", Variable: "cape_jkg", Breakpoints: [4]float64{300, 1000, 2500, 4000}},
		{Category: "heavy_precipitation", Variable: "precip_mm", Breakpoints: [4]float64{2, 10, 25, 50}},
		{Category: "damaging_wind", Variable: "wind10m_ms", Breakpoints: [4]float64{8, 14, 21, 29}},
	}
}

// AssessRisk scores every rule whose variable has ensemble statistics.
// The classified input is mean + weight×(multiplier×std): part of the upper
// percentile half-width is added so that wide, uncertain ensembles cross
// hazard thresholds earlier than confident ones with the same mean. The
// overall level is the worst category.
func AssessRisk(rules []RiskRule, stats map[string]EnsembleStatistics, multiplier, weight float64) RiskAssessment {
	assessment := RiskAssessment{Level: RiskMinimal}
	worst := CategoryRisk{Level: RiskMinimal}

	for _, rule := range rules {
		st, ok := stats[rule.Variable]
		if !ok || st.AnalogCount == 0 {
			continue
		}

		input := st.Mean + weight*multiplier*st.StdDev
		cat := CategoryRisk{
			Category: rule.Category,
			Level:    classifyLevel(input, rule.Breakpoints),
			Driver:   rule.Variable,
			Input:    input,
		}
		assessment.Categories = append(assessment.Categories, cat)

		if riskRank[cat.Level] > riskRank[worst.Level] {
			worst = cat
		}
	}

	assessment.Level = worst.Level
	assessment.Headline = riskHeadline(worst)
	return assessment
}

func classifyLevel(input float64, breakpoints [4]float64) string {
	switch {
	case input < breakpoints[0]:
		return RiskMinimal
	case input < breakpoints[1]:
		return RiskLow
	case input < breakpoints[2]:
		return RiskModerate
	case input < breakpoints[3]:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

func riskHeadline(worst CategoryRisk) string {
	if worst.Category == "" || worst.Level == RiskMinimal {
		return "no significant weather hazards indicated"
	}
	return fmt.Sprintf("%s %s risk", worst.Level, strings.ReplaceAll(worst.Category, "_", " "))
}
