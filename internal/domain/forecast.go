package domain

import "time"

// ForecastVariableResult is the per-variable answer in external units.
type ForecastVariableResult struct {
	Value float64 `json:"value"`
	// P05 and P95 bracket Value: P05 <= Value <= P95 whenever Available.
	P05        float64 `json:"p05"`
	P95        float64 `json:"p95"`
	Confidence float64 `json:"confidence"`
	Unit       string  `json:"unit,omitempty"`
	// Available is false for variable names outside the schema; all numeric
	// fields are zero in that case.
	Available bool `json:"available"`
}

// CategoryRisk scores one hazard category.
type CategoryRisk struct {
	Category string `json:"category"`
	Level    string `json:"level"`
	// Driver names the internal variable the thresholds were applied to and
	// Input the value that was classified (canonical units).
	Driver string  `json:"driver"`
	Input  float64 `json:"input"`
}

// RiskAssessment is the table-driven hazard classification for a forecast.
type RiskAssessment struct {
	// Level is the worst category level: minimal, low, moderate, high or extreme.
	Level      string         `json:"level"`
	Categories []CategoryRisk `json:"categories,omitempty"`
	Headline   string         `json:"headline,omitempty"`
}

// AnalogSummary describes the ensemble a forecast was built from.
type AnalogSummary struct {
	AnalogCount  int     `json:"analog_count"`
	MeanDistance float64 `json:"mean_distance"`
	MinDistance  float64 `json:"min_distance"`
	// OldestAnalog and NewestAnalog are zero for synthetic ensembles.
	OldestAnalog time.Time `json:"oldest_analog"`
	NewestAnalog time.Time `json:"newest_analog"`
	Synthetic    bool      `json:"synthetic"`
}

// ForecastResult is the complete answer for one forecast request. It is also
// the payload published to the results topic.
type ForecastResult struct {
	Horizon               Horizon                           `json:"horizon"`
	IssuedAt              time.Time                         `json:"issued_at"`
	CorrelationID         string                            `json:"correlation_id"`
	Variables             map[string]ForecastVariableResult `json:"variables"`
	Risk                  RiskAssessment                    `json:"risk"`
	ConfidenceExplanation string                            `json:"confidence_explanation"`
	AnalogSummary         AnalogSummary                     `json:"analog_summary"`
	Degraded              bool                              `json:"degraded"`
}
