package domain

import "time"

// AnalogHit is one historical neighbor returned by an index search: the
// record that was similar, how similar it was, and what the weather did next.
type AnalogHit struct {
	RecordID string
	Distance float64
	// Timestamp is when the historical state was observed. Zero for
	// synthetic climatology hits.
	Timestamp time.Time
	// Outcome holds the observed values one horizon later, in the outcome
	// vector column layout (see package doc).
	Outcome []float64
}

// AnalogSearchRequest describes one k-nearest-neighbor lookup against the
// index for a horizon.
type AnalogSearchRequest struct {
	Horizon       Horizon
	K             int
	QueryVector   []float64
	CorrelationID string
	// Deadline bounds the whole acquire-and-search sequence. Zero means the
	// orchestrator applies its configured default.
	Deadline time.Time
}

// AnalogSearchResult carries the hits plus enough bookkeeping to explain how
// the search went.
type AnalogSearchResult struct {
	// Hits are ordered by ascending Distance, at most K of them.
	Hits []AnalogHit
	// Degraded is true when the hits are synthetic climatology draws rather
	// than real index neighbors.
	Degraded bool
	// Attempts counts backend queries made, including the successful one.
	Attempts         int
	BackendLatencyMS float64
}

// EnsembleStatistics summarizes one outcome variable across the analog set.
type EnsembleStatistics struct {
	Mean        float64
	StdDev      float64
	AnalogCount int
}
