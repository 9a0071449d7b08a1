// Command validate performs end-to-end integrity checks over generated index
// artifacts: raw file vs loader agreement, physical plausibility of stored
// outcomes, sample queries through the real search path, and schema alignment
// of the ForecastResults the assembled service produces from them.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -indices-dir data/indices \
//	  -state-dir data/embeddings
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/analog-forecast/internal/config"
	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/ensemble"
	"github.com/couchcryptid/analog-forecast/internal/forecast"
	"github.com/couchcryptid/analog-forecast/internal/index"
	"github.com/couchcryptid/analog-forecast/internal/observability"
	"github.com/couchcryptid/analog-forecast/internal/pool"
	"github.com/couchcryptid/analog-forecast/internal/search"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	indicesDir := flag.String("indices-dir", "", "directory containing analog index artifacts")
	stateDir := flag.String("state-dir", "", "directory containing current-state artifacts")
	horizonsFlag := flag.String("horizons", "6h,12h,24h,48h", "comma-separated horizons to validate")
	k := flag.Int("k", 25, "neighbors per sample query")
	flag.Parse()

	if *indicesDir == "" || *stateDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	horizons, err := parseHorizons(*horizonsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if code := run(*indicesDir, *stateDir, horizons, *k); code != 0 {
		os.Exit(code)
	}
}

func run(indicesDir, stateDir string, horizons []domain.Horizon, k int) int {
	fmt.Println("=== Analog Index Integrity Validation ===")
	fmt.Println()

	// ── Load all artifacts, raw and through the loader ──
	raws := make(map[domain.Horizon]index.Artifact, len(horizons))
	handles := make(map[domain.Horizon]*index.Handle, len(horizons))
	for _, h := range horizons {
		path := filepath.Join(indicesDir, index.FileName(h))

		raw, err := loadJSON[index.Artifact](path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
			return 1
		}
		raws[h] = raw

		handle, err := index.LoadFile(path, h)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", path, err)
			return 1
		}
		handles[h] = handle
	}

	provider := index.NewFileStateProvider(stateDir)

	// ── Run validation phases ──
	phases := []*phase{
		validateLoaderAgreement(horizons, raws, handles),
		validatePhysicalPlausibility(horizons, raws),
		validateSampleQueries(horizons, handles, provider, k),
		validateForecastSchema(horizons, handles, provider, k),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-46s %s\n", p.name, status)
	}

	total := 0
	for _, h := range horizons {
		total += len(raws[h].Vectors)
	}
	fmt.Println()
	fmt.Printf("Artifacts: %d horizons, %d records total\n", len(horizons), total)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Loader Agreement ──
// The handle the service would serve from must describe exactly what is in
// the file.

func validateLoaderAgreement(horizons []domain.Horizon, raws map[domain.Horizon]index.Artifact, handles map[domain.Horizon]*index.Handle) *phase {
	p := &phase{name: "Phase 1: Loader Agreement (file vs handle)"}

	for _, h := range horizons {
		raw := raws[h]
		handle := handles[h]

		if handle.Dimension() != raw.Dimension {
			p.errorf("%s: handle dimension %d, file says %d", h, handle.Dimension(), raw.Dimension)
		}
		if handle.VectorCount() != len(raw.Vectors) {
			p.errorf("%s: handle has %d vectors, file has %d", h, handle.VectorCount(), len(raw.Vectors))
		}
		if string(handle.Metric()) != raw.Metric {
			p.errorf("%s: handle metric %q, file says %q", h, handle.Metric(), raw.Metric)
		}
		if handle.ContentHash() == "" {
			p.errorf("%s: handle has no content hash", h)
		}

		seen := make(map[string]int, len(raw.RecordIDs))
		for i, id := range raw.RecordIDs {
			if id == "" {
				p.errorf("%s: record %d has empty id", h, i)
				continue
			}
			if prev, dup := seen[id]; dup {
				p.errorf("%s: duplicate record id %q at %d and %d", h, id, prev, i)
			}
			seen[id] = i
		}

		for i, ts := range raw.Timestamps {
			if ts.IsZero() {
				p.errorf("%s: record %d has zero timestamp", h, i)
			}
		}
	}
	return p
}

// ── Phase 2: Physical Plausibility ──
// Stored outcomes must be finite and inside generous climatological bounds;
// a corrupted column shows up here before it poisons forecasts.

func validatePhysicalPlausibility(horizons []domain.Horizon, raws map[domain.Horizon]index.Artifact) *phase {
	p := &phase{name: "Phase 2: Physical Plausibility (outcomes)"}

	schema := domain.NewVariableMapper().Internals()
	for _, h := range horizons {
		raw := raws[h]

		for i, vec := range raw.Vectors {
			for j, v := range vec {
				if !isFinite(v) {
					p.errorf("%s: vector %d component %d is %v", h, i, j, v)
				}
			}
		}

		for i, outcome := range raw.Outcomes {
			if len(outcome) != len(schema) {
				p.errorf("%s: outcome %d has %d columns, schema has %d", h, i, len(outcome), len(schema))
				continue
			}
			for c, iv := range schema {
				v := outcome[c]
				if !isFinite(v) {
					p.errorf("%s: outcome %d %s is %v", h, i, iv.Name, v)
					continue
				}
				lo, hi := iv.ClimMean-10*iv.ClimStd, iv.ClimMean+10*iv.ClimStd
				if iv.NonNegative && lo < 0 {
					lo = 0
				}
				if v < lo || v > hi {
					p.errorf("%s: outcome %d %s = %.2f outside plausible [%.2f, %.2f]", h, i, iv.Name, v, lo, hi)
				}
			}
		}
	}
	return p
}

// ── Phase 3: Sample Queries ──
// The stored current state must be searchable against its own index and
// return an ordered neighborhood.

func validateSampleQueries(horizons []domain.Horizon, handles map[domain.Horizon]*index.Handle, provider *index.FileStateProvider, k int) *phase {
	p := &phase{name: "Phase 3: Sample Queries (state vs index)"}

	ctx := context.Background()
	for _, h := range horizons {
		handle := handles[h]

		vector, err := provider.QueryVector(ctx, h)
		if err != nil {
			p.errorf("%s: current state: %v", h, err)
			continue
		}
		if len(vector) != handle.Dimension() {
			p.errorf("%s: state dimension %d, index dimension %d", h, len(vector), handle.Dimension())
			continue
		}

		hits, err := handle.Search(vector, k)
		if err != nil {
			p.errorf("%s: sample query: %v", h, err)
			continue
		}

		want := k
		if handle.VectorCount() < want {
			want = handle.VectorCount()
		}
		if len(hits) != want {
			p.errorf("%s: sample query returned %d hits, want %d", h, len(hits), want)
		}
		for i, hit := range hits {
			if !isFinite(hit.Distance) || hit.Distance < 0 {
				p.errorf("%s: hit %d has distance %v", h, i, hit.Distance)
			}
			if i > 0 && hit.Distance < hits[i-1].Distance {
				p.errorf("%s: hits out of order at %d (%.4f after %.4f)", h, i, hit.Distance, hits[i-1].Distance)
			}
			if len(hit.Outcome) != domain.OutcomeWidth {
				p.errorf("%s: hit %d outcome has %d columns", h, i, len(hit.Outcome))
			}
		}
	}
	return p
}

// ── Phase 4: Forecast Schema ──
// Assemble the real service over the artifacts and check every produced
// ForecastResult against its own invariants.

func validateForecastSchema(horizons []domain.Horizon, handles map[domain.Horizon]*index.Handle, provider *index.FileStateProvider, k int) *phase {
	p := &phase{name: "Phase 4: Forecast Schema (end to end)"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()

	cfg := &config.Config{
		PoolSize:              1,
		SearchTimeout:         5 * time.Second,
		RetryAttempts:         1,
		RetryBaseDelay:        10 * time.Millisecond,
		RetryMaxDelay:         100 * time.Millisecond,
		RetryMultiplier:       2,
		DefaultK:              k,
		PercentileMultiplier:  1.645,
		ConfidenceCeiling:     0.3,
		MinAnalogs:            10,
		RiskUncertaintyWeight: 0.5,
	}

	load := func(_ context.Context, _ int) (pool.Backend, error) {
		return index.NewBackend(handles), nil
	}
	pl, err := pool.New(context.Background(), cfg.PoolSize, load, pool.NewClimatology(), logger, metrics)
	if err != nil {
		p.errorf("build pool: %v", err)
		return p
	}
	defer pl.Shutdown()

	orchestrator := search.New(pl, search.RetryPolicy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Multiplier:  cfg.RetryMultiplier,
	}, cfg.SearchTimeout, logger, metrics)

	mapper := domain.NewVariableMapper()
	aggregator := ensemble.New(ensemble.Config{
		PercentileMultiplier: cfg.PercentileMultiplier,
		DegradedCeiling:      cfg.ConfidenceCeiling,
		MinAnalogs:           cfg.MinAnalogs,
	}, mapper)

	svc := forecast.New(cfg, pl, orchestrator, aggregator, mapper, provider, nil, logger, metrics)

	levels := map[string]bool{
		domain.RiskMinimal:  true,
		domain.RiskLow:      true,
		domain.RiskModerate: true,
		domain.RiskHigh:     true,
		domain.RiskExtreme:  true,
	}

	for _, h := range horizons {
		res, err := svc.ForecastWithUncertainty(context.Background(), string(h), mapper.Externals())
		if err != nil {
			p.errorf("%s: forecast failed: %v", h, err)
			continue
		}

		if res.Degraded {
			p.errorf("%s: forecast degraded over healthy artifacts", h)
		}
		if res.CorrelationID == "" {
			p.errorf("%s: missing correlation id", h)
		}
		if res.IssuedAt.IsZero() {
			p.errorf("%s: issued_at is zero", h)
		}
		if !levels[res.Risk.Level] {
			p.errorf("%s: risk level %q not in enum", h, res.Risk.Level)
		}

		for name, v := range res.Variables {
			if !v.Available {
				p.errorf("%s: %s unavailable over healthy artifacts", h, name)
				continue
			}
			if v.P05 > v.Value || v.Value > v.P95 {
				p.errorf("%s: %s band violated: p05=%.3f value=%.3f p95=%.3f", h, name, v.P05, v.Value, v.P95)
			}
			if v.Confidence < 0 || v.Confidence > 1 {
				p.errorf("%s: %s confidence %.3f outside [0,1]", h, name, v.Confidence)
			}
		}

		if res.AnalogSummary.AnalogCount == 0 {
			p.errorf("%s: empty analog summary", h)
		}
	}
	return p
}

// ── Helpers ──

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

func parseHorizons(raw string) ([]domain.Horizon, error) {
	var horizons []domain.Horizon
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		h, err := domain.ParseHorizon(part)
		if err != nil {
			return nil, err
		}
		horizons = append(horizons, h)
	}
	if len(horizons) == 0 {
		return nil, fmt.Errorf("no horizons given")
	}
	return horizons, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
