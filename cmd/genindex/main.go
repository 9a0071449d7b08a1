// Command genindex generates deterministic per-horizon index artifacts and
// current-state vectors for local runs and the test suites. It writes the
// exact schema the service loader reads, then loads every file back and runs
// a sample query so a broken generator fails here instead of at service
// startup.
//
// Usage:
//
//	go run ./cmd/genindex \
//	  -indices-out data/indices \
//	  -state-out data/embeddings \
//	  -records 2000 -dimension 16 -seed 42
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/index"
)

// archiveEnd is the newest record timestamp; records run 6-hourly backwards
// from it.
var archiveEnd = time.Date(2024, time.December, 31, 18, 0, 0, 0, time.UTC)

// spreadFactor widens outcome scatter with lead time.
var spreadFactor = map[domain.Horizon]float64{
	domain.Horizon6h:  1.0,
	domain.Horizon12h: 1.1,
	domain.Horizon24h: 1.25,
	domain.Horizon48h: 1.5,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	indicesOut := flag.String("indices-out", "data/indices", "output directory for index artifacts")
	stateOut := flag.String("state-out", "data/embeddings", "output directory for current-state artifacts")
	records := flag.Int("records", 2000, "records per horizon")
	dimension := flag.Int("dimension", 16, "embedding dimension")
	seed := flag.Int64("seed", 42, "rng seed")
	metric := flag.String("metric", "l2", "distance metric (l2 or cosine)")
	horizonsFlag := flag.String("horizons", "6h,12h,24h,48h", "comma-separated horizons")
	flag.Parse()

	m := index.Metric(*metric)
	switch m {
	case index.MetricL2, index.MetricCosine:
	default:
		return fmt.Errorf("unknown metric %q", *metric)
	}
	if *records < 1 {
		return fmt.Errorf("records must be positive")
	}
	if *dimension < 1 {
		return fmt.Errorf("dimension must be positive")
	}

	horizons, err := parseHorizons(*horizonsFlag)
	if err != nil {
		return err
	}

	// Fixed clock so GeneratedAt stamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	schema := domain.NewVariableMapper().Internals()

	var last index.Artifact
	for _, h := range horizons {
		artifact, state := generate(rng, h, *records, *dimension, m, schema)

		indexPath := filepath.Join(*indicesOut, index.FileName(h))
		if err := writeJSON(indexPath, artifact); err != nil {
			return fmt.Errorf("writing %s: %w", indexPath, err)
		}

		statePath := filepath.Join(*stateOut, index.StateFileName(h))
		if err := writeJSON(statePath, state); err != nil {
			return fmt.Errorf("writing %s: %w", statePath, err)
		}

		if err := verify(indexPath, h, state.Vector); err != nil {
			return fmt.Errorf("self-check %s: %w", h, err)
		}
		log.Printf("%s: %d records, dim %d -> %s", h, *records, *dimension, indexPath)
		last = artifact
	}

	printStats(last, schema)
	return nil
}

// generate builds one horizon's index plus a current state near one of its
// records, so sample queries return close analogs.
func generate(rng *rand.Rand, h domain.Horizon, records, dimension int, metric index.Metric, schema []domain.InternalVariable) (index.Artifact, index.StateArtifact) {
	artifact := index.Artifact{
		Version:    index.FileVersion,
		Horizon:    string(h),
		Dimension:  dimension,
		Metric:     string(metric),
		RecordIDs:  make([]string, records),
		Timestamps: make([]time.Time, records),
		Vectors:    make([][]float64, records),
		Outcomes:   make([][]float64, records),
	}

	spread := spreadFactor[h]
	for i := 0; i < records; i++ {
		ts := archiveEnd.Add(-time.Duration(i) * 6 * time.Hour)
		vec := make([]float64, dimension)
		for j := range vec {
			vec[j] = rng.NormFloat64()
		}

		// The leading embedding component doubles as the latent regime
		// driving the outcome, so near neighbors see similar weather.
		regime := vec[0]
		outcome := make([]float64, len(schema))
		for c, iv := range schema {
			draw := iv.ClimMean + iv.ClimStd*spread*(0.7*regime+0.7*rng.NormFloat64())
			if iv.NonNegative && draw < 0 {
				draw = 0
			}
			outcome[c] = draw
		}

		artifact.RecordIDs[i] = ts.Format("2006-01-02T15") + "-" + string(h)
		artifact.Timestamps[i] = ts
		artifact.Vectors[i] = vec
		artifact.Outcomes[i] = outcome
	}

	anchor := artifact.Vectors[rng.Intn(records)]
	vector := make([]float64, dimension)
	for j := range vector {
		vector[j] = anchor[j] + 0.05*rng.NormFloat64()
	}

	state := index.StateArtifact{
		Horizon:     string(h),
		Dimension:   dimension,
		GeneratedAt: domain.Now(),
		Vector:      vector,
	}
	return artifact, state
}

// verify loads the written artifact through the service loader and runs a
// sample query against it.
func verify(path string, h domain.Horizon, query []float64) error {
	handle, err := index.LoadFile(path, h)
	if err != nil {
		return err
	}
	hits, err := handle.Search(query, 5)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return fmt.Errorf("sample query returned no hits")
	}
	log.Printf("%s: hash %.12s, nearest %s at distance %.4f", h, handle.ContentHash(), hits[0].RecordID, hits[0].Distance)
	return nil
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

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(artifact index.Artifact, schema []domain.InternalVariable) {
	if len(artifact.Outcomes) == 0 {
		return
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Horizon %s: %d records\n", artifact.Horizon, len(artifact.Outcomes))
	for c, iv := range schema {
		lo, hi := artifact.Outcomes[0][c], artifact.Outcomes[0][c]
		var sum float64
		for _, o := range artifact.Outcomes {
			if o[c] < lo {
				lo = o[c]
			}
			if o[c] > hi {
				hi = o[c]
			}
			sum += o[c]
		}
		fmt.Printf("  %-18s min=%.2f mean=%.2f max=%.2f %s\n",
			iv.Name, lo, sum/float64(len(artifact.Outcomes)), hi, iv.Unit)
	}
}
