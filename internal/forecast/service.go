// Package forecast assembles analog search, ensemble aggregation, schema
// mapping and risk assessment into the service's forecast operation.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/analog-forecast/internal/config"
	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/ensemble"
	"github.com/couchcryptid/analog-forecast/internal/observability"
	"github.com/couchcryptid/analog-forecast/internal/pool"
)

// Searcher runs one analog search. The search.Orchestrator satisfies it.
type Searcher interface {
	Search(ctx context.Context, req domain.AnalogSearchRequest) (domain.AnalogSearchResult, error)
}

// Publisher emits completed forecasts to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, result domain.ForecastResult) error
}

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Degraded      bool    `json:"degraded"`
	RequestsTotal uint64  `json:"requests_total"`
	ErrorsTotal   uint64  `json:"errors_total"`
	AvgSearchMS   float64 `json:"avg_search_ms"`
}

// Service is the forecast facade. Construct it with New; the zero value is
// not usable.
type Service struct {
	cfg        *config.Config
	pool       *pool.Pool
	searcher   Searcher
	aggregator *ensemble.Aggregator
	mapper     *domain.VariableMapper
	provider   domain.StateProvider
	publisher  Publisher
	rules      []domain.RiskRule
	logger     *slog.Logger
	metrics    *observability.Metrics

	requests     atomic.Uint64
	errors       atomic.Uint64
	searches     atomic.Uint64
	searchMicros atomic.Int64
}

// New wires the facade. publisher may be nil when result publishing is
// disabled.
func New(
	cfg *config.Config,
	p *pool.Pool,
	searcher Searcher,
	aggregator *ensemble.Aggregator,
	mapper *domain.VariableMapper,
	provider domain.StateProvider,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		cfg:        cfg,
		pool:       p,
		searcher:   searcher,
		aggregator: aggregator,
		mapper:     mapper,
		provider:   provider,
		publisher:  publisher,
		rules:      domain.DefaultRiskTable(),
		logger:     logger,
		metrics:    metrics,
	}
}

// ForecastWithUncertainty produces the forecast for one horizon and a set of
// requested variable names. It fails only on invalid requests (unknown
// horizon, or no requested variable in the schema); every backend condition
// instead yields a usable result with Degraded set and confidence capped.
func (s *Service) ForecastWithUncertainty(ctx context.Context, horizon string, variables []string) (domain.ForecastResult, error) {
	s.requests.Add(1)

	h, err := domain.ParseHorizon(horizon)
	if err != nil {
		s.rejected()
		return domain.ForecastResult{}, err
	}

	known, unknown := s.resolveVariables(variables)
	if len(known) == 0 {
		s.rejected()
		if len(variables) == 0 {
			return domain.ForecastResult{}, fmt.Errorf("%w: at least one variable is required", domain.ErrInvalidRequest)
		}
		return domain.ForecastResult{}, fmt.Errorf("%w: no requested variable is in the schema (supported: %s)",
			domain.ErrInvalidRequest, strings.Join(s.mapper.Externals(), ", "))
	}

	correlationID := uuid.NewString()

	res := s.runSearch(ctx, h, correlationID)
	stats := s.aggregator.Aggregate(res.Hits)

	results := make(map[string]domain.ForecastVariableResult, len(known)+len(unknown))
	for _, m := range known {
		results[m.External] = s.variableResult(m, stats, res.Degraded)
	}
	for _, name := range unknown {
		results[name] = domain.ForecastVariableResult{}
	}

	summary := buildAnalogSummary(res.Hits, res.Degraded)

	result := domain.ForecastResult{
		Horizon:               h,
		IssuedAt:              domain.Now().UTC(),
		CorrelationID:         correlationID,
		Variables:             results,
		Risk:                  domain.AssessRisk(s.rules, stats, s.cfg.PercentileMultiplier, s.cfg.RiskUncertaintyWeight),
		ConfidenceExplanation: s.explainConfidence(summary, res.Degraded),
		AnalogSummary:         summary,
		Degraded:              res.Degraded,
	}

	outcome := "ok"
	if res.Degraded {
		outcome = "degraded"
	}
	s.metrics.ForecastRequests.WithLabelValues(outcome).Inc()

	s.publish(ctx, result)

	s.logger.Debug("forecast issued",
		"correlation_id", correlationID,
		"horizon", h,
		"degraded", res.Degraded,
		"analogs", summary.AnalogCount,
		"risk_level", result.Risk.Level)

	return result, nil
}

// Health reports the service counters for the health endpoint.
func (s *Service) Health() HealthStatus {
	var avg float64
	if n := s.searches.Load(); n > 0 {
		avg = float64(s.searchMicros.Load()) / 1000.0 / float64(n)
	}
	return HealthStatus{
		Degraded:      s.pool.Degraded(),
		RequestsTotal: s.requests.Load(),
		ErrorsTotal:   s.errors.Load(),
		AvgSearchMS:   avg,
	}
}

// CheckReadiness reports whether the service can accept traffic. A degraded
// service still serves from climatology, so degradation shows up in the
// health payload and metrics, not here.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return ctx.Err()
}

// runSearch obtains the query state and runs the analog search, degrading to
// the pool's climatology fallback when the state is unavailable or the search
// rejects it. Facade-built requests only fail validation when the state
// artifact on disk is malformed, which is a backend condition, not a caller
// error.
func (s *Service) runSearch(ctx context.Context, h domain.Horizon, correlationID string) domain.AnalogSearchResult {
	vector, err := s.provider.QueryVector(ctx, h)
	if err != nil {
		s.logger.Warn("query state unavailable, serving climatology",
			"correlation_id", correlationID, "horizon", h, "error", err)
		return s.climatology(ctx, h)
	}

	res, err := s.searcher.Search(ctx, domain.AnalogSearchRequest{
		Horizon:       h,
		K:             s.cfg.DefaultK,
		QueryVector:   vector,
		CorrelationID: correlationID,
	})
	if err != nil {
		s.logger.Warn("search rejected query state, serving climatology",
			"correlation_id", correlationID, "horizon", h, "error", err)
		return s.climatology(ctx, h)
	}

	s.searches.Add(1)
	s.searchMicros.Add(int64(res.BackendLatencyMS * 1000))
	return res
}

func (s *Service) climatology(ctx context.Context, h domain.Horizon) domain.AnalogSearchResult {
	s.metrics.SearchesDegraded.Inc()
	hits, err := s.pool.Fallback().Query(ctx, h, nil, s.cfg.DefaultK)
	if err != nil {
		hits = nil
	}
	return domain.AnalogSearchResult{Hits: hits, Degraded: true}
}

// variableResult maps one schema variable's ensemble statistics to external
// units. Derived transforms can reverse ordering, so the band is re-sorted
// after conversion.
func (s *Service) variableResult(m domain.VariableMapping, stats map[string]domain.EnsembleStatistics, degraded bool) domain.ForecastVariableResult {
	st, ok := stats[m.Internal.Name]
	if !ok || st.AnalogCount == 0 {
		return domain.ForecastVariableResult{Unit: m.Unit}
	}

	band := s.aggregator.Band(st, m.Internal, degraded)
	lo := m.FromCanonical(band.P05)
	hi := m.FromCanonical(band.P95)
	if lo > hi {
		lo, hi = hi, lo
	}

	return domain.ForecastVariableResult{
		Value:      m.FromCanonical(band.Value),
		P05:        lo,
		P95:        hi,
		Confidence: band.Confidence,
		Unit:       m.Unit,
		Available:  true,
	}
}

func (s *Service) resolveVariables(names []string) ([]domain.VariableMapping, []string) {
	known := make([]domain.VariableMapping, 0, len(names))
	var unknown []string
	seen := make(map[string]bool, len(names))

	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if m, ok := s.mapper.ToInternal(name); ok {
			if seen[m.External] {
				continue
			}
			seen[m.External] = true
			known = append(known, m)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		unknown = append(unknown, name)
	}

	return known, unknown
}

func (s *Service) explainConfidence(summary domain.AnalogSummary, degraded bool) string {
	if degraded {
		return fmt.Sprintf("statistics derived from synthetic climatology draws; confidence capped at %.2f", s.cfg.ConfidenceCeiling)
	}
	return fmt.Sprintf("based on %d historical analogs (mean distance %.3f); confidence reflects ensemble size and spread against climatology",
		summary.AnalogCount, summary.MeanDistance)
}

func (s *Service) publish(ctx context.Context, result domain.ForecastResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, result); err != nil {
		s.logger.Error("forecast publish failed",
			"correlation_id", result.CorrelationID, "error", err)
		s.metrics.PublishRequests.WithLabelValues("error").Inc()
		return
	}
	s.metrics.PublishRequests.WithLabelValues("ok").Inc()
}

func (s *Service) rejected() {
	s.errors.Add(1)
	s.metrics.ForecastRequests.WithLabelValues("invalid").Inc()
}

func buildAnalogSummary(hits []domain.AnalogHit, synthetic bool) domain.AnalogSummary {
	summary := domain.AnalogSummary{AnalogCount: len(hits), Synthetic: synthetic}
	if len(hits) == 0 {
		return summary
	}

	minDist := hits[0].Distance
	var total float64
	var oldest, newest time.Time
	for _, hit := range hits {
		total += hit.Distance
		if hit.Distance < minDist {
			minDist = hit.Distance
		}
		if hit.Timestamp.IsZero() {
			continue
		}
		if oldest.IsZero() || hit.Timestamp.Before(oldest) {
			oldest = hit.Timestamp
		}
		if newest.IsZero() || hit.Timestamp.After(newest) {
			newest = hit.Timestamp
		}
	}

	summary.MeanDistance = total / float64(len(hits))
	summary.MinDistance = minDist
	summary.OldestAnalog = oldest
	summary.NewestAnalog = newest
	return summary
}
