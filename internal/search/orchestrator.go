// Package search coordinates analog searches against the backend pool. A
// search validates its request, leases a backend, queries with bounded
// retries, and always releases the lease. Failures past the retry budget
// degrade to the pool's climatology fallback rather than surfacing an error;
// only invalid requests fail.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/observability"
	"github.com/couchcryptid/analog-forecast/internal/pool"
)

// Orchestrator runs analog searches end to end: acquire, query, retry,
// release. It is safe for concurrent use.
type Orchestrator struct {
	pool    *pool.Pool
	policy  RetryPolicy
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New builds an Orchestrator. timeout bounds searches whose request carries
// no deadline of its own.
func New(p *pool.Pool, policy RetryPolicy, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{
		pool:    p,
		policy:  policy,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Search executes one analog search. The returned result is always usable:
// when no backend can answer, it carries the climatology ensemble with
// Degraded set. The only error returned is domain.ErrInvalidRequest, and
// invalid requests are rejected before any backend is touched.
func (o *Orchestrator) Search(ctx context.Context, req domain.AnalogSearchRequest) (domain.AnalogSearchResult, error) {
	if err := validate(req); err != nil {
		return domain.AnalogSearchResult{}, err
	}

	start := time.Now()

	deadline := req.Deadline
	if deadline.IsZero() {
		deadline = start.Add(o.timeout)
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	lease, err := o.pool.Acquire(ctx)
	if err != nil {
		o.logger.Warn("no backend lease, serving climatology",
			"correlation_id", req.CorrelationID,
			"horizon", req.Horizon,
			"error", err)
		return o.fallback(ctx, req, 0, start)
	}
	defer lease.Release()

	backend := lease.Backend()

	var hits []domain.AnalogHit
	attempts := 0
	err = retry.Do(ctx, o.policy.Backoff(), func(ctx context.Context) error {
		attempts++
		var qerr error
		hits, qerr = backend.Query(ctx, req.Horizon, req.QueryVector, req.K)
		if qerr != nil {
			return retry.RetryableError(qerr)
		}
		return nil
	})
	latency := time.Since(start)

	if err != nil {
		o.logger.Warn("backend queries exhausted, serving climatology",
			"correlation_id", req.CorrelationID,
			"horizon", req.Horizon,
			"attempts", attempts,
			"error", err)
		return o.fallback(ctx, req, attempts, start)
	}

	degraded := lease.Degraded()
	if degraded {
		o.metrics.SearchesDegraded.Inc()
	}
	o.metrics.SearchDuration.Observe(latency.Seconds())
	o.metrics.SearchAttempts.Observe(float64(attempts))

	o.logger.Debug("analog search complete",
		"correlation_id", req.CorrelationID,
		"horizon", req.Horizon,
		"hits", len(hits),
		"attempts", attempts,
		"degraded", degraded,
		"latency_ms", latency.Milliseconds())

	return domain.AnalogSearchResult{
		Hits:             hits,
		Degraded:         degraded,
		Attempts:         attempts,
		BackendLatencyMS: latency.Seconds() * 1000,
	}, nil
}

// fallback serves the climatology ensemble after the pool or the backend gave
// up. It runs outside the search deadline so an expired context cannot block
// the degraded answer.
func (o *Orchestrator) fallback(ctx context.Context, req domain.AnalogSearchRequest, attempts int, start time.Time) (domain.AnalogSearchResult, error) {
	o.metrics.SearchesDegraded.Inc()

	hits, err := o.pool.Fallback().Query(context.WithoutCancel(ctx), req.Horizon, req.QueryVector, req.K)
	if err != nil {
		o.logger.Error("climatology fallback failed",
			"correlation_id", req.CorrelationID,
			"horizon", req.Horizon,
			"error", err)
		hits = nil
	}

	latency := time.Since(start)
	o.metrics.SearchDuration.Observe(latency.Seconds())
	if attempts > 0 {
		o.metrics.SearchAttempts.Observe(float64(attempts))
	}

	return domain.AnalogSearchResult{
		Hits:             hits,
		Degraded:         true,
		Attempts:         attempts,
		BackendLatencyMS: latency.Seconds() * 1000,
	}, nil
}

func validate(req domain.AnalogSearchRequest) error {
	if _, err := domain.ParseHorizon(string(req.Horizon)); err != nil {
		return err
	}
	if req.K < 1 {
		return fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidRequest, req.K)
	}
	if len(req.QueryVector) == 0 {
		return fmt.Errorf("%w: empty query vector", domain.ErrInvalidRequest)
	}
	for i, v := range req.QueryVector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: query vector component %d is not finite", domain.ErrInvalidRequest, i)
		}
	}
	return nil
}
