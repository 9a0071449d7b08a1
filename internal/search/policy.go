package search

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy describes how backend query failures are retried: up to
// MaxAttempts retries after the initial attempt, with geometric delays from
// BaseDelay growing by Multiplier and capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// Backoff builds the retry schedule for one search. The returned backoff is
// stateful, so call this per search, not once.
func (p RetryPolicy) Backoff() retry.Backoff {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}

	next := p.BaseDelay
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		d := next
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
		next = time.Duration(float64(next) * multiplier)
		return d, false
	})

	return retry.WithMaxRetries(uint64(p.MaxAttempts), b)
}
