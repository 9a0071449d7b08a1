// Package pool bounds concurrent use of loaded index backends with a fixed
// set of leasable slots.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/observability"
)

// Backend answers analog searches. The index package provides the healthy
// implementation; Climatology is the degraded one.
type Backend interface {
	Query(ctx context.Context, horizon domain.Horizon, vector []float64, k int) ([]domain.AnalogHit, error)
	Degraded() bool
}

// LoadFunc loads one slot's backend at pool construction.
type LoadFunc func(ctx context.Context, slot int) (Backend, error)

var (
	// ErrPoolExhausted is returned when no slot frees up before the caller's
	// deadline.
	ErrPoolExhausted = errors.New("backend pool exhausted")

	// ErrPoolClosed is returned by Acquire after Shutdown.
	ErrPoolClosed = errors.New("backend pool closed")
)

// fallbackSlotID marks the sentinel slot handed out when no healthy slots
// exist. It never passes through the free channel.
const fallbackSlotID = -1

// Slot is one pooled backend.
type Slot struct {
	id      int
	backend Backend
}

// Lease is exclusive ownership of a slot until released.
type Lease struct {
	slot *Slot
	pool *Pool
	once sync.Once
}

// Backend returns the leased backend.
func (l *Lease) Backend() Backend { return l.slot.backend }

// Degraded reports whether this lease serves the climatology fallback.
func (l *Lease) Degraded() bool { return l.slot.backend.Degraded() }

// Release returns the slot to the pool. Safe to call more than once and
// after Shutdown, so every exit path can defer it.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.release(l.slot)
	})
}

// Pool hands out exclusive backend leases, at most one per slot. When every
// slot failed to load, Acquire returns the climatology fallback immediately:
// a dead pool should answer from climatology, not block every caller until
// their deadlines expire.
type Pool struct {
	free     chan *Slot
	done     chan struct{}
	fallback Backend

	// healthy and broken are fixed after New; slots do not break at runtime.
	healthy int
	broken  int

	logger  *slog.Logger
	metrics *observability.Metrics
	closed  atomic.Bool
}

// New loads size backends concurrently, one per slot. A slot whose load
// fails is broken permanently and never enters rotation; the pool still
// constructs as long as ctx survives, degrading to the fallback when zero
// slots are healthy.
func New(ctx context.Context, size int, load LoadFunc, fallback Backend, logger *slog.Logger, metrics *observability.Metrics) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	if fallback == nil {
		return nil, errors.New("pool requires a fallback backend")
	}

	p := &Pool{
		free:     make(chan *Slot, size),
		done:     make(chan struct{}),
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < size; i++ {
		g.Go(func() error {
			backend, err := load(gctx, i)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Error("backend slot failed to load", "slot", i, "error", err)
				mu.Lock()
				p.broken++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			p.healthy++
			mu.Unlock()
			p.free <- &Slot{id: i, backend: backend}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.PoolSlotsHealthy.Set(float64(p.healthy))
	metrics.PoolSlotsBroken.Set(float64(p.broken))
	if p.healthy == 0 {
		metrics.ServiceDegraded.Set(1)
		logger.Warn("no backend slots loaded, serving climatology fallback", "broken", p.broken)
	} else if p.broken > 0 {
		logger.Warn("pool started with broken slots", "healthy", p.healthy, "broken", p.broken)
	}

	return p, nil
}

// Acquire leases a free slot, waiting until one frees up or ctx expires.
// Expiry surfaces as ErrPoolExhausted. With zero healthy slots the fallback
// lease is returned without waiting.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if p.healthy == 0 {
		return &Lease{slot: &Slot{id: fallbackSlotID, backend: p.fallback}, pool: p}, nil
	}

	select {
	case slot := <-p.free:
		p.metrics.PoolLeasesActive.Inc()
		return &Lease{slot: slot, pool: p}, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		p.metrics.PoolAcquireTimeouts.Inc()
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, ctx.Err())
	}
}

func (p *Pool) release(slot *Slot) {
	if slot.id == fallbackSlotID {
		return
	}
	p.metrics.PoolLeasesActive.Dec()
	if p.closed.Load() {
		return
	}
	p.free <- slot
}

// Fallback exposes the climatology backend so the orchestrator can degrade
// after an acquire timeout or retry exhaustion.
func (p *Pool) Fallback() Backend { return p.fallback }

// Degraded reports whether every slot is broken.
func (p *Pool) Degraded() bool { return p.healthy == 0 }

// HealthySlots returns the number of slots that loaded successfully.
func (p *Pool) HealthySlots() int { return p.healthy }

// BrokenSlots returns the number of slots that failed to load.
func (p *Pool) BrokenSlots() int { return p.broken }

// Size returns the configured slot count.
func (p *Pool) Size() int { return p.healthy + p.broken }

// Shutdown stops further acquires and drops the free slots. Held leases stay
// usable; their releases after shutdown are no-ops.
func (p *Pool) Shutdown() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.done)
	for {
		select {
		case <-p.free:
		default:
			return
		}
	}
}
