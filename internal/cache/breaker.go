package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pitabwire/sdui/model"
)

// BreakerState is the position of a storage circuit breaker.
type BreakerState int

const (
	// BreakerClosed passes every call through and counts failures.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails calls without touching the backend.
	BreakerOpen
	// BreakerHalfOpen lets probe calls through to decide whether to close.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerSettings tunes a Guarded storage. Zero values fall back to 5
// failures, 2 successes and a 30s open period.
type BreakerSettings struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// Guarded wraps a remote storage with a circuit breaker. After
// FailureThreshold consecutive backend errors every call fails fast with
// SERVICE_UNAVAILABLE until OpenTimeout passes; then probes decide whether
// the backend is back. NOT_FOUND results count as successes.
type Guarded struct {
	next MicroappStorage
	now  func() time.Time

	mu               sync.Mutex
	state            BreakerState
	failures         int
	successes        int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewGuarded wraps next with a circuit breaker.
func NewGuarded(next MicroappStorage, s BreakerSettings) *Guarded {
	g := &Guarded{
		next:             next,
		now:              time.Now,
		failureThreshold: s.FailureThreshold,
		successThreshold: s.SuccessThreshold,
		openTimeout:      s.OpenTimeout,
	}
	if g.failureThreshold < 1 {
		g.failureThreshold = 5
	}
	if g.successThreshold < 1 {
		g.successThreshold = 2
	}
	if g.openTimeout <= 0 {
		g.openTimeout = 30 * time.Second
	}
	return g
}

// State returns the current breaker state.
func (g *Guarded) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	return g.state
}

// advance moves an expired open breaker to half-open. Lock must be held.
func (g *Guarded) advance() {
	if g.state == BreakerOpen && g.now().Sub(g.openedAt) >= g.openTimeout {
		g.state = BreakerHalfOpen
		g.successes = 0
	}
}

func (g *Guarded) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.advance()
	if g.state == BreakerOpen {
		return model.NewUnavailableError("microapp storage is unavailable")
	}
	return nil
}

func (g *Guarded) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err == nil || model.HasCode(err, model.ErrNotFound) {
		switch g.state {
		case BreakerClosed:
			g.failures = 0
		case BreakerHalfOpen:
			g.successes++
			if g.successes >= g.successThreshold {
				g.state = BreakerClosed
				g.failures = 0
				g.successes = 0
			}
		}
		return
	}

	switch g.state {
	case BreakerClosed:
		g.failures++
		if g.failures >= g.failureThreshold {
			g.state = BreakerOpen
			g.openedAt = g.now()
		}
	case BreakerHalfOpen:
		g.state = BreakerOpen
		g.openedAt = g.now()
		g.successes = 0
	}
}

// SaveMapped stores data unless the breaker is open.
func (g *Guarded) SaveMapped(ctx context.Context, data *model.CachedMicroappData) error {
	if err := g.allow(); err != nil {
		return err
	}
	err := g.next.SaveMapped(ctx, data)
	if model.HasCode(err, model.ErrBadRequest) {
		return err
	}
	g.record(err)
	return err
}

// LoadMapped loads code unless the breaker is open.
func (g *Guarded) LoadMapped(ctx context.Context, code string) (*model.CachedMicroappData, error) {
	if err := g.allow(); err != nil {
		return nil, err
	}
	data, err := g.next.LoadMapped(ctx, code)
	g.record(err)
	return data, err
}

// GetAllCodes lists codes unless the breaker is open.
func (g *Guarded) GetAllCodes(ctx context.Context) ([]string, error) {
	if err := g.allow(); err != nil {
		return nil, err
	}
	codes, err := g.next.GetAllCodes(ctx)
	g.record(err)
	return codes, err
}

// Delete removes code unless the breaker is open.
func (g *Guarded) Delete(ctx context.Context, code string) error {
	if err := g.allow(); err != nil {
		return err
	}
	err := g.next.Delete(ctx, code)
	g.record(err)
	return err
}

// Contains checks code unless the breaker is open.
func (g *Guarded) Contains(ctx context.Context, code string) (bool, error) {
	if err := g.allow(); err != nil {
		return false, err
	}
	ok, err := g.next.Contains(ctx, code)
	g.record(err)
	return ok, err
}

// HealthCheck reaches the backend directly so readiness reflects its real
// state even while the breaker is open.
func (g *Guarded) HealthCheck(ctx context.Context) error {
	if hc, ok := g.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
