package incident

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	// Timeout bounds each commit.
	Timeout time.Duration
	// Failures in a row that open the breaker.
	Failures uint32
	// Cooldown before a half-open probe.
	Cooldown time.Duration
}

// Breaker wraps a Boundary so that a slow or failing store degrades runs
// instead of stalling them. Every error it returns wraps ErrUnavailable.
type Breaker struct {
	inner   Boundary
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewBreaker(inner Boundary, cfg BreakerConfig, log *zap.Logger) *Breaker {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "consistency-boundary",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("boundary_breaker_state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{inner: inner, cb: cb, timeout: cfg.Timeout}
}

func (b *Breaker) Commit(ctx context.Context, c Commit) (Outcome, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Commit(ctx, c)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v.(Outcome), nil
}

// State is the breaker state name, for health reporting.
func (b *Breaker) State() string { return b.cb.State().String() }
