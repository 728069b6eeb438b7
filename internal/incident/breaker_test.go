package incident

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

type fakeBoundary struct {
	calls int
	err   error
	delay time.Duration
}

func (f *fakeBoundary) Commit(ctx context.Context, c Commit) (Outcome, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Outcome{}, f.err
	}
	return Outcome{IncidentID: "inc-1", Opened: true}, nil
}

func TestBreaker_PassesThrough(t *testing.T) {
	inner := &fakeBoundary{}
	b := NewBreaker(inner, BreakerConfig{}, zap.NewNop())
	out, err := b.Commit(context.Background(), Commit{Monitor: mon(1), Result: domain.Down("x", 0)})
	if err != nil {
		t.Fatal(err)
	}
	if out.IncidentID != "inc-1" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	inner := &fakeBoundary{err: errors.New("db down")}
	b := NewBreaker(inner, BreakerConfig{Failures: 2, Cooldown: time.Hour}, zap.NewNop())
	c := Commit{Monitor: mon(1), Result: domain.Down("x", 0)}

	for i := 0; i < 2; i++ {
		if _, err := b.Commit(context.Background(), c); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("want ErrUnavailable, got %v", err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("want open breaker, got %s", b.State())
	}
	if _, err := b.Commit(context.Background(), c); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open breaker should short circuit, inner called %d times", inner.calls)
	}
}

func TestBreaker_Timeout(t *testing.T) {
	inner := &fakeBoundary{delay: time.Second}
	b := NewBreaker(inner, BreakerConfig{Timeout: 20 * time.Millisecond}, zap.NewNop())
	_, err := b.Commit(context.Background(), Commit{Monitor: mon(1), Result: domain.Down("x", 0)})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}
