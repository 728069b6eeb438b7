package probe

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// fake spec you can control
type fakeSpec struct {
	results []domain.Result
	i       int
}

func (f *fakeSpec) probe(ctx context.Context, e *Executor, job domain.CheckJob) domain.Result {
	if f.i >= len(f.results) {
		return domain.Down("no more", 0)
	}
	r := f.results[f.i]
	f.i++
	return r
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	f := &fakeSpec{results: []domain.Result{
		domain.Down("first fail", 1),
		domain.Up(2),
	}}
	e := NewExecutor(zap.NewNop(), nil, nil)
	e.RetryAttempts = 3
	e.RetryBackoff = 10 * time.Millisecond

	out := e.withRetry(context.Background(), f, domain.CheckJob{})
	if out.Status != domain.StatusUp {
		t.Fatalf("expected up after retry, got %+v", out)
	}
	if f.i != 2 {
		t.Fatalf("expected 2 attempts, got %d", f.i)
	}
}

func TestRetry_AllFailAnnotates(t *testing.T) {
	f := &fakeSpec{results: []domain.Result{
		domain.Down("fail1", 0),
		domain.Down("fail2", 0),
	}}
	e := NewExecutor(zap.NewNop(), nil, nil)
	e.RetryAttempts = 2

	out := e.withRetry(context.Background(), f, domain.CheckJob{})
	if out.Status != domain.StatusDown {
		t.Fatalf("expected down, got %+v", out)
	}
	if out.Reason != "fail2 (after 2 attempts)" {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
}

func TestRetry_SingleAttemptKeepsReason(t *testing.T) {
	f := &fakeSpec{results: []domain.Result{domain.Down("refused", 0)}}
	e := NewExecutor(zap.NewNop(), nil, nil)

	out := e.withRetry(context.Background(), f, domain.CheckJob{})
	if out.Reason != "refused" {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	f := &fakeSpec{results: []domain.Result{
		domain.Down("fail1", 0),
		domain.Up(0),
	}}
	e := NewExecutor(zap.NewNop(), nil, nil)
	e.RetryAttempts = 5
	e.RetryBackoff = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := e.withRetry(ctx, f, domain.CheckJob{})
	if out.Status != domain.StatusDown || !strings.HasPrefix(out.Reason, "fail1") {
		t.Fatalf("expected first failure to stand, got %+v", out)
	}
	if f.i != 1 {
		t.Fatalf("expected 1 attempt, got %d", f.i)
	}
}
