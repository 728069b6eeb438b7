package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// withRetry re-runs a failed outbound probe while the run deadline allows.
func (e *Executor) withRetry(ctx context.Context, spec Spec, job domain.CheckJob) domain.Result {
	attempts := e.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var last domain.Result
	for i := 0; i < attempts; i++ {
		last = spec.probe(ctx, e, job)
		if last.Status == domain.StatusUp || ctx.Err() != nil {
			break
		}
		if i == attempts-1 {
			if attempts > 1 {
				// annotate reason so you can see it was a retry series
				last.Reason = fmt.Sprintf("%s (after %d attempts)", last.Reason, attempts)
			}
			break
		}
		if !sleepCtx(ctx, e.RetryBackoff) {
			break
		}
	}
	return last
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
