package probe

import (
	"context"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

func (s pushSpec) probe(_ context.Context, _ *Executor, _ domain.CheckJob) domain.Result {
	if s.Reported == nil {
		return domain.Down("missing reported status", 0)
	}
	st := s.Reported.Status()
	if st == domain.StatusUp {
		return domain.Up(0)
	}
	r := s.Reason
	if r == "" {
		r = "Reported " + string(*s.Reported)
	}
	// degraded stays distinct for display; it counts as down downstream
	return domain.Result{Status: st, Reason: r}
}
