package probe

import (
	"context"
	"fmt"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// ComputeHeartbeatStatus is down when no check-in was ever seen or the last
// one is older than interval plus grace.
func ComputeHeartbeatStatus(nowSec, lastSeenSec, intervalSec, graceSec int64) domain.Status {
	if lastSeenSec <= 0 || nowSec-lastSeenSec > intervalSec+graceSec {
		return domain.StatusDown
	}
	return domain.StatusUp
}

func (s heartbeatSpec) probe(ctx context.Context, e *Executor, job domain.CheckJob) domain.Result {
	if e.Checkins == nil {
		return domain.Down("heartbeat check-ins unavailable", 0)
	}
	last, err := e.Checkins.LastCheckin(ctx, job.Key())
	if err != nil {
		return domain.Down("heartbeat lookup failed: "+reason(err), 0)
	}
	var lastSec int64
	if !last.IsZero() {
		lastSec = last.Unix()
	}
	now := e.now().Unix()
	if ComputeHeartbeatStatus(now, lastSec, s.IntervalSec, s.GraceSec) == domain.StatusUp {
		return domain.Up(0)
	}
	if lastSec <= 0 {
		return domain.Down("No heartbeat received", 0)
	}
	return domain.Down(fmt.Sprintf("No heartbeat for %ds", now-lastSec), 0)
}
