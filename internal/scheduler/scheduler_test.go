package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
)

type recordingRunner struct {
	mu   sync.Mutex
	jobs []domain.CheckJob
}

func (r *recordingRunner) Process(ctx context.Context, job domain.CheckJob) (RunOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return RunOutcome{JobID: job.JobID}, nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func TestScheduler_RunOnce_SelectsDueMonitors(t *testing.T) {
	st := memory.New()
	now := time.Unix(1_700_000_000, 0).UTC()
	st.AddMonitor(&domain.Monitor{ID: "fresh", Team: "t1", Type: domain.TypeHTTP, Enabled: true, IntervalSeconds: 60})
	st.AddMonitor(&domain.Monitor{ID: "due", Team: "t1", Type: domain.TypeTCP, Enabled: true, IntervalSeconds: 60})
	st.AddMonitor(&domain.Monitor{ID: "recent", Team: "t1", Type: domain.TypeHTTP, Enabled: true, IntervalSeconds: 60})
	st.AddMonitor(&domain.Monitor{ID: "off", Team: "t1", Type: domain.TypeHTTP, Enabled: false})
	st.AddMonitor(&domain.Monitor{ID: "hook", Team: "t1", Type: domain.TypeWebhook, Enabled: true})
	st.AddMonitor(&domain.Monitor{ID: "beat", Team: "t1", Type: domain.TypeHeartbeat, Enabled: true, IntervalSeconds: 300})

	ctx := context.Background()
	_ = st.SaveState(ctx, &domain.MonitorState{MonitorID: "due", Team: "t1", LastCheckedAt: now.Add(-2 * time.Minute)})
	_ = st.SaveState(ctx, &domain.MonitorState{MonitorID: "recent", Team: "t1", LastCheckedAt: now.Add(-10 * time.Second)})

	rr := &recordingRunner{}
	s := NewScheduler(zap.NewNop(), st, st, rr, time.Minute, 2)
	s.Now = func() time.Time { return now }

	if n := s.RunOnce(ctx); n != 3 {
		t.Fatalf("want 3 due monitors, got %d", n)
	}
	seen := map[domain.MonitorID]string{}
	for _, j := range rr.jobs {
		seen[j.MonitorID] = j.JobID
		if j.JobID == "" {
			t.Fatalf("job without id: %+v", j)
		}
	}
	for _, id := range []domain.MonitorID{"fresh", "due", "beat"} {
		if _, ok := seen[id]; !ok {
			t.Fatalf("%s not scheduled: %v", id, seen)
		}
	}
}

func TestScheduler_RunLoop(t *testing.T) {
	st := memory.New()
	st.AddMonitor(&domain.Monitor{ID: "m", Team: "t1", Type: domain.TypeHTTP, Enabled: true})
	rr := &recordingRunner{}
	s := NewScheduler(zap.NewNop(), st, st, rr, 2*time.Millisecond, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// Wait a tiny bit for the immediate pass to execute.
	deadline := time.Now().Add(time.Second)
	for rr.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if rr.count() == 0 {
		t.Fatal("expected at least one processed job")
	}
}

func TestScheduler_DisabledReturns(t *testing.T) {
	s := NewScheduler(zap.NewNop(), memory.New(), memory.New(), &recordingRunner{}, 0, 1)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler should return immediately")
	}
}
