package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

const defaultIntervalSeconds = 60

// Processor is implemented by Runner.
type Processor interface {
	Process(ctx context.Context, job domain.CheckJob) (RunOutcome, error)
}

// Scheduler periodically builds jobs for every due monitor.
type Scheduler struct {
	Logger      *zap.Logger
	Monitors    repo.MonitorStore
	States      repo.StateStore
	Runner      Processor
	Interval    time.Duration
	Concurrency int
	Now         func() time.Time
}

func NewScheduler(
	logger *zap.Logger,
	monitors repo.MonitorStore,
	states repo.StateStore,
	runner Processor,
	interval time.Duration,
	concurrency int,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	return &Scheduler{
		Logger:      logger,
		Monitors:    monitors,
		States:      states,
		Runner:      runner,
		Interval:    interval,
		Concurrency: concurrency,
		Now:         time.Now,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval == 0 {
		// disabled
		s.Logger.Info("scheduler_disabled")
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// immediate pass
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler_stopped")
			return
		case <-t.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce processes every due monitor and waits for all of them.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	ms, err := s.Monitors.ListMonitors(ctx)
	if err != nil {
		s.Logger.Warn("scheduler_list_error", zap.Error(err))
		return 0
	}

	now := s.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)

	n := 0
	for _, m := range ms {
		if !s.due(ctx, m, now) {
			continue
		}
		n++
		job := m.Job(uuid.NewString())
		g.Go(func() error {
			out, err := s.Runner.Process(gctx, job)
			if err != nil {
				s.Logger.Warn("scheduler_process_error",
					zap.String("team_id", string(job.TeamID)),
					zap.String("monitor_id", string(job.MonitorID)),
					zap.Error(err),
				)
				return nil
			}
			s.Logger.Debug("scheduler_checked",
				zap.String("team_id", string(job.TeamID)),
				zap.String("monitor_id", string(job.MonitorID)),
				zap.String("job_id", job.JobID),
				zap.String("status", string(out.Result.Status)),
				zap.Bool("degraded", out.Degraded),
			)
			return nil
		})
	}
	_ = g.Wait()
	return n
}

func (s *Scheduler) due(ctx context.Context, m *domain.Monitor, now time.Time) bool {
	if !m.Enabled || m.Type.Pushed() {
		return false
	}
	st, err := s.States.GetState(ctx, m.Key())
	if err != nil {
		s.Logger.Warn("scheduler_state_error", zap.String("monitor_id", string(m.ID)), zap.Error(err))
		return true
	}
	if st == nil || st.LastCheckedAt.IsZero() {
		return true
	}
	iv := m.IntervalSeconds
	if iv <= 0 {
		iv = defaultIntervalSeconds
	}
	return now.Sub(st.LastCheckedAt) >= time.Duration(iv)*time.Second
}
