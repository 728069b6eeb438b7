package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/alert"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/incident"
	"github.com/hamed0406/uptimeguard/internal/metrics"
	"github.com/hamed0406/uptimeguard/internal/probe"
	"github.com/hamed0406/uptimeguard/internal/repo"
	"github.com/hamed0406/uptimeguard/internal/suppression"
)

var ErrInvalidJob = errors.New("invalid check job")

type Suppressor interface {
	Resolve(ctx context.Context, team domain.TeamID, id domain.MonitorID, nowSec int64) (suppression.State, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, r alert.Request) (bool, error)
}

// RunOutcome describes what one processed job did.
type RunOutcome struct {
	JobID       string              `json:"job_id"`
	Result      domain.Result       `json:"result"`
	State       domain.MonitorState `json:"state"`
	IncidentID  string              `json:"incident_id,omitempty"`
	Opened      bool                `json:"opened"`
	Resolved    bool                `json:"resolved"`
	Maintenance bool                `json:"maintenance"`
	Silenced    bool                `json:"silenced"`
	Degraded    bool                `json:"degraded"`
	Alerted     bool                `json:"alerted"`
	Skipped     bool                `json:"skipped"`
}

// Runner takes one CheckJob through probe, suppression lookup, the
// consistency boundary and alert dispatch.
type Runner struct {
	Logger   *zap.Logger
	Monitors repo.MonitorStore
	States   repo.StateStore
	Prober   probe.Prober
	Resolver Suppressor
	Boundary incident.Boundary
	Alerts   Dispatcher
	Now      func() time.Time
}

func (r *Runner) Process(ctx context.Context, job domain.CheckJob) (RunOutcome, error) {
	out := RunOutcome{JobID: job.JobID}
	if err := validateJob(job); err != nil {
		return out, err
	}
	log := r.Logger.With(
		zap.String("team_id", string(job.TeamID)),
		zap.String("monitor_id", string(job.MonitorID)),
		zap.String("job_id", job.JobID),
	)

	if job.MonitorType.Pushed() && job.ReportedStatus == nil {
		log.Warn("push_missing_status", zap.String("type", string(job.MonitorType)))
		out.Skipped = true
		return out, nil
	}

	m := r.monitorFor(ctx, job, log)
	now := r.now()

	res := r.Prober.Run(ctx, job)
	out.Result = res

	sup, err := r.Resolver.Resolve(ctx, job.TeamID, job.MonitorID, now.Unix())
	if err != nil {
		log.Warn("runner_suppression_error", zap.Error(err))
		sup = suppression.State{}
	}
	out.Maintenance, out.Silenced = sup.IsMaintenance, sup.IsSilenced

	commit := incident.Commit{Monitor: m, Result: res, IsMaintenance: sup.IsMaintenance, Now: now}
	dec, err := r.Boundary.Commit(ctx, commit)
	if err != nil {
		metrics.BoundaryDegraded.Inc()
		log.Warn("runner_boundary_degraded", zap.Error(err))
		out.Degraded = true
		dec = r.commitLocal(ctx, commit, log)
	}
	out.State = dec.State
	out.IncidentID = dec.IncidentID
	out.Opened, out.Resolved = dec.Opened, dec.Resolved

	var dir domain.Direction
	switch {
	case dec.Opened:
		dir = domain.DirectionDown
		metrics.IncidentTransitions.WithLabelValues("opened").Inc()
	case dec.Resolved:
		dir = domain.DirectionUp
		metrics.IncidentTransitions.WithLabelValues("resolved").Inc()
	default:
		return out, nil
	}

	reason := res.Reason
	if dir == domain.DirectionUp && reason == "" {
		reason = "Recovered"
	}
	sent, err := r.Alerts.Dispatch(ctx, alert.Request{
		Direction:  dir,
		Monitor:    m,
		Reason:     reason,
		IncidentID: dec.IncidentID,
		JobID:      job.JobID,
		Silenced:   sup.IsSilenced,
	})
	if err != nil {
		log.Warn("runner_dispatch_error", zap.String("direction", string(dir)), zap.Error(err))
	}
	out.Alerted = sent
	return out, nil
}

// commitLocal applies the transition against the last saved state without
// the boundary. No incident row is written.
func (r *Runner) commitLocal(ctx context.Context, c incident.Commit, log *zap.Logger) incident.Outcome {
	prev, err := r.States.GetState(ctx, c.Monitor.Key())
	if err != nil {
		log.Warn("runner_state_load_error", zap.Error(err))
		prev = nil
	}
	st, tr := incident.ApplyLocal(prev, c)
	if err := r.States.SaveState(ctx, &st); err != nil {
		log.Warn("runner_state_save_error", zap.Error(err))
	}
	return incident.Outcome{Opened: tr.ShouldOpen, Resolved: tr.ShouldResolve, State: st}
}

// monitorFor prefers the stored definition and falls back to what the job
// carries, so jobs from an external scheduler work for unknown monitors.
func (r *Runner) monitorFor(ctx context.Context, job domain.CheckJob, log *zap.Logger) *domain.Monitor {
	if r.Monitors != nil {
		m, err := r.Monitors.GetMonitor(ctx, job.Key())
		if err == nil {
			cp := *m
			if job.FailureThreshold > 0 {
				cp.FailureThreshold = job.FailureThreshold
			}
			return &cp
		}
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn("runner_monitor_load_error", zap.Error(err))
		}
	}
	return &domain.Monitor{
		ID:               job.MonitorID,
		Team:             job.TeamID,
		Type:             job.MonitorType,
		Target:           job.Target,
		IntervalSeconds:  job.IntervalSeconds,
		TimeoutMS:        job.TimeoutMS,
		FailureThreshold: job.FailureThreshold,
		Enabled:          true,
		Config:           job.Config,
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func validateJob(job domain.CheckJob) error {
	if job.MonitorID == "" || job.TeamID == "" {
		return fmt.Errorf("%w: monitor_id and team_id are required", ErrInvalidJob)
	}
	if _, err := domain.ParseMonitorType(string(job.MonitorType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return nil
}
