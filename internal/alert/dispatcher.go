// Package alert turns incident transitions into queued alert jobs and
// delivers them.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/metrics"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

// DefaultMarkerTTL is how long a job_id:direction marker suppresses repeats.
const DefaultMarkerTTL = 48 * time.Hour

// Queue accepts alert jobs for at-least-once delivery.
type Queue interface {
	Enqueue(ctx context.Context, job domain.AlertJob) error
}

// Request is one dispatch call. JobID identifies the probe run that produced
// it; IncidentID is empty in degraded mode.
type Request struct {
	Direction  domain.Direction
	Monitor    *domain.Monitor
	Reason     string
	IncidentID string
	JobID      string
	Silenced   bool
}

type Dispatcher struct {
	markers repo.MarkerStore
	queue   Queue
	ttl     time.Duration
	log     *zap.Logger
	group   singleflight.Group
}

func NewDispatcher(markers repo.MarkerStore, queue Queue, ttl time.Duration, log *zap.Logger) *Dispatcher {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &Dispatcher{markers: markers, queue: queue, ttl: ttl, log: log}
}

// Dispatch queues one AlertJob unless the monitor is silenced or the same
// run already dispatched this direction. It reports whether a job was queued.
func (d *Dispatcher) Dispatch(ctx context.Context, r Request) (bool, error) {
	if r.Monitor == nil {
		return false, fmt.Errorf("dispatch without monitor")
	}
	if r.Silenced {
		metrics.AlertsTotal.WithLabelValues(string(r.Direction), "silenced").Inc()
		d.log.Debug("alert_silenced",
			zap.String("team_id", string(r.Monitor.Team)),
			zap.String("monitor_id", string(r.Monitor.ID)),
			zap.String("direction", string(r.Direction)),
		)
		return false, nil
	}
	if r.JobID == "" {
		// nothing to key a marker on
		return true, d.enqueue(ctx, r)
	}

	key := MarkerKey(r.JobID, r.Direction)
	// Only the caller whose function ran queued anything; collapsed
	// duplicates share its result but report false.
	ran := false
	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		ran = true
		claimed, err := d.markers.ClaimMarker(ctx, key, "1", d.ttl)
		if err != nil {
			return false, fmt.Errorf("claim marker: %w", err)
		}
		if !claimed {
			metrics.AlertsTotal.WithLabelValues(string(r.Direction), "duplicate").Inc()
			return false, nil
		}
		if err := d.enqueue(ctx, r); err != nil {
			// free the key so a redelivered job can still alert
			if derr := d.markers.DeleteMarker(ctx, key); derr != nil {
				d.log.Warn("alert_marker_release_failed", zap.String("key", key), zap.Error(derr))
			}
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return ran && v.(bool), nil
}

func (d *Dispatcher) enqueue(ctx context.Context, r Request) error {
	job := domain.AlertJob{
		Type:       "monitor",
		AlertID:    uuid.NewString(),
		TeamID:     r.Monitor.Team,
		MonitorID:  r.Monitor.ID,
		Monitor:    r.Monitor.Name,
		Target:     r.Monitor.Target,
		Status:     r.Direction,
		Reason:     r.Reason,
		IncidentID: r.IncidentID,
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		metrics.AlertsTotal.WithLabelValues(string(r.Direction), "error").Inc()
		return fmt.Errorf("enqueue alert: %w", err)
	}
	metrics.AlertsTotal.WithLabelValues(string(r.Direction), "queued").Inc()
	d.log.Info("alert_queued",
		zap.String("alert_id", job.AlertID),
		zap.String("team_id", string(job.TeamID)),
		zap.String("monitor_id", string(job.MonitorID)),
		zap.String("direction", string(job.Status)),
		zap.String("incident_id", job.IncidentID),
		zap.String("job_id", r.JobID),
	)
	return nil
}

func MarkerKey(jobID string, dir domain.Direction) string {
	return jobID + ":" + string(dir)
}
