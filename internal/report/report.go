// Package report answers availability questions for monitors, components and
// whole teams from stored incidents and maintenance windows.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

const DefaultMaxBuckets = 744

// MaintenanceSource is implemented by suppression.Resolver.
type MaintenanceSource interface {
	MaintenanceIntervals(ctx context.Context, team domain.TeamID, id domain.MonitorID, from, to int64) ([]availability.Interval, error)
	ScopeMaintenanceIntervals(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to int64) ([]availability.Interval, error)
}

type Service struct {
	Monitors    repo.MonitorStore
	Components  repo.ComponentStore
	Incidents   repo.IncidentStore
	Slos        repo.SloStore
	Maintenance MaintenanceSource
	MaxBuckets  int
	Now         func() time.Time
}

// Query selects a scope and range. Bucket is optional. TargetPPM overrides
// the stored SLO when set.
type Query struct {
	Team      domain.TeamID
	ID        string
	From      int64
	To        int64
	Bucket    availability.BucketSize
	TargetPPM *int64
}

type Availability struct {
	Team      domain.TeamID         `json:"teamId"`
	ScopeType domain.SloScopeType   `json:"scopeType"`
	ScopeID   string                `json:"scopeId"`
	From      int64                 `json:"from"`
	To        int64                 `json:"to"`
	Summary   availability.Summary  `json:"summary"`
	Buckets   []availability.Bucket `json:"buckets,omitempty"`
}

func (s *Service) Monitor(ctx context.Context, q Query) (*Availability, error) {
	if q.To <= q.From {
		return nil, availability.ErrInvalidRange
	}
	key := domain.MonitorKey{Team: q.Team, Monitor: domain.MonitorID(q.ID)}
	if _, err := s.Monitors.GetMonitor(ctx, key); err != nil {
		return nil, err
	}
	down, err := s.downtime(ctx, key, q.From, q.To)
	if err != nil {
		return nil, err
	}
	maint, err := s.Maintenance.MaintenanceIntervals(ctx, q.Team, key.Monitor, q.From, q.To)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, q, domain.SloMonitor, down, maint)
}

// Component treats the component as down while any of its monitors has an
// incident.
func (s *Service) Component(ctx context.Context, q Query) (*Availability, error) {
	if q.To <= q.From {
		return nil, availability.ErrInvalidRange
	}
	c, err := s.Components.GetComponent(ctx, q.Team, q.ID)
	if err != nil {
		return nil, err
	}
	var down []availability.Interval
	for _, id := range c.Monitors {
		iv, err := s.downtime(ctx, domain.MonitorKey{Team: q.Team, Monitor: id}, q.From, q.To)
		if err != nil {
			return nil, err
		}
		down = append(down, iv...)
	}
	scopes := []domain.SuppressionScope{{Type: domain.ScopeComponent, ID: c.ID}}
	maint, err := s.Maintenance.ScopeMaintenanceIntervals(ctx, q.Team, scopes, q.From, q.To)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, q, domain.SloComponent, availability.MergeIntervals(down), maint)
}

func (s *Service) build(ctx context.Context, q Query, scope domain.SloScopeType, down, maint []availability.Interval) (*Availability, error) {
	target := q.TargetPPM
	if target == nil {
		targets, err := s.Slos.ListSloTargets(ctx, q.Team)
		if err != nil {
			return nil, fmt.Errorf("list slo targets: %w", err)
		}
		target = availability.ResolveSloTarget(targets, q.Team, scope, q.ID)
	}

	sum, err := availability.ComputeAvailability(q.From, q.To, down, maint, target)
	if err != nil {
		return nil, err
	}
	out := &Availability{Team: q.Team, ScopeType: scope, ScopeID: q.ID, From: q.From, To: q.To, Summary: sum}
	if q.Bucket != "" {
		r := availability.Interval{Start: q.From, End: q.To}
		m := availability.MergeIntervals(availability.ClampIntervals(maint, r))
		d := availability.DowntimeOutsideMaintenance(availability.ClampIntervals(down, r), m)
		out.Buckets, err = availability.ComputeAvailabilityBuckets(q.From, q.To, d, m, q.Bucket, s.maxBuckets())
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// downtime converts incidents into intervals. An open incident runs until
// now.
func (s *Service) downtime(ctx context.Context, key domain.MonitorKey, from, to int64) ([]availability.Interval, error) {
	incs, err := s.Incidents.ListIncidents(ctx, key, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	now := s.now().Unix()
	out := make([]availability.Interval, 0, len(incs))
	for _, inc := range incs {
		end := now
		if inc.ResolvedAt != nil {
			end = inc.ResolvedAt.Unix()
		}
		out = append(out, availability.Interval{Start: inc.StartedAt.Unix(), End: end})
	}
	return availability.ClampIntervals(out, availability.Interval{Start: from, End: to}), nil
}

func (s *Service) maxBuckets() int {
	if s.MaxBuckets > 0 {
		return s.MaxBuckets
	}
	return DefaultMaxBuckets
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
