// Package suppression decides whether a monitor is inside a maintenance or
// silence window.
package suppression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

// State is the result of a lookup at one instant. Maintenance implies
// silenced.
type State struct {
	IsMaintenance bool
	IsSilenced    bool
	Matched       *domain.Suppression
}

type Resolver struct {
	Monitors     repo.MonitorStore
	Components   repo.ComponentStore
	Suppressions repo.SuppressionStore
}

func NewResolver(monitors repo.MonitorStore, components repo.ComponentStore, suppressions repo.SuppressionStore) *Resolver {
	return &Resolver{Monitors: monitors, Components: components, Suppressions: suppressions}
}

// Scopes lists every scope that can suppress the monitor: itself, its group
// and the components it feeds.
func (r *Resolver) Scopes(ctx context.Context, team domain.TeamID, id domain.MonitorID) ([]domain.SuppressionScope, error) {
	key := domain.MonitorKey{Team: team, Monitor: id}
	scopes := []domain.SuppressionScope{{Type: domain.ScopeMonitor, ID: string(id)}}

	m, err := r.Monitors.GetMonitor(ctx, key)
	switch {
	case err == nil:
		if m.GroupID != "" {
			scopes = append(scopes, domain.SuppressionScope{Type: domain.ScopeMonitorGroup, ID: m.GroupID})
		}
	case !errors.Is(err, repo.ErrNotFound):
		return nil, fmt.Errorf("load monitor: %w", err)
	}

	comps, err := r.Components.ComponentsForMonitor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	for _, c := range comps {
		scopes = append(scopes, domain.SuppressionScope{Type: domain.ScopeComponent, ID: c})
	}
	return scopes, nil
}

// Resolve reports the suppression state at nowSec. A maintenance match wins
// over a silence.
func (r *Resolver) Resolve(ctx context.Context, team domain.TeamID, id domain.MonitorID, nowSec int64) (State, error) {
	scopes, err := r.Scopes(ctx, team, id)
	if err != nil {
		return State{}, err
	}
	now := time.Unix(nowSec, 0).UTC()
	list, err := r.Suppressions.ListSuppressions(ctx, team, scopes, now, now.Add(time.Second))
	if err != nil {
		return State{}, fmt.Errorf("list suppressions: %w", err)
	}

	var st State
	for i := range list {
		s := &list[i]
		if !s.ActiveAt(now) || !repo.ScopeMatches(s, scopes) {
			continue
		}
		switch s.Kind {
		case domain.KindMaintenance:
			if !st.IsMaintenance {
				st = State{IsMaintenance: true, IsSilenced: true, Matched: s}
			}
		case domain.KindSilence:
			if st.Matched == nil {
				st = State{IsSilenced: true, Matched: s}
			}
		}
	}
	return st, nil
}

// MaintenanceIntervals returns the merged maintenance windows that cover the
// monitor within [from, to). Open-ended windows are cut at to.
func (r *Resolver) MaintenanceIntervals(ctx context.Context, team domain.TeamID, id domain.MonitorID, from, to int64) ([]availability.Interval, error) {
	scopes, err := r.Scopes(ctx, team, id)
	if err != nil {
		return nil, err
	}
	return r.intervals(ctx, team, scopes, from, to)
}

// ScopeMaintenanceIntervals is MaintenanceIntervals for an explicit scope
// set, used for components.
func (r *Resolver) ScopeMaintenanceIntervals(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to int64) ([]availability.Interval, error) {
	return r.intervals(ctx, team, scopes, from, to)
}

func (r *Resolver) intervals(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to int64) ([]availability.Interval, error) {
	if to <= from {
		return nil, nil
	}
	list, err := r.Suppressions.ListSuppressions(ctx, team, scopes, time.Unix(from, 0).UTC(), time.Unix(to, 0).UTC())
	if err != nil {
		return nil, fmt.Errorf("list suppressions: %w", err)
	}
	var out []availability.Interval
	for i := range list {
		s := &list[i]
		if s.Kind != domain.KindMaintenance || !repo.ScopeMatches(s, scopes) {
			continue
		}
		end := to
		if s.EndsAt != nil {
			end = s.EndsAt.Unix()
		}
		out = append(out, availability.Interval{Start: s.StartsAt.Unix(), End: end})
	}
	return availability.MergeIntervals(availability.ClampIntervals(out, availability.Interval{Start: from, End: to})), nil
}
