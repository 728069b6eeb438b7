package domain

import (
	"errors"
	"time"
)

type SuppressionKind string

const (
	KindMaintenance SuppressionKind = "maintenance"
	KindSilence     SuppressionKind = "silence"
)

type ScopeType string

const (
	ScopeMonitor      ScopeType = "monitor"
	ScopeMonitorGroup ScopeType = "monitor_group"
	ScopeComponent    ScopeType = "component"
)

type SuppressionScope struct {
	Type ScopeType `json:"scope_type" yaml:"type"`
	ID   string    `json:"scope_id" yaml:"id"`
}

// Suppression is a maintenance or silence window. A nil EndsAt means
// open-ended, which only silences allow.
type Suppression struct {
	ID       string             `json:"id" yaml:"id"`
	Team     TeamID             `json:"team_id" yaml:"team"`
	Kind     SuppressionKind    `json:"kind" yaml:"kind"`
	Name     string             `json:"name" yaml:"name"`
	Reason   string             `json:"reason,omitempty" yaml:"reason"`
	StartsAt time.Time          `json:"starts_at" yaml:"starts_at"`
	EndsAt   *time.Time         `json:"ends_at,omitempty" yaml:"ends_at"`
	Scopes   []SuppressionScope `json:"scopes" yaml:"scopes"`
}

func (s *Suppression) Validate() error {
	if s.Kind != KindMaintenance && s.Kind != KindSilence {
		return errors.New("suppression kind must be maintenance or silence")
	}
	if len(s.Scopes) == 0 {
		return errors.New("suppression needs at least one scope")
	}
	if s.Kind == KindMaintenance && s.EndsAt == nil {
		return errors.New("maintenance window needs an end")
	}
	if s.EndsAt != nil && !s.EndsAt.After(s.StartsAt) {
		return errors.New("suppression must end after it starts")
	}
	return nil
}

// ActiveAt reports whether t falls in [starts_at, ends_at).
func (s *Suppression) ActiveAt(t time.Time) bool {
	if t.Before(s.StartsAt) {
		return false
	}
	return s.EndsAt == nil || t.Before(*s.EndsAt)
}

// Overlaps reports whether the window intersects [from, to).
func (s *Suppression) Overlaps(from, to time.Time) bool {
	if !s.StartsAt.Before(to) {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.After(from)
}

// Component is a status-page component fed by one or more monitors.
type Component struct {
	ID       string      `json:"id" yaml:"id"`
	Team     TeamID      `json:"team_id" yaml:"team"`
	Name     string      `json:"name" yaml:"name"`
	Monitors []MonitorID `json:"monitor_ids" yaml:"monitors"`
}

type SloScopeType string

const (
	SloTeam       SloScopeType = "team"
	SloMonitor    SloScopeType = "monitor"
	SloComponent  SloScopeType = "component"
	SloStatusPage SloScopeType = "status_page"
)

type SloTarget struct {
	Team      TeamID       `json:"team_id" yaml:"team"`
	ScopeType SloScopeType `json:"scope_type" yaml:"scope_type"`
	ScopeID   string       `json:"scope_id" yaml:"scope_id"`
	TargetPPM int64        `json:"target_ppm" yaml:"target_ppm"`
}
