package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Ports (interfaces) implemented by the memory and postgres adapters.

type MonitorStore interface {
	// GetMonitor returns ErrNotFound for unknown keys.
	GetMonitor(ctx context.Context, key domain.MonitorKey) (*domain.Monitor, error)
	// FindMonitor looks a monitor up by id alone, for push reports.
	FindMonitor(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error)
	ListMonitors(ctx context.Context) ([]*domain.Monitor, error)
	ListTeamMonitors(ctx context.Context, team domain.TeamID) ([]*domain.Monitor, error)
}

type ComponentStore interface {
	ComponentsForMonitor(ctx context.Context, key domain.MonitorKey) ([]string, error)
	GetComponent(ctx context.Context, team domain.TeamID, id string) (*domain.Component, error)
}

type SuppressionStore interface {
	// ListSuppressions returns windows of the team that overlap [from, to)
	// and have at least one of the given scopes.
	ListSuppressions(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to time.Time) ([]domain.Suppression, error)
}

type StateStore interface {
	// GetState returns nil, nil when the monitor was never checked.
	GetState(ctx context.Context, key domain.MonitorKey) (*domain.MonitorState, error)
	SaveState(ctx context.Context, st *domain.MonitorState) error
}

type IncidentStore interface {
	// ListIncidents returns incidents overlapping [from, to).
	ListIncidents(ctx context.Context, key domain.MonitorKey, from, to time.Time) ([]domain.Incident, error)
}

// StateTx is the view of a monitor's state and incidents inside one atomic
// commit.
type StateTx interface {
	GetState(ctx context.Context) (*domain.MonitorState, error)
	SaveState(ctx context.Context, st *domain.MonitorState) error
	// OpenIncident returns nil, nil when no incident is open.
	OpenIncident(ctx context.Context) (*domain.Incident, error)
	CreateIncident(ctx context.Context, inc *domain.Incident) error
	ResolveIncident(ctx context.Context, inc *domain.Incident) error
}

type TransitionStore interface {
	// WithinTx runs fn atomically for one monitor. Writes are discarded when
	// fn returns an error.
	WithinTx(ctx context.Context, key domain.MonitorKey, fn func(tx StateTx) error) error
}

type SloStore interface {
	ListSloTargets(ctx context.Context, team domain.TeamID) ([]domain.SloTarget, error)
}

type CheckinStore interface {
	RecordCheckin(ctx context.Context, key domain.MonitorKey, at time.Time) error
	// LastCheckin returns the zero time when none was recorded.
	LastCheckin(ctx context.Context, key domain.MonitorKey) (time.Time, error)
}

type DatapointStore interface {
	AppendDatapoints(ctx context.Context, points []domain.Datapoint) error
}

// MarkerStore holds short-lived idempotency markers.
type MarkerStore interface {
	GetMarker(ctx context.Context, key string) (string, bool, error)
	PutMarker(ctx context.Context, key, value string, ttl time.Duration) error
	// ClaimMarker sets key only if no live marker exists and reports whether
	// this call set it.
	ClaimMarker(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	DeleteMarker(ctx context.Context, key string) error
}

// Store is everything a full deployment needs.
type Store interface {
	MonitorStore
	ComponentStore
	SuppressionStore
	StateStore
	IncidentStore
	TransitionStore
	SloStore
	CheckinStore
	DatapointStore
	MarkerStore
	Close() error
}

// ScopeMatches reports whether any scope of s is in want.
func ScopeMatches(s *domain.Suppression, want []domain.SuppressionScope) bool {
	for _, a := range s.Scopes {
		for _, b := range want {
			if a.Type == b.Type && a.ID == b.ID {
				return true
			}
		}
	}
	return false
}
