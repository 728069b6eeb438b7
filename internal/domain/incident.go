package domain

import (
	"time"

	"github.com/google/uuid"
)

type IncidentStatus string

const (
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentIdentified    IncidentStatus = "identified"
	IncidentMonitoring    IncidentStatus = "monitoring"
	IncidentResolved      IncidentStatus = "resolved"
)

type IncidentUpdate struct {
	Message   string         `json:"message"`
	Status    IncidentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

type Incident struct {
	ID         string           `json:"id"`
	Team       TeamID           `json:"team_id"`
	MonitorID  MonitorID        `json:"monitor_id"`
	Title      string           `json:"title"`
	Status     IncidentStatus   `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	Updates    []IncidentUpdate `json:"updates"`
}

func (i *Incident) Open() bool { return i.Status != IncidentResolved }

// NewIncident starts an incident in the investigating state.
func NewIncident(m *Monitor, reason string, now time.Time) *Incident {
	title := m.Name
	if title == "" {
		title = m.Target
	}
	msg := "Monitor is down"
	if reason != "" {
		msg += ": " + reason
	}
	return &Incident{
		ID:        uuid.NewString(),
		Team:      m.Team,
		MonitorID: m.ID,
		Title:     title + " is down",
		Status:    IncidentInvestigating,
		StartedAt: now,
		Updates: []IncidentUpdate{
			{Message: msg, Status: IncidentInvestigating, CreatedAt: now},
		},
	}
}

// Resolve appends the resolved update and stamps resolved_at.
func (i *Incident) Resolve(now time.Time) {
	i.Status = IncidentResolved
	i.ResolvedAt = &now
	i.Updates = append(i.Updates, IncidentUpdate{
		Message:   "Monitor recovered",
		Status:    IncidentResolved,
		CreatedAt: now,
	})
}
