package report

import (
	"context"
	"fmt"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
)

type MonitorSummary struct {
	MonitorID domain.MonitorID     `json:"monitorId"`
	Name      string               `json:"name"`
	Type      domain.MonitorType   `json:"type"`
	Summary   availability.Summary `json:"summary"`
}

type Monthly struct {
	Team     domain.TeamID    `json:"teamId"`
	Month    string           `json:"month"`
	From     int64            `json:"from"`
	To       int64            `json:"to"`
	Monitors []MonitorSummary `json:"monitors"`
	// BudgetExhausted lists monitors that burned past their error budget.
	BudgetExhausted []domain.MonitorID `json:"budgetExhausted"`
}

// MonthlyReport summarises every monitor of the team over a UTC month.
func (s *Service) MonthlyReport(ctx context.Context, team domain.TeamID, month string) (*Monthly, error) {
	from, to, err := availability.UTCMonthRange(month)
	if err != nil {
		return nil, err
	}
	ms, err := s.Monitors.ListTeamMonitors(ctx, team)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}

	rep := &Monthly{Team: team, Month: month, From: from, To: to, Monitors: []MonitorSummary{}, BudgetExhausted: []domain.MonitorID{}}
	for _, m := range ms {
		a, err := s.Monitor(ctx, Query{Team: team, ID: string(m.ID), From: from, To: to})
		if err != nil {
			return nil, fmt.Errorf("monitor %s: %w", m.ID, err)
		}
		rep.Monitors = append(rep.Monitors, MonitorSummary{MonitorID: m.ID, Name: m.Name, Type: m.Type, Summary: a.Summary})
		if b := a.Summary.ErrorBudget; b != nil && b.Exhausted() {
			rep.BudgetExhausted = append(rep.BudgetExhausted, m.ID)
		}
	}
	return rep, nil
}
