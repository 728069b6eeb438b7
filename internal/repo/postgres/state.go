package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getState(ctx context.Context, q querier, key domain.MonitorKey, lock bool) (*domain.MonitorState, error) {
	sql := `SELECT last_checked_at, last_status, last_latency_ms, consecutive_failures,
	               last_error, incident_open, updated_at
	          FROM monitor_state
	         WHERE team_id = $1 AND monitor_id = $2`
	if lock {
		sql += ` FOR UPDATE`
	}
	st := domain.MonitorState{MonitorID: key.Monitor, Team: key.Team}
	var (
		checked null.Time
		status  string
	)
	err := q.QueryRow(ctx, sql, string(key.Team), string(key.Monitor)).Scan(&checked, &status,
		&st.LastLatencyMS, &st.ConsecutiveFailures, &st.LastError, &st.IncidentOpen, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	st.LastCheckedAt = checked.ValueOrZero()
	st.LastStatus = domain.Status(status)
	return &st, nil
}

func saveState(ctx context.Context, q querier, st *domain.MonitorState) error {
	_, err := q.Exec(ctx, `
		INSERT INTO monitor_state (team_id, monitor_id, last_checked_at, last_status, last_latency_ms,
		                           consecutive_failures, last_error, incident_open, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (team_id, monitor_id) DO UPDATE SET
		  last_checked_at = EXCLUDED.last_checked_at, last_status = EXCLUDED.last_status,
		  last_latency_ms = EXCLUDED.last_latency_ms, consecutive_failures = EXCLUDED.consecutive_failures,
		  last_error = EXCLUDED.last_error, incident_open = EXCLUDED.incident_open,
		  updated_at = EXCLUDED.updated_at`,
		string(st.Team), string(st.MonitorID), null.NewTime(st.LastCheckedAt, !st.LastCheckedAt.IsZero()),
		string(st.LastStatus), st.LastLatencyMS, st.ConsecutiveFailures, st.LastError, st.IncidentOpen, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, key domain.MonitorKey) (*domain.MonitorState, error) {
	return getState(ctx, s.pool, key, false)
}

func (s *Store) SaveState(ctx context.Context, st *domain.MonitorState) error {
	return saveState(ctx, s.pool, st)
}
