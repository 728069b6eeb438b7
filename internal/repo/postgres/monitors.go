package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v5"
	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

const monitorColumns = `team_id, id, name, type, target, interval_seconds, timeout_ms,
       failure_threshold, enabled, group_id, config, push_token_hash, created_at`

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var (
		m         domain.Monitor
		team, id  string
		typ       string
		groupID   null.String
		pushHash  null.String
		config    []byte
		createdAt time.Time
	)
	if err := row.Scan(&team, &id, &m.Name, &typ, &m.Target, &m.IntervalSeconds, &m.TimeoutMS,
		&m.FailureThreshold, &m.Enabled, &groupID, &config, &pushHash, &createdAt); err != nil {
		return nil, err
	}
	m.Team = domain.TeamID(team)
	m.ID = domain.MonitorID(id)
	m.Type = domain.MonitorType(typ)
	m.GroupID = groupID.ValueOrZero()
	m.PushTokenHash = pushHash.ValueOrZero()
	m.Config = config
	m.CreatedAt = createdAt
	return &m, nil
}

func (s *Store) GetMonitor(ctx context.Context, key domain.MonitorKey) (*domain.Monitor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE team_id = $1 AND id = $2`,
		string(key.Team), string(key.Monitor))
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get monitor: %w", err)
	}
	return m, nil
}

func (s *Store) FindMonitor(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, string(id))
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find monitor: %w", err)
	}
	return m, nil
}

func (s *Store) ListMonitors(ctx context.Context) ([]*domain.Monitor, error) {
	return s.listMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors ORDER BY team_id, id`)
}

func (s *Store) ListTeamMonitors(ctx context.Context, team domain.TeamID) ([]*domain.Monitor, error) {
	return s.listMonitors(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE team_id = $1 ORDER BY id`, string(team))
}

func (s *Store) listMonitors(ctx context.Context, q string, args ...any) ([]*domain.Monitor, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertMonitor is used by fixtures and tests; the admin surface owns
// monitor rows in production.
func (s *Store) UpsertMonitor(ctx context.Context, m *domain.Monitor) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	var config []byte
	if len(m.Config) > 0 {
		config = m.Config
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitors (team_id, id, name, type, target, interval_seconds, timeout_ms,
		                      failure_threshold, enabled, group_id, config, push_token_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (team_id, id) DO UPDATE SET
		  name = EXCLUDED.name, type = EXCLUDED.type, target = EXCLUDED.target,
		  interval_seconds = EXCLUDED.interval_seconds, timeout_ms = EXCLUDED.timeout_ms,
		  failure_threshold = EXCLUDED.failure_threshold, enabled = EXCLUDED.enabled,
		  group_id = EXCLUDED.group_id, config = EXCLUDED.config, push_token_hash = EXCLUDED.push_token_hash`,
		string(m.Team), string(m.ID), m.Name, string(m.Type), m.Target, m.IntervalSeconds, m.TimeoutMS,
		m.FailureThreshold, m.Enabled, null.NewString(m.GroupID, m.GroupID != ""), config,
		null.NewString(m.PushTokenHash, m.PushTokenHash != ""), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert monitor: %w", err)
	}
	return nil
}

// ---- ComponentStore ----

func (s *Store) ComponentsForMonitor(ctx context.Context, key domain.MonitorKey) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT component_id FROM component_monitors WHERE team_id = $1 AND monitor_id = $2 ORDER BY component_id`,
		string(key.Team), string(key.Monitor))
	if err != nil {
		return nil, fmt.Errorf("components for monitor: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) GetComponent(ctx context.Context, team domain.TeamID, id string) (*domain.Component, error) {
	c := domain.Component{Team: team, ID: id}
	err := s.pool.QueryRow(ctx, `SELECT name FROM components WHERE team_id = $1 AND id = $2`, string(team), id).Scan(&c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get component: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT monitor_id FROM component_monitors WHERE team_id = $1 AND component_id = $2 ORDER BY monitor_id`,
		string(team), id)
	if err != nil {
		return nil, fmt.Errorf("component monitors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mid string
		if err := rows.Scan(&mid); err != nil {
			return nil, err
		}
		c.Monitors = append(c.Monitors, domain.MonitorID(mid))
	}
	return &c, rows.Err()
}

// ---- SloStore ----

func (s *Store) ListSloTargets(ctx context.Context, team domain.TeamID) ([]domain.SloTarget, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT scope_type, scope_id, target_ppm FROM slo_targets WHERE team_id = $1`, string(team))
	if err != nil {
		return nil, fmt.Errorf("list slo targets: %w", err)
	}
	defer rows.Close()
	var out []domain.SloTarget
	for rows.Next() {
		t := domain.SloTarget{Team: team}
		var scope string
		if err := rows.Scan(&scope, &t.ScopeID, &t.TargetPPM); err != nil {
			return nil, err
		}
		t.ScopeType = domain.SloScopeType(scope)
		out = append(out, t)
	}
	return out, rows.Err()
}
