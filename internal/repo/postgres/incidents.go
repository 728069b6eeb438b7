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

const incidentColumns = `id, title, status, started_at, resolved_at`

func scanIncident(row pgx.Row, key domain.MonitorKey) (*domain.Incident, error) {
	inc := domain.Incident{Team: key.Team, MonitorID: key.Monitor}
	var (
		status   string
		resolved null.Time
	)
	if err := row.Scan(&inc.ID, &inc.Title, &status, &inc.StartedAt, &resolved); err != nil {
		return nil, err
	}
	inc.Status = domain.IncidentStatus(status)
	inc.ResolvedAt = resolved.Ptr()
	return &inc, nil
}

func loadUpdates(ctx context.Context, q querier, inc *domain.Incident) error {
	rows, err := q.Query(ctx,
		`SELECT message, status, created_at FROM incident_updates WHERE incident_id = $1 ORDER BY id`, inc.ID)
	if err != nil {
		return fmt.Errorf("incident updates: %w", err)
	}
	defer rows.Close()
	inc.Updates = inc.Updates[:0]
	for rows.Next() {
		var (
			u      domain.IncidentUpdate
			status string
		)
		if err := rows.Scan(&u.Message, &status, &u.CreatedAt); err != nil {
			return err
		}
		u.Status = domain.IncidentStatus(status)
		inc.Updates = append(inc.Updates, u)
	}
	return rows.Err()
}

func (s *Store) ListIncidents(ctx context.Context, key domain.MonitorKey, from, to time.Time) ([]domain.Incident, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+incidentColumns+`
		  FROM incidents
		 WHERE team_id = $1 AND monitor_id = $2
		   AND started_at < $4
		   AND (resolved_at IS NULL OR resolved_at > $3)
		 ORDER BY started_at`,
		string(key.Team), string(key.Monitor), from, to)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows, key)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

// ---- TransitionStore ----

// WithinTx serializes commits for one monitor across processes with a
// transaction-scoped advisory lock.
func (s *Store) WithinTx(ctx context.Context, key domain.MonitorKey, fn func(repo.StateTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key.String()); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return fn(&stateTx{tx: tx, key: key})
	})
}

type stateTx struct {
	tx  pgx.Tx
	key domain.MonitorKey
}

func (t *stateTx) GetState(ctx context.Context) (*domain.MonitorState, error) {
	return getState(ctx, t.tx, t.key, true)
}

func (t *stateTx) SaveState(ctx context.Context, st *domain.MonitorState) error {
	return saveState(ctx, t.tx, st)
}

func (t *stateTx) OpenIncident(ctx context.Context) (*domain.Incident, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+incidentColumns+`
		  FROM incidents
		 WHERE team_id = $1 AND monitor_id = $2 AND status <> 'resolved'
		 ORDER BY started_at DESC
		 LIMIT 1`,
		string(t.key.Team), string(t.key.Monitor))
	inc, err := scanIncident(row, t.key)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open incident: %w", err)
	}
	if err := loadUpdates(ctx, t.tx, inc); err != nil {
		return nil, err
	}
	return inc, nil
}

func (t *stateTx) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO incidents (id, team_id, monitor_id, title, status, started_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inc.ID, string(inc.Team), string(inc.MonitorID), inc.Title, string(inc.Status), inc.StartedAt,
		null.TimeFromPtr(inc.ResolvedAt))
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return t.insertUpdates(ctx, inc.ID, inc.Updates)
}

// ResolveIncident writes the final status and any updates not yet stored.
func (t *stateTx) ResolveIncident(ctx context.Context, inc *domain.Incident) error {
	var stored int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM incident_updates WHERE incident_id = $1`, inc.ID).Scan(&stored); err != nil {
		return fmt.Errorf("count updates: %w", err)
	}
	if _, err := t.tx.Exec(ctx, `UPDATE incidents SET status = $2, resolved_at = $3 WHERE id = $1`,
		inc.ID, string(inc.Status), null.TimeFromPtr(inc.ResolvedAt)); err != nil {
		return fmt.Errorf("resolve incident: %w", err)
	}
	if stored < len(inc.Updates) {
		return t.insertUpdates(ctx, inc.ID, inc.Updates[stored:])
	}
	return nil
}

func (t *stateTx) insertUpdates(ctx context.Context, id string, updates []domain.IncidentUpdate) error {
	for _, u := range updates {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO incident_updates (incident_id, message, status, created_at) VALUES ($1,$2,$3,$4)`,
			id, u.Message, string(u.Status), u.CreatedAt); err != nil {
			return fmt.Errorf("insert incident update: %w", err)
		}
	}
	return nil
}
