package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// ---- MarkerStore ----

func (s *Store) GetMarker(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM idempotency_markers WHERE key = $1 AND expires_at > now()`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get marker: %w", err)
	}
	return v, true, nil
}

func (s *Store) PutMarker(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_markers (key, value, expires_at)
		VALUES ($1, $2, now() + $3::interval)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, fmt.Sprintf("%d milliseconds", ttl.Milliseconds()))
	if err != nil {
		return fmt.Errorf("put marker: %w", err)
	}
	return nil
}

func (s *Store) ClaimMarker(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_markers (key, value, expires_at)
		VALUES ($1, $2, now() + $3::interval)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
		WHERE idempotency_markers.expires_at <= now()`,
		key, value, fmt.Sprintf("%d milliseconds", ttl.Milliseconds()))
	if err != nil {
		return false, fmt.Errorf("claim marker: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) DeleteMarker(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM idempotency_markers WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

// PruneMarkers deletes expired markers and reports how many went.
func (s *Store) PruneMarkers(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_markers WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("prune markers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- CheckinStore ----

func (s *Store) RecordCheckin(ctx context.Context, key domain.MonitorKey, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkins (team_id, monitor_id, last_seen_at) VALUES ($1,$2,$3)
		ON CONFLICT (team_id, monitor_id) DO UPDATE
		   SET last_seen_at = GREATEST(checkins.last_seen_at, EXCLUDED.last_seen_at)`,
		string(key.Team), string(key.Monitor), at)
	if err != nil {
		return fmt.Errorf("record checkin: %w", err)
	}
	return nil
}

func (s *Store) LastCheckin(ctx context.Context, key domain.MonitorKey) (time.Time, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_seen_at FROM checkins WHERE team_id = $1 AND monitor_id = $2`,
		string(key.Team), string(key.Monitor)).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last checkin: %w", err)
	}
	return at, nil
}

// ---- DatapointStore ----

func (s *Store) AppendDatapoints(ctx context.Context, points []domain.Datapoint) error {
	if len(points) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(points))
	for _, p := range points {
		rows = append(rows, []any{string(p.TeamID), string(p.MonitorID), string(p.Status), p.LatencyMS, p.Timestamp})
	}
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"datapoints"},
		[]string{"team_id", "monitor_id", "status", "latency_ms", "recorded_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert datapoints: %w", err)
	}
	return nil
}
