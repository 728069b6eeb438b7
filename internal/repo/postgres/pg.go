package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS monitors (
  team_id           TEXT NOT NULL,
  id                TEXT NOT NULL,
  name              TEXT NOT NULL DEFAULT '',
  type              TEXT NOT NULL,
  target            TEXT NOT NULL DEFAULT '',
  interval_seconds  INTEGER NOT NULL DEFAULT 60,
  timeout_ms        INTEGER NOT NULL DEFAULT 10000,
  failure_threshold INTEGER NOT NULL DEFAULT 1,
  enabled           BOOLEAN NOT NULL DEFAULT true,
  group_id          TEXT NULL,
  config            JSONB NULL,
  push_token_hash   TEXT NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (team_id, id)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_monitors_id ON monitors (id);

CREATE TABLE IF NOT EXISTS components (
  team_id TEXT NOT NULL,
  id      TEXT NOT NULL,
  name    TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (team_id, id)
);

CREATE TABLE IF NOT EXISTS component_monitors (
  team_id      TEXT NOT NULL,
  component_id TEXT NOT NULL,
  monitor_id   TEXT NOT NULL,
  PRIMARY KEY (team_id, component_id, monitor_id)
);
CREATE INDEX IF NOT EXISTS idx_component_monitors_monitor ON component_monitors (team_id, monitor_id);

CREATE TABLE IF NOT EXISTS suppressions (
  id        TEXT PRIMARY KEY,
  team_id   TEXT NOT NULL,
  kind      TEXT NOT NULL CHECK (kind IN ('maintenance','silence')),
  name      TEXT NOT NULL DEFAULT '',
  reason    TEXT NOT NULL DEFAULT '',
  starts_at TIMESTAMPTZ NOT NULL,
  ends_at   TIMESTAMPTZ NULL,
  CHECK (kind = 'silence' OR ends_at IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_suppressions_team_time ON suppressions (team_id, starts_at, ends_at);

CREATE TABLE IF NOT EXISTS suppression_scopes (
  suppression_id TEXT NOT NULL REFERENCES suppressions(id) ON DELETE CASCADE,
  scope_type     TEXT NOT NULL,
  scope_id       TEXT NOT NULL,
  PRIMARY KEY (suppression_id, scope_type, scope_id)
);

CREATE TABLE IF NOT EXISTS monitor_state (
  team_id              TEXT NOT NULL,
  monitor_id           TEXT NOT NULL,
  last_checked_at      TIMESTAMPTZ NULL,
  last_status          TEXT NOT NULL DEFAULT 'unknown',
  last_latency_ms      DOUBLE PRECISION NOT NULL DEFAULT 0,
  consecutive_failures INTEGER NOT NULL DEFAULT 0,
  last_error           TEXT NOT NULL DEFAULT '',
  incident_open        BOOLEAN NOT NULL DEFAULT false,
  updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (team_id, monitor_id)
);

CREATE TABLE IF NOT EXISTS incidents (
  id          TEXT PRIMARY KEY,
  team_id     TEXT NOT NULL,
  monitor_id  TEXT NOT NULL,
  title       TEXT NOT NULL,
  status      TEXT NOT NULL,
  started_at  TIMESTAMPTZ NOT NULL,
  resolved_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_incidents_monitor_time ON incidents (team_id, monitor_id, started_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_incidents_one_open ON incidents (team_id, monitor_id) WHERE status <> 'resolved';

CREATE TABLE IF NOT EXISTS incident_updates (
  id          BIGSERIAL PRIMARY KEY,
  incident_id TEXT NOT NULL REFERENCES incidents(id) ON DELETE CASCADE,
  message     TEXT NOT NULL,
  status      TEXT NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS slo_targets (
  team_id    TEXT NOT NULL,
  scope_type TEXT NOT NULL,
  scope_id   TEXT NOT NULL,
  target_ppm BIGINT NOT NULL,
  PRIMARY KEY (team_id, scope_type, scope_id)
);

CREATE TABLE IF NOT EXISTS checkins (
  team_id      TEXT NOT NULL,
  monitor_id   TEXT NOT NULL,
  last_seen_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (team_id, monitor_id)
);

CREATE TABLE IF NOT EXISTS datapoints (
  id          BIGSERIAL PRIMARY KEY,
  team_id     TEXT NOT NULL,
  monitor_id  TEXT NOT NULL,
  status      TEXT NOT NULL,
  latency_ms  DOUBLE PRECISION NOT NULL,
  recorded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datapoints_monitor_time ON datapoints (team_id, monitor_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS idempotency_markers (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates every table the engine uses.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
