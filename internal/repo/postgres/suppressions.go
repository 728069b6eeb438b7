package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v5"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

func (s *Store) ListSuppressions(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to time.Time) ([]domain.Suppression, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		keys = append(keys, string(sc.Type)+":"+sc.ID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.kind, s.name, s.reason, s.starts_at, s.ends_at
		  FROM suppressions s
		 WHERE s.team_id = $1
		   AND s.starts_at < $3
		   AND (s.ends_at IS NULL OR s.ends_at > $2)
		   AND EXISTS (SELECT 1 FROM suppression_scopes sc
		                WHERE sc.suppression_id = s.id
		                  AND sc.scope_type || ':' || sc.scope_id = ANY($4))
		 ORDER BY s.starts_at`,
		string(team), from, to, keys)
	if err != nil {
		return nil, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	index := map[string]int{}
	for rows.Next() {
		sp := domain.Suppression{Team: team}
		var (
			kind string
			ends null.Time
		)
		if err := rows.Scan(&sp.ID, &kind, &sp.Name, &sp.Reason, &sp.StartsAt, &ends); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		sp.Kind = domain.SuppressionKind(kind)
		sp.EndsAt = ends.Ptr()
		index[sp.ID] = len(out)
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(out))
	for _, sp := range out {
		ids = append(ids, sp.ID)
	}
	scopeRows, err := s.pool.Query(ctx,
		`SELECT suppression_id, scope_type, scope_id FROM suppression_scopes WHERE suppression_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("suppression scopes: %w", err)
	}
	defer scopeRows.Close()
	for scopeRows.Next() {
		var id, typ, scopeID string
		if err := scopeRows.Scan(&id, &typ, &scopeID); err != nil {
			return nil, err
		}
		i := index[id]
		out[i].Scopes = append(out[i].Scopes, domain.SuppressionScope{Type: domain.ScopeType(typ), ID: scopeID})
	}
	return out, scopeRows.Err()
}
