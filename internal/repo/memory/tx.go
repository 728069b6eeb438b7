package memory

import (
	"context"
	"fmt"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

// tx stages writes and applies them only when the callback succeeds.
type tx struct {
	s        *Store
	key      domain.MonitorKey
	state    *domain.MonitorState
	created  *domain.Incident
	resolved *domain.Incident
}

func (m *Store) WithinTx(ctx context.Context, key domain.MonitorKey, fn func(repo.StateTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &tx{s: m, key: key}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.created != nil {
		cp := copyIncident(t.created)
		m.incidents[key] = append(m.incidents[key], &cp)
	}
	if t.resolved != nil {
		for i, inc := range m.incidents[key] {
			if inc.ID == t.resolved.ID {
				cp := copyIncident(t.resolved)
				m.incidents[key][i] = &cp
			}
		}
	}
	if t.state != nil {
		m.states[key] = *t.state
	}
	return nil
}

func (t *tx) GetState(ctx context.Context) (*domain.MonitorState, error) {
	if t.state != nil {
		st := *t.state
		return &st, nil
	}
	st, ok := t.s.states[t.key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (t *tx) SaveState(ctx context.Context, st *domain.MonitorState) error {
	cp := *st
	t.state = &cp
	return nil
}

func (t *tx) OpenIncident(ctx context.Context) (*domain.Incident, error) {
	if t.created != nil {
		cp := copyIncident(t.created)
		return &cp, nil
	}
	for _, inc := range t.s.incidents[t.key] {
		if inc.Open() && (t.resolved == nil || t.resolved.ID != inc.ID) {
			cp := copyIncident(inc)
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *tx) CreateIncident(ctx context.Context, inc *domain.Incident) error {
	if open, _ := t.OpenIncident(ctx); open != nil {
		return fmt.Errorf("monitor %s already has open incident %s", t.key, open.ID)
	}
	cp := copyIncident(inc)
	t.created = &cp
	return nil
}

func (t *tx) ResolveIncident(ctx context.Context, inc *domain.Incident) error {
	cp := copyIncident(inc)
	t.resolved = &cp
	return nil
}
