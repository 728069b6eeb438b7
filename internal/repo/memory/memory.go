package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

const maxDatapoints = 10_000

type Store struct {
	mu           sync.RWMutex
	monitors     map[domain.MonitorKey]*domain.Monitor
	components   map[string]*domain.Component
	suppressions []domain.Suppression
	slos         []domain.SloTarget
	states       map[domain.MonitorKey]domain.MonitorState
	incidents    map[domain.MonitorKey][]*domain.Incident
	checkins     map[domain.MonitorKey]time.Time
	datapoints   []domain.Datapoint
	markers      map[string]marker
	now          func() time.Time
}

type marker struct {
	value     string
	expiresAt time.Time
}

func New() *Store {
	return &Store{
		monitors:   make(map[domain.MonitorKey]*domain.Monitor),
		components: make(map[string]*domain.Component),
		states:     make(map[domain.MonitorKey]domain.MonitorState),
		incidents:  make(map[domain.MonitorKey][]*domain.Incident),
		checkins:   make(map[domain.MonitorKey]time.Time),
		datapoints: make([]domain.Datapoint, 0, 128),
		markers:    make(map[string]marker),
		now:        time.Now,
	}
}

func (m *Store) Close() error { return nil }

// AddMonitor upserts a monitor definition.
func (m *Store) AddMonitor(mon *domain.Monitor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *mon
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.monitors[cp.Key()] = &cp
}

func (m *Store) AddComponent(c *domain.Component) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.components[componentKey(c.Team, c.ID)] = &cp
}

func (m *Store) AddSuppression(s domain.Suppression) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressions = append(m.suppressions, s)
}

func (m *Store) AddSloTarget(t domain.SloTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slos = append(m.slos, t)
}

// Replace swaps all definitions at once. Runtime state (monitor state,
// incidents, check-ins, markers) is kept.
func (m *Store) Replace(monitors []domain.Monitor, components []domain.Component, suppressions []domain.Suppression, slos []domain.SloTarget) {
	mons := make(map[domain.MonitorKey]*domain.Monitor, len(monitors))
	for i := range monitors {
		cp := monitors[i]
		if cp.CreatedAt.IsZero() {
			cp.CreatedAt = time.Now().UTC()
		}
		mons[cp.Key()] = &cp
	}
	comps := make(map[string]*domain.Component, len(components))
	for i := range components {
		cp := components[i]
		comps[componentKey(cp.Team, cp.ID)] = &cp
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitors = mons
	m.components = comps
	m.suppressions = append([]domain.Suppression(nil), suppressions...)
	m.slos = append([]domain.SloTarget(nil), slos...)
}

func componentKey(team domain.TeamID, id string) string { return string(team) + "/" + id }

// ---- MonitorStore ----

func (m *Store) GetMonitor(ctx context.Context, key domain.MonitorKey) (*domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mon, ok := m.monitors[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *mon
	return &cp, nil
}

func (m *Store) FindMonitor(ctx context.Context, id domain.MonitorID) (*domain.Monitor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mon := range m.monitors {
		if mon.ID == id {
			cp := *mon
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *Store) ListMonitors(ctx context.Context) ([]*domain.Monitor, error) {
	return m.listMonitors(func(*domain.Monitor) bool { return true }), nil
}

func (m *Store) ListTeamMonitors(ctx context.Context, team domain.TeamID) ([]*domain.Monitor, error) {
	return m.listMonitors(func(mon *domain.Monitor) bool { return mon.Team == team }), nil
}

func (m *Store) listMonitors(keep func(*domain.Monitor) bool) []*domain.Monitor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Monitor, 0, len(m.monitors))
	for _, mon := range m.monitors {
		if keep(mon) {
			cp := *mon
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- ComponentStore ----

func (m *Store) ComponentsForMonitor(ctx context.Context, key domain.MonitorKey) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, c := range m.components {
		if c.Team != key.Team {
			continue
		}
		for _, id := range c.Monitors {
			if id == key.Monitor {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Store) GetComponent(ctx context.Context, team domain.TeamID, id string) (*domain.Component, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.components[componentKey(team, id)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	cp.Monitors = append([]domain.MonitorID(nil), c.Monitors...)
	return &cp, nil
}

// ---- SuppressionStore ----

func (m *Store) ListSuppressions(ctx context.Context, team domain.TeamID, scopes []domain.SuppressionScope, from, to time.Time) ([]domain.Suppression, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Suppression
	for i := range m.suppressions {
		s := &m.suppressions[i]
		if s.Team == team && s.Overlaps(from, to) && repo.ScopeMatches(s, scopes) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// ---- StateStore ----

func (m *Store) GetState(ctx context.Context, key domain.MonitorKey) (*domain.MonitorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[key]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *Store) SaveState(ctx context.Context, st *domain.MonitorState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[domain.MonitorKey{Team: st.Team, Monitor: st.MonitorID}] = *st
	return nil
}

// ---- IncidentStore ----

func (m *Store) ListIncidents(ctx context.Context, key domain.MonitorKey, from, to time.Time) ([]domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Incident
	for _, inc := range m.incidents[key] {
		if !inc.StartedAt.Before(to) {
			continue
		}
		if inc.ResolvedAt != nil && !inc.ResolvedAt.After(from) {
			continue
		}
		out = append(out, copyIncident(inc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// OpenIncidents counts unresolved incidents for a monitor.
func (m *Store) OpenIncidents(key domain.MonitorKey) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, inc := range m.incidents[key] {
		if inc.Open() {
			n++
		}
	}
	return n
}

func copyIncident(inc *domain.Incident) domain.Incident {
	cp := *inc
	cp.Updates = append([]domain.IncidentUpdate(nil), inc.Updates...)
	if inc.ResolvedAt != nil {
		t := *inc.ResolvedAt
		cp.ResolvedAt = &t
	}
	return cp
}

// ---- SloStore ----

func (m *Store) ListSloTargets(ctx context.Context, team domain.TeamID) ([]domain.SloTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.SloTarget
	for _, t := range m.slos {
		if t.Team == team {
			out = append(out, t)
		}
	}
	return out, nil
}

// ---- CheckinStore ----

func (m *Store) RecordCheckin(ctx context.Context, key domain.MonitorKey, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.checkins[key]; !ok || at.After(prev) {
		m.checkins[key] = at
	}
	return nil
}

func (m *Store) LastCheckin(ctx context.Context, key domain.MonitorKey) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkins[key], nil
}

// ---- DatapointStore ----

func (m *Store) AppendDatapoints(ctx context.Context, points []domain.Datapoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datapoints = append(m.datapoints, points...)
	if over := len(m.datapoints) - maxDatapoints; over > 0 {
		m.datapoints = append(m.datapoints[:0:0], m.datapoints[over:]...)
	}
	return nil
}

// Datapoints returns a copy of the retained datapoints, oldest first.
func (m *Store) Datapoints() []domain.Datapoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Datapoint(nil), m.datapoints...)
}

// ---- MarkerStore ----

func (m *Store) GetMarker(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	mk, ok := m.markers[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !m.now().Before(mk.expiresAt) {
		m.mu.Lock()
		delete(m.markers, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return mk.value, true, nil
}

func (m *Store) PutMarker(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putMarker(key, value, ttl)
	return nil
}

func (m *Store) ClaimMarker(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mk, ok := m.markers[key]; ok && m.now().Before(mk.expiresAt) {
		return false, nil
	}
	m.putMarker(key, value, ttl)
	return true, nil
}

func (m *Store) DeleteMarker(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.markers, key)
	m.mu.Unlock()
	return nil
}

// putMarker needs m.mu held.
func (m *Store) putMarker(key, value string, ttl time.Duration) {
	now := m.now()
	m.markers[key] = marker{value: value, expiresAt: now.Add(ttl)}
	if len(m.markers)%1024 == 0 {
		for k, mk := range m.markers {
			if !now.Before(mk.expiresAt) {
				delete(m.markers, k)
			}
		}
	}
}
