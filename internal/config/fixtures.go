package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// Fixtures is the declarative definition set loaded from FIXTURES_FILE.
type Fixtures struct {
	Monitors     []domain.Monitor
	Components   []domain.Component
	Suppressions []domain.Suppression
	SloTargets   []domain.SloTarget
}

type fixtureFile struct {
	Monitors     []fixtureMonitor     `yaml:"monitors"`
	Components   []domain.Component   `yaml:"components"`
	Suppressions []domain.Suppression `yaml:"suppressions"`
	SloTargets   []domain.SloTarget   `yaml:"slo_targets"`
}

type fixtureMonitor struct {
	domain.Monitor `yaml:",inline"`
	Enabled        *bool          `yaml:"enabled"`
	Config         map[string]any `yaml:"config"`
}

// LoadFixtures reads and validates a fixtures file. Monitors are enabled
// unless they say otherwise.
func LoadFixtures(path string) (*Fixtures, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(b)
}

func ParseFixtures(b []byte) (*Fixtures, error) {
	var raw fixtureFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	out := &Fixtures{Components: raw.Components, Suppressions: raw.Suppressions, SloTargets: raw.SloTargets}
	seen := map[domain.MonitorKey]bool{}
	for i, fm := range raw.Monitors {
		m := fm.Monitor
		if m.ID == "" || m.Team == "" {
			return nil, fmt.Errorf("monitor #%d: id and team are required", i)
		}
		if _, err := domain.ParseMonitorType(string(m.Type)); err != nil {
			return nil, fmt.Errorf("monitor %s: %w", m.ID, err)
		}
		if seen[m.Key()] {
			return nil, fmt.Errorf("monitor %s: duplicate id", m.ID)
		}
		seen[m.Key()] = true
		m.Enabled = fm.Enabled == nil || *fm.Enabled
		if len(fm.Config) > 0 {
			cfg, err := json.Marshal(fm.Config)
			if err != nil {
				return nil, fmt.Errorf("monitor %s config: %w", m.ID, err)
			}
			m.Config = cfg
		}
		out.Monitors = append(out.Monitors, m)
	}
	for i := range out.Suppressions {
		s := &out.Suppressions[i]
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("suppression %s: %w", s.ID, err)
		}
	}
	for _, t := range out.SloTargets {
		if t.TargetPPM < 0 || t.TargetPPM > 1_000_000 {
			return nil, fmt.Errorf("slo target %s/%s: target_ppm out of range", t.ScopeType, t.ScopeID)
		}
	}
	return out, nil
}
