package suppression

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
)

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func ptr(t time.Time) *time.Time { return &t }

func seed() *memory.Store {
	st := memory.New()
	st.AddMonitor(&domain.Monitor{ID: "api", Team: "t1", Type: domain.TypeHTTP, GroupID: "edge"})
	st.AddMonitor(&domain.Monitor{ID: "db", Team: "t1", Type: domain.TypeTCP})
	st.AddComponent(&domain.Component{ID: "checkout", Team: "t1", Monitors: []domain.MonitorID{"db"}})
	return st
}

func TestResolve_NoMatch(t *testing.T) {
	st := seed()
	r := NewResolver(st, st, st)
	got, err := r.Resolve(context.Background(), "t1", "api", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsMaintenance || got.IsSilenced || got.Matched != nil {
		t.Fatalf("expected no suppression, got %+v", got)
	}
}

func TestResolve_MatchesByMonitorGroupAndComponent(t *testing.T) {
	cases := []struct {
		name    string
		monitor domain.MonitorID
		scope   domain.SuppressionScope
	}{
		{"monitor", "api", domain.SuppressionScope{Type: domain.ScopeMonitor, ID: "api"}},
		{"group", "api", domain.SuppressionScope{Type: domain.ScopeMonitorGroup, ID: "edge"}},
		{"component", "db", domain.SuppressionScope{Type: domain.ScopeComponent, ID: "checkout"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := seed()
			st.AddSuppression(domain.Suppression{
				ID: "s1", Team: "t1", Kind: domain.KindSilence,
				StartsAt: at(500), Scopes: []domain.SuppressionScope{tc.scope},
			})
			r := NewResolver(st, st, st)
			got, err := r.Resolve(context.Background(), "t1", tc.monitor, 1000)
			if err != nil {
				t.Fatal(err)
			}
			if !got.IsSilenced || got.IsMaintenance || got.Matched == nil || got.Matched.ID != "s1" {
				t.Fatalf("expected silence match, got %+v", got)
			}
		})
	}
}

func TestResolve_MaintenanceWinsAndSilences(t *testing.T) {
	st := seed()
	scope := []domain.SuppressionScope{{Type: domain.ScopeMonitor, ID: "api"}}
	st.AddSuppression(domain.Suppression{ID: "quiet", Team: "t1", Kind: domain.KindSilence, StartsAt: at(0), Scopes: scope})
	st.AddSuppression(domain.Suppression{ID: "mw", Team: "t1", Kind: domain.KindMaintenance, StartsAt: at(900), EndsAt: ptr(at(1100)), Scopes: scope})

	r := NewResolver(st, st, st)
	got, err := r.Resolve(context.Background(), "t1", "api", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsMaintenance || !got.IsSilenced || got.Matched.ID != "mw" {
		t.Fatalf("expected maintenance match, got %+v", got)
	}

	// ends_at is exclusive
	got, err = r.Resolve(context.Background(), "t1", "api", 1100)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsMaintenance || !got.IsSilenced {
		t.Fatalf("expected only the silence at window end, got %+v", got)
	}
}

func TestResolve_OtherTeamIgnored(t *testing.T) {
	st := seed()
	st.AddSuppression(domain.Suppression{
		ID: "x", Team: "t2", Kind: domain.KindSilence, StartsAt: at(0),
		Scopes: []domain.SuppressionScope{{Type: domain.ScopeMonitor, ID: "api"}},
	})
	r := NewResolver(st, st, st)
	got, _ := r.Resolve(context.Background(), "t1", "api", 1000)
	if got.IsSilenced {
		t.Fatalf("suppression of another team matched: %+v", got)
	}
}

func TestMaintenanceIntervals(t *testing.T) {
	st := seed()
	scope := []domain.SuppressionScope{{Type: domain.ScopeMonitorGroup, ID: "edge"}}
	st.AddSuppression(domain.Suppression{ID: "a", Team: "t1", Kind: domain.KindMaintenance, StartsAt: at(100), EndsAt: ptr(at(300)), Scopes: scope})
	st.AddSuppression(domain.Suppression{ID: "b", Team: "t1", Kind: domain.KindMaintenance, StartsAt: at(250), EndsAt: ptr(at(400)), Scopes: scope})
	st.AddSuppression(domain.Suppression{ID: "c", Team: "t1", Kind: domain.KindMaintenance, StartsAt: at(900), EndsAt: ptr(at(2000)), Scopes: scope})
	st.AddSuppression(domain.Suppression{ID: "s", Team: "t1", Kind: domain.KindSilence, StartsAt: at(0), Scopes: scope})

	r := NewResolver(st, st, st)
	got, err := r.MaintenanceIntervals(context.Background(), "t1", "api", 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	want := []availability.Interval{{Start: 100, End: 400}, {Start: 900, End: 1000}}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %+v want %+v", got, want)
		}
	}
}

type failingSuppressions struct{}

func (failingSuppressions) ListSuppressions(context.Context, domain.TeamID, []domain.SuppressionScope, time.Time, time.Time) ([]domain.Suppression, error) {
	return nil, errors.New("boom")
}

func TestResolve_StoreError(t *testing.T) {
	st := seed()
	r := NewResolver(st, st, failingSuppressions{})
	if _, err := r.Resolve(context.Background(), "t1", "api", 1000); err == nil {
		t.Fatal("expected error")
	}
}
