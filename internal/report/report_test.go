package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
	"github.com/hamed0406/uptimeguard/internal/suppression"
)

// 2026-02-01T00:00:00Z
const feb = int64(1769904000)

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func addIncident(t *testing.T, st *memory.Store, key domain.MonitorKey, start, end int64) {
	t.Helper()
	ctx := context.Background()
	err := st.WithinTx(ctx, key, func(tx repo.StateTx) error {
		inc := &domain.Incident{ID: key.String() + at(start).String(), Team: key.Team, MonitorID: key.Monitor, Status: domain.IncidentInvestigating, StartedAt: at(start)}
		if err := tx.CreateIncident(ctx, inc); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if end == 0 {
		return
	}
	err = st.WithinTx(ctx, key, func(tx repo.StateTx) error {
		open, err := tx.OpenIncident(ctx)
		if err != nil || open == nil {
			return errors.New("no open incident")
		}
		open.Resolve(at(end))
		return tx.ResolveIncident(ctx, open)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func newService(st *memory.Store, now int64) *Service {
	return &Service{
		Monitors:    st,
		Components:  st,
		Incidents:   st,
		Slos:        st,
		Maintenance: suppression.NewResolver(st, st, st),
		Now:         func() time.Time { return at(now) },
	}
}

func seed() *memory.Store {
	st := memory.New()
	st.AddMonitor(&domain.Monitor{ID: "api", Team: "t1", Name: "API", Type: domain.TypeHTTP})
	st.AddMonitor(&domain.Monitor{ID: "db", Team: "t1", Name: "DB", Type: domain.TypeTCP})
	st.AddComponent(&domain.Component{ID: "checkout", Team: "t1", Monitors: []domain.MonitorID{"api", "db"}})
	return st
}

func TestMonitor_SummaryWithMaintenanceAndSlo(t *testing.T) {
	st := seed()
	key := domain.MonitorKey{Team: "t1", Monitor: "api"}
	addIncident(t, st, key, feb+50, feb+80)
	end := at(feb + 60)
	st.AddSuppression(domain.Suppression{
		ID: "mw", Team: "t1", Kind: domain.KindMaintenance, StartsAt: at(feb + 40), EndsAt: &end,
		Scopes: []domain.SuppressionScope{{Type: domain.ScopeMonitor, ID: "api"}},
	})
	st.AddSloTarget(domain.SloTarget{Team: "t1", ScopeType: domain.SloTeam, TargetPPM: 900_000})

	svc := newService(st, feb+1000)
	got, err := svc.Monitor(context.Background(), Query{Team: "t1", ID: "api", From: feb, To: feb + 100})
	if err != nil {
		t.Fatal(err)
	}
	s := got.Summary
	if s.MaintenanceSeconds != 20 || s.EffectiveTotalSeconds != 80 || s.DowntimeSeconds != 20 || s.UptimePPM != 750_000 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.ErrorBudget == nil || s.ErrorBudget.TargetPPM != 900_000 || s.ErrorBudget.AllowedDowntimeSeconds != 8 {
		t.Fatalf("unexpected budget %+v", s.ErrorBudget)
	}
}

func TestMonitor_OpenIncidentRunsUntilNow(t *testing.T) {
	st := seed()
	addIncident(t, st, domain.MonitorKey{Team: "t1", Monitor: "db"}, feb+3600, 0)

	svc := newService(st, feb+5400)
	got, err := svc.Monitor(context.Background(), Query{Team: "t1", ID: "db", From: feb, To: feb + 7200, Bucket: availability.BucketHour})
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary.DowntimeSeconds != 1800 {
		t.Fatalf("want 1800s downtime, got %d", got.Summary.DowntimeSeconds)
	}
	if len(got.Buckets) != 2 || got.Buckets[0].DowntimeSeconds != 0 || got.Buckets[1].DowntimeSeconds != 1800 || got.Buckets[1].Incidents != 1 {
		t.Fatalf("unexpected buckets %+v", got.Buckets)
	}
	if got.Summary.ErrorBudget != nil {
		t.Fatal("no slo configured, budget should be omitted")
	}
}

func TestComponent_UnionOfMonitorIncidents(t *testing.T) {
	st := seed()
	addIncident(t, st, domain.MonitorKey{Team: "t1", Monitor: "api"}, feb+10, feb+40)
	addIncident(t, st, domain.MonitorKey{Team: "t1", Monitor: "db"}, feb+30, feb+60)
	st.AddSloTarget(domain.SloTarget{Team: "t1", ScopeType: domain.SloComponent, ScopeID: "checkout", TargetPPM: 500_000})

	svc := newService(st, feb+1000)
	got, err := svc.Component(context.Background(), Query{Team: "t1", ID: "checkout", From: feb, To: feb + 100})
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary.DowntimeSeconds != 50 {
		t.Fatalf("overlapping incidents must not double count, got %d", got.Summary.DowntimeSeconds)
	}
	if got.Summary.ErrorBudget == nil || got.Summary.ErrorBudget.TargetPPM != 500_000 {
		t.Fatalf("component slo not applied: %+v", got.Summary.ErrorBudget)
	}
}

func TestQueries_Errors(t *testing.T) {
	st := seed()
	svc := newService(st, feb)
	ctx := context.Background()

	if _, err := svc.Monitor(ctx, Query{Team: "t1", ID: "api", From: 10, To: 10}); !errors.Is(err, availability.ErrInvalidRange) {
		t.Fatalf("want ErrInvalidRange, got %v", err)
	}
	if _, err := svc.Monitor(ctx, Query{Team: "t1", ID: "nope", From: 0, To: 10}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := svc.Component(ctx, Query{Team: "t1", ID: "nope", From: 0, To: 10}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	svc.MaxBuckets = 24
	if _, err := svc.Monitor(ctx, Query{Team: "t1", ID: "api", From: feb, To: feb + 25*3600, Bucket: availability.BucketHour}); !errors.Is(err, availability.ErrTooManyBuckets) {
		t.Fatalf("want ErrTooManyBuckets, got %v", err)
	}
	if _, err := svc.MonthlyReport(ctx, "t1", "2026-13"); !errors.Is(err, availability.ErrInvalidMonth) {
		t.Fatalf("want ErrInvalidMonth, got %v", err)
	}
}

func TestMonthlyReport(t *testing.T) {
	st := seed()
	addIncident(t, st, domain.MonitorKey{Team: "t1", Monitor: "api"}, feb+100, feb+100+3600)
	st.AddSloTarget(domain.SloTarget{Team: "t1", ScopeType: domain.SloTeam, TargetPPM: 999_990})

	svc := newService(st, feb+40*86400)
	rep, err := svc.MonthlyReport(context.Background(), "t1", "2026-02")
	if err != nil {
		t.Fatal(err)
	}
	if rep.From != feb || rep.To != feb+28*86400 {
		t.Fatalf("unexpected range %d-%d", rep.From, rep.To)
	}
	if len(rep.Monitors) != 2 {
		t.Fatalf("want 2 monitors, got %d", len(rep.Monitors))
	}
	if rep.Monitors[0].MonitorID != "api" || rep.Monitors[0].Summary.DowntimeSeconds != 3600 {
		t.Fatalf("unexpected api summary %+v", rep.Monitors[0])
	}
	if len(rep.BudgetExhausted) != 1 || rep.BudgetExhausted[0] != "api" {
		t.Fatalf("want api over budget, got %v", rep.BudgetExhausted)
	}
}
