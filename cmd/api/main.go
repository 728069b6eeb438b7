package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeguard/internal/alert"
	"github.com/hamed0406/uptimeguard/internal/config"
	"github.com/hamed0406/uptimeguard/internal/httpapi"
	apimw "github.com/hamed0406/uptimeguard/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeguard/internal/incident"
	"github.com/hamed0406/uptimeguard/internal/logging"
	"github.com/hamed0406/uptimeguard/internal/metrics"
	"github.com/hamed0406/uptimeguard/internal/notify"
	"github.com/hamed0406/uptimeguard/internal/probe"
	"github.com/hamed0406/uptimeguard/internal/push"
	"github.com/hamed0406/uptimeguard/internal/report"
	"github.com/hamed0406/uptimeguard/internal/repo"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
	"github.com/hamed0406/uptimeguard/internal/repo/postgres"
	"github.com/hamed0406/uptimeguard/internal/scheduler"
	"github.com/hamed0406/uptimeguard/internal/suppression"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel, cfg.LogStdout)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api_exit", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	store, pg, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.FixturesFile != "" {
		fx, err := config.LoadFixtures(cfg.FixturesFile)
		if err != nil {
			return err
		}
		if err := seed(ctx, store, fx, logger); err != nil {
			return err
		}
		g.Go(func() error {
			return config.WatchFixtures(ctx, logger, cfg.FixturesFile, func(fx *config.Fixtures) {
				if err := seed(ctx, store, fx, logger); err != nil {
					logger.Warn("fixtures_apply_error", zap.Error(err))
				}
			})
		})
	}

	recorder := metrics.NewRecorder(store, logger, 1024, 100, 5*time.Second)
	g.Go(func() error { return recorder.Run(ctx) })

	exec := probe.NewExecutor(logger, store, recorder)
	exec.RetryAttempts = cfg.RetryAttempts
	exec.RetryBackoff = cfg.RetryBackoff
	if cfg.DoHURL != "" {
		exec.DoHURL = cfg.DoHURL
	}

	resolver := suppression.NewResolver(store, store, store)
	boundary := incident.NewBreaker(
		incident.NewSequencer(store, logger),
		incident.BreakerConfig{Timeout: cfg.BoundaryTimeout},
		logger,
	)

	queue := alert.NewMemQueue(256)
	dispatcher := alert.NewDispatcher(store, queue, cfg.AlertDedupTTL, logger)
	deliverer := alert.NewDeliverer(queue, notifiers(cfg), alert.DelivererConfig{}, logger)
	g.Go(func() error { return deliverer.Run(ctx) })

	runner := &scheduler.Runner{
		Logger:   logger,
		Monitors: store,
		States:   store,
		Prober:   exec,
		Resolver: resolver,
		Boundary: boundary,
		Alerts:   dispatcher,
	}
	sched := scheduler.NewScheduler(logger, store, store, runner, cfg.CheckInterval, cfg.MaxConcurrentChecks)
	g.Go(func() error {
		sched.Run(ctx)
		return nil
	})

	if pg != nil {
		g.Go(func() error { return pruneMarkers(ctx, pg, logger) })
	}

	pushSvc := &push.Service{Monitors: store, Checkins: store, Runner: runner, Logger: logger}
	reports := &report.Service{
		Monitors:    store,
		Components:  store,
		Incidents:   store,
		Slos:        store,
		Maintenance: resolver,
		MaxBuckets:  cfg.MaxBuckets,
	}

	api := httpapi.NewServer(logger, store, runner, pushSvc, reports)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("api_shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		queue.Close()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore returns postgres when DATABASE_URL is set, else the in-memory store.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, *postgres.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("store_memory")
		return memory.New(), nil, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		return nil, nil, multierr.Append(err, pg.Close())
	}
	logger.Info("store_postgres")
	return pg, pg, nil
}

// seed replaces the in-memory definitions. Postgres only takes monitors.
func seed(ctx context.Context, store repo.Store, fx *config.Fixtures, logger *zap.Logger) error {
	switch s := store.(type) {
	case *memory.Store:
		s.Replace(fx.Monitors, fx.Components, fx.Suppressions, fx.SloTargets)
	case *postgres.Store:
		var err error
		for i := range fx.Monitors {
			err = multierr.Append(err, s.UpsertMonitor(ctx, &fx.Monitors[i]))
		}
		if err != nil {
			return err
		}
	}
	logger.Info("fixtures_applied",
		zap.Int("monitors", len(fx.Monitors)),
		zap.Int("components", len(fx.Components)),
		zap.Int("suppressions", len(fx.Suppressions)),
		zap.Int("slo_targets", len(fx.SloTargets)),
	)
	return nil
}

func notifiers(cfg config.Config) notify.Notifier {
	var m notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		m = append(m, s)
	}
	if w := notify.NewWebhook(cfg.AlertWebhookURL); w != nil {
		m = append(m, w)
	}
	return m
}

func pruneMarkers(ctx context.Context, pg *postgres.Store, logger *zap.Logger) error {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := pg.PruneMarkers(ctx)
			if err != nil {
				logger.Warn("prune_markers_error", zap.Error(err))
				continue
			}
			logger.Debug("prune_markers", zap.Int64("deleted", n))
		}
	}
}
