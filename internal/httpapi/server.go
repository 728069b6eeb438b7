package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	apimw "github.com/hamed0406/uptimeguard/internal/httpapi/middleware"
	"github.com/hamed0406/uptimeguard/internal/metrics"
	"github.com/hamed0406/uptimeguard/internal/push"
	"github.com/hamed0406/uptimeguard/internal/report"
	"github.com/hamed0406/uptimeguard/internal/repo"
	"github.com/hamed0406/uptimeguard/internal/scheduler"
)

type Pusher interface {
	Accept(ctx context.Context, id domain.MonitorID, token string, rep push.Report) (scheduler.RunOutcome, error)
}

type Reporter interface {
	Monitor(ctx context.Context, q report.Query) (*report.Availability, error)
	Component(ctx context.Context, q report.Query) (*report.Availability, error)
	MonthlyReport(ctx context.Context, team domain.TeamID, month string) (*report.Monthly, error)
}

type Server struct {
	Logger   *zap.Logger
	Monitors repo.MonitorStore
	Runner   scheduler.Processor
	Push     Pusher
	Reports  Reporter
	Now      func() time.Time
}

func NewServer(l *zap.Logger, monitors repo.MonitorStore, runner scheduler.Processor, p Pusher, reports Reporter) *Server {
	return &Server{Logger: l, Monitors: monitors, Runner: runner, Push: p, Reports: reports}
}

// Router wires the public, push and admin routes. Empty origins allow all.
func (s *Server) Router(keys apimw.Keys, origins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.instrument)
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key", "X-Push-Token"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// push endpoints authenticate with the monitor's own token
		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(publicRPM, publicBurst))
			r.Post("/push/{monitorID}", s.handlePush)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(publicRPM, publicBurst))
			r.Use(apimw.RequireAny(keys))
			r.Get("/monitors/{monitorID}/availability", s.handleMonitorAvailability)
			r.Get("/components/{componentID}/availability", s.handleComponentAvailability)
			r.Get("/teams/{teamID}/reports/{month}", s.handleMonthlyReport)
		})

		r.Group(func(r chi.Router) {
			r.Use(apimw.RateLimit(adminRPM, adminBurst))
			r.Use(apimw.RequireAdmin(keys))
			r.Post("/jobs", s.handleJob)
		})
	})

	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not found")
	case errors.Is(err, push.ErrUnauthorized):
		writeErr(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, push.ErrNotPushable),
		errors.Is(err, scheduler.ErrInvalidJob),
		errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, availability.ErrTooManyBuckets),
		errors.Is(err, availability.ErrInvalidMonth):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Error("http_handler_error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeErr(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
