package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/push"
	"github.com/hamed0406/uptimeguard/internal/report"
)

const (
	maxBodyBytes  = 64 << 10
	defaultWindow = 24 * time.Hour
)

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	var job domain.CheckJob
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&job); err != nil {
		writeErr(w, http.StatusBadRequest, "bad payload")
		return
	}
	out, err := s.Runner.Process(r.Context(), job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Logger.Info("job_processed",
		zap.String("job_id", job.JobID),
		zap.String("monitor_id", string(job.MonitorID)),
		zap.String("status", string(out.Result.Status)),
	)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	id := domain.MonitorID(chi.URLParam(r, "monitorID"))
	token := r.Header.Get("X-Push-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	var rep push.Report
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad payload")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &rep); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	out, err := s.Push.Accept(r.Context(), id, token, rep)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (s *Server) handleMonitorAvailability(w http.ResponseWriter, r *http.Request) {
	id := domain.MonitorID(chi.URLParam(r, "monitorID"))
	q, err := s.parseQuery(r, true)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	q.ID = string(id)
	if q.Team == "" {
		m, err := s.Monitors.FindMonitor(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		q.Team = m.Team
	}
	a, err := s.Reports.Monitor(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleComponentAvailability(w http.ResponseWriter, r *http.Request) {
	q, err := s.parseQuery(r, false)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Team == "" {
		writeErr(w, http.StatusBadRequest, "team is required")
		return
	}
	q.ID = chi.URLParam(r, "componentID")
	a, err := s.Reports.Component(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	team := domain.TeamID(chi.URLParam(r, "teamID"))
	m, err := s.Reports.MonthlyReport(r.Context(), team, chi.URLParam(r, "month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// parseQuery reads team, from, to, bucket and (optionally) target. Missing
// bounds default to the last 24 hours.
func (s *Server) parseQuery(r *http.Request, allowTarget bool) (report.Query, error) {
	v := r.URL.Query()
	q := report.Query{Team: domain.TeamID(v.Get("team"))}

	to := s.now().Unix()
	if raw := v.Get("to"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return q, fmt.Errorf("to: %w", err)
		}
		to = t
	}
	from := to - int64(defaultWindow/time.Second)
	if raw := v.Get("from"); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return q, fmt.Errorf("from: %w", err)
		}
		from = t
	}
	q.From, q.To = from, to

	if raw := v.Get("bucket"); raw != "" {
		b, err := availability.ParseBucketSize(raw)
		if err != nil {
			return q, err
		}
		q.Bucket = b
	}
	if raw := v.Get("target"); raw != "" && allowTarget {
		ppm, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ppm < 0 || ppm > 1_000_000 {
			return q, errors.New("target must be ppm in [0, 1000000]")
		}
		q.TargetPPM = &ppm
	}
	return q, nil
}

// parseTime accepts unix seconds or RFC 3339.
func parseTime(raw string) (int64, error) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return t.Unix(), nil
}
