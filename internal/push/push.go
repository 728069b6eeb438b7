// Package push handles inbound reports from heartbeat, webhook and manual
// monitors.
package push

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
	"github.com/hamed0406/uptimeguard/internal/scheduler"
)

var (
	ErrUnauthorized = errors.New("invalid push token")
	ErrNotPushable  = errors.New("monitor does not accept push reports")
)

// Report is the optional body of a push request.
type Report struct {
	Status *domain.ReportedStatus `json:"status,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

type Service struct {
	Monitors repo.MonitorStore
	Checkins repo.CheckinStore
	Runner   scheduler.Processor
	Logger   *zap.Logger
	Now      func() time.Time
}

// VerifyPushToken compares token against the monitor's stored hash. Hashes
// are bcrypt; a non-bcrypt hash is compared as a literal in constant time.
func (s *Service) VerifyPushToken(ctx context.Context, id domain.MonitorID, token string) bool {
	if token == "" {
		return false
	}
	m, err := s.Monitors.FindMonitor(ctx, id)
	if err != nil || m.PushTokenHash == "" {
		return false
	}
	return checkToken(m.PushTokenHash, token)
}

func checkToken(hash, token string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(token)) == 1
}

// HashToken produces the value stored in push_token_hash.
func HashToken(token string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Accept records a verified report. Heartbeats only record a check-in;
// webhook and manual monitors are forwarded to the runner with the reported
// status.
func (s *Service) Accept(ctx context.Context, id domain.MonitorID, token string, rep Report) (scheduler.RunOutcome, error) {
	if !s.VerifyPushToken(ctx, id, token) {
		return scheduler.RunOutcome{}, ErrUnauthorized
	}
	m, err := s.Monitors.FindMonitor(ctx, id)
	if err != nil {
		return scheduler.RunOutcome{}, err
	}
	log := s.Logger.With(zap.String("team_id", string(m.Team)), zap.String("monitor_id", string(m.ID)))

	switch {
	case m.Type == domain.TypeHeartbeat:
		now := s.now()
		if err := s.Checkins.RecordCheckin(ctx, m.Key(), now); err != nil {
			return scheduler.RunOutcome{}, fmt.Errorf("record checkin: %w", err)
		}
		log.Debug("push_checkin")
		return scheduler.RunOutcome{Skipped: true}, nil

	case m.Type.Pushed():
		job := m.Job(uuid.NewString())
		job.ReportedStatus = rep.Status
		job.ReportedReason = rep.Reason
		if job.ReportedStatus == nil && m.Type == domain.TypeWebhook {
			// a bare ping on a webhook monitor means up
			up := domain.ReportedUp
			job.ReportedStatus = &up
		}
		return s.Runner.Process(ctx, job)
	}
	return scheduler.RunOutcome{}, ErrNotPushable
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
