package push

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
	"github.com/hamed0406/uptimeguard/internal/scheduler"
)

type recordingRunner struct {
	jobs []domain.CheckJob
}

func (r *recordingRunner) Process(ctx context.Context, job domain.CheckJob) (scheduler.RunOutcome, error) {
	r.jobs = append(r.jobs, job)
	return scheduler.RunOutcome{JobID: job.JobID}, nil
}

func newService(t *testing.T) (*Service, *memory.Store, *recordingRunner) {
	t.Helper()
	hash, err := HashToken("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	st := memory.New()
	st.AddMonitor(&domain.Monitor{ID: "beat", Team: "t1", Type: domain.TypeHeartbeat, PushTokenHash: hash})
	st.AddMonitor(&domain.Monitor{ID: "hook", Team: "t1", Type: domain.TypeWebhook, PushTokenHash: hash})
	st.AddMonitor(&domain.Monitor{ID: "man", Team: "t1", Type: domain.TypeManual, PushTokenHash: "plain-token"})
	st.AddMonitor(&domain.Monitor{ID: "web", Team: "t1", Type: domain.TypeHTTP, PushTokenHash: hash})
	st.AddMonitor(&domain.Monitor{ID: "nohash", Team: "t1", Type: domain.TypeWebhook})

	rr := &recordingRunner{}
	s := &Service{Monitors: st, Checkins: st, Runner: rr, Logger: zap.NewNop(),
		Now: func() time.Time { return time.Unix(5000, 0) }}
	return s, st, rr
}

func TestVerifyPushToken(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	cases := []struct {
		id    domain.MonitorID
		token string
		want  bool
	}{
		{"beat", "s3cret", true},
		{"beat", "wrong", false},
		{"beat", "", false},
		{"man", "plain-token", true},
		{"man", "plain-tokeN", false},
		{"nohash", "anything", false},
		{"missing", "s3cret", false},
	}
	for _, tc := range cases {
		if got := s.VerifyPushToken(ctx, tc.id, tc.token); got != tc.want {
			t.Fatalf("%s/%q: got %v want %v", tc.id, tc.token, got, tc.want)
		}
	}
}

func TestAccept_HeartbeatRecordsCheckin(t *testing.T) {
	s, st, rr := newService(t)
	ctx := context.Background()
	if _, err := s.Accept(ctx, "beat", "s3cret", Report{}); err != nil {
		t.Fatal(err)
	}
	last, _ := st.LastCheckin(ctx, domain.MonitorKey{Team: "t1", Monitor: "beat"})
	if last.Unix() != 5000 {
		t.Fatalf("check-in not recorded: %v", last)
	}
	if len(rr.jobs) != 0 {
		t.Fatal("heartbeat must not forward a job")
	}
}

func TestAccept_WebhookForwardsStatus(t *testing.T) {
	s, _, rr := newService(t)
	down := domain.ReportedDown
	if _, err := s.Accept(context.Background(), "hook", "s3cret", Report{Status: &down, Reason: "queue stuck"}); err != nil {
		t.Fatal(err)
	}
	if len(rr.jobs) != 1 {
		t.Fatalf("want one job, got %d", len(rr.jobs))
	}
	j := rr.jobs[0]
	if j.ReportedStatus == nil || *j.ReportedStatus != down || j.ReportedReason != "queue stuck" || j.JobID == "" {
		t.Fatalf("unexpected job %+v", j)
	}

	// bare ping means up
	_, _ = s.Accept(context.Background(), "hook", "s3cret", Report{})
	if j := rr.jobs[1]; j.ReportedStatus == nil || *j.ReportedStatus != domain.ReportedUp {
		t.Fatalf("bare ping should report up, got %+v", j)
	}
}

func TestAccept_ManualWithoutStatusLeftToRunner(t *testing.T) {
	s, _, rr := newService(t)
	_, _ = s.Accept(context.Background(), "man", "plain-token", Report{})
	if len(rr.jobs) != 1 || rr.jobs[0].ReportedStatus != nil {
		t.Fatalf("manual report without status should pass through unset: %+v", rr.jobs)
	}
}

func TestAccept_Errors(t *testing.T) {
	s, _, _ := newService(t)
	if _, err := s.Accept(context.Background(), "hook", "nope", Report{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if _, err := s.Accept(context.Background(), "web", "s3cret", Report{}); !errors.Is(err, ErrNotPushable) {
		t.Fatalf("want ErrNotPushable, got %v", err)
	}
}
