// Package probe runs one health check per invocation and normalizes the
// outcome to up or down. Nothing in here returns an error past Run: bad
// config, unparsable targets and transport failures all become a down
// result with a reason.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/metrics"
)

// MaxBodyBytes caps every response body read.
const MaxBodyBytes = 64 << 10

const DefaultDoHURL = "https://cloudflare-dns.com/dns-query"

// Prober is implemented by Executor and by test fakes.
type Prober interface {
	Run(ctx context.Context, job domain.CheckJob) domain.Result
}

// Sink receives one datapoint per run. Record must not block.
type Sink interface {
	Record(p domain.Datapoint)
}

// CheckinReader provides the last inbound heartbeat for a monitor.
type CheckinReader interface {
	LastCheckin(ctx context.Context, key domain.MonitorKey) (time.Time, error)
}

type Executor struct {
	Client        *http.Client
	Dialer        *net.Dialer
	DoHURL        string
	Checkins      CheckinReader
	Sink          Sink
	RetryAttempts int
	RetryBackoff  time.Duration
	Logger        *zap.Logger
	Now           func() time.Time
}

func NewExecutor(logger *zap.Logger, checkins CheckinReader, sink Sink) *Executor {
	return &Executor{
		// No client timeout: the run context carries the deadline.
		Client:        &http.Client{},
		Dialer:        &net.Dialer{},
		DoHURL:        DefaultDoHURL,
		Checkins:      checkins,
		Sink:          sink,
		RetryAttempts: 1,
		Logger:        logger,
		Now:           time.Now,
	}
}

// Run executes the job under a deadline derived from its timeout and
// records one datapoint.
func (e *Executor) Run(ctx context.Context, job domain.CheckJob) domain.Result {
	ctx, cancel := context.WithTimeout(ctx, job.Timeout())
	defer cancel()

	start := time.Now()
	res := e.run(ctx, job)
	if res.LatencyMS == 0 && !job.MonitorType.Passive() {
		res.LatencyMS = msSince(start)
	}

	e.record(job, res)
	metrics.ChecksTotal.WithLabelValues(string(job.MonitorType), string(res.Status)).Inc()
	if !job.MonitorType.Passive() {
		metrics.CheckLatency.WithLabelValues(string(job.MonitorType)).Observe(res.LatencyMS / 1000)
	}
	e.Logger.Debug("probe_run",
		zap.String("team_id", string(job.TeamID)),
		zap.String("monitor_id", string(job.MonitorID)),
		zap.String("type", string(job.MonitorType)),
		zap.String("status", string(res.Status)),
		zap.Float64("latency_ms", res.LatencyMS),
		zap.String("reason", res.Reason),
	)
	return res
}

func (e *Executor) run(ctx context.Context, job domain.CheckJob) domain.Result {
	spec, err := ParseSpec(job)
	if err != nil {
		return domain.Down(err.Error(), 0)
	}
	if job.MonitorType.Passive() {
		return spec.probe(ctx, e, job)
	}
	return e.withRetry(ctx, spec, job)
}

func (e *Executor) record(job domain.CheckJob, res domain.Result) {
	if e.Sink == nil {
		return
	}
	e.Sink.Record(domain.Datapoint{
		TeamID:    job.TeamID,
		MonitorID: job.MonitorID,
		Status:    res.Status,
		LatencyMS: res.LatencyMS,
		Timestamp: e.now().UTC(),
	})
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// reason turns a transport error into a down reason.
func reason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "Timeout"
	}
	return err.Error()
}
