package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo/memory"
)

type captureQueue struct {
	mu   sync.Mutex
	jobs []domain.AlertJob
	err  error
}

func (q *captureQueue) Enqueue(ctx context.Context, job domain.AlertJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

var testMonitor = &domain.Monitor{ID: "m1", Team: "t1", Name: "API", Target: "https://api.example.com"}

func TestDispatch_QueuesOnce(t *testing.T) {
	q := &captureQueue{}
	d := NewDispatcher(memory.New(), q, 0, zap.NewNop())
	req := Request{Direction: domain.DirectionDown, Monitor: testMonitor, Reason: "HTTP 500", IncidentID: "inc-1", JobID: "job-1"}

	sent, err := d.Dispatch(context.Background(), req)
	if err != nil || !sent {
		t.Fatalf("first dispatch: sent=%v err=%v", sent, err)
	}
	sent, err = d.Dispatch(context.Background(), req)
	if err != nil || sent {
		t.Fatalf("redelivered job must not dispatch again: sent=%v err=%v", sent, err)
	}
	if q.len() != 1 {
		t.Fatalf("want one queued job, got %d", q.len())
	}

	job := q.jobs[0]
	if job.TeamID != "t1" || job.MonitorID != "m1" || job.Status != domain.DirectionDown || job.IncidentID != "inc-1" || job.AlertID == "" {
		t.Fatalf("unexpected job %+v", job)
	}

	// the other direction of the same run has its own marker
	req.Direction = domain.DirectionUp
	if sent, _ := d.Dispatch(context.Background(), req); !sent {
		t.Fatal("up alert should dispatch")
	}
}

func TestDispatch_Silenced(t *testing.T) {
	q := &captureQueue{}
	markers := memory.New()
	d := NewDispatcher(markers, q, 0, zap.NewNop())
	sent, err := d.Dispatch(context.Background(), Request{Direction: domain.DirectionDown, Monitor: testMonitor, JobID: "job-1", Silenced: true})
	if err != nil || sent {
		t.Fatalf("silenced: sent=%v err=%v", sent, err)
	}
	if q.len() != 0 {
		t.Fatal("silenced alert queued")
	}
	if _, ok, _ := markers.GetMarker(context.Background(), MarkerKey("job-1", domain.DirectionDown)); ok {
		t.Fatal("silenced dispatch must not set a marker")
	}
}

func TestDispatch_ConcurrentSameJob(t *testing.T) {
	q := &captureQueue{}
	d := NewDispatcher(memory.New(), q, 0, zap.NewNop())
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sent, _ := d.Dispatch(context.Background(), Request{Direction: domain.DirectionDown, Monitor: testMonitor, JobID: "job-7"})
			if sent {
				mu.Lock()
				reports++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if q.len() != 1 {
		t.Fatalf("want one job, got %d", q.len())
	}
	if reports != 1 {
		t.Fatalf("only the caller that queued may report sent, got %d", reports)
	}
}

func TestDispatch_QueueErrorLeavesNoMarker(t *testing.T) {
	q := &captureQueue{err: errors.New("full")}
	markers := memory.New()
	d := NewDispatcher(markers, q, 0, zap.NewNop())
	req := Request{Direction: domain.DirectionDown, Monitor: testMonitor, JobID: "job-2"}
	if _, err := d.Dispatch(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
	q.err = nil
	if sent, err := d.Dispatch(context.Background(), req); err != nil || !sent {
		t.Fatalf("retry after failure should dispatch: sent=%v err=%v", sent, err)
	}
}

func TestDispatch_NoJobIDAlwaysQueues(t *testing.T) {
	q := &captureQueue{}
	d := NewDispatcher(memory.New(), q, 0, zap.NewNop())
	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(context.Background(), Request{Direction: domain.DirectionDown, Monitor: testMonitor}); err != nil {
			t.Fatal(err)
		}
	}
	if q.len() != 2 {
		t.Fatalf("want 2 jobs, got %d", q.len())
	}
}

type flakyNotifier struct {
	mu    sync.Mutex
	fails int
	sent  []domain.AlertJob
}

func (f *flakyNotifier) Notify(ctx context.Context, job domain.AlertJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("503")
	}
	f.sent = append(f.sent, job)
	return nil
}

func (f *flakyNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestDeliverer_RetriesUntilSent(t *testing.T) {
	q := NewMemQueue(8)
	n := &flakyNotifier{fails: 2}
	d := NewDeliverer(q, n, DelivererConfig{MaxAttempts: 5, Backoff: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	if err := q.Enqueue(ctx, domain.AlertJob{AlertID: "a1"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for n.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n.count() != 1 || n.sent[0].AlertID != "a1" {
		t.Fatalf("want a1 delivered once, got %+v", n.sent)
	}
}

func TestDeliverer_DropsAfterMaxAttempts(t *testing.T) {
	q := NewMemQueue(8)
	n := &flakyNotifier{fails: 100}
	d := NewDeliverer(q, n, DelivererConfig{MaxAttempts: 2, Backoff: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	_ = q.Enqueue(ctx, domain.AlertJob{AlertID: "a1"})
	time.Sleep(100 * time.Millisecond)

	n.mu.Lock()
	left := n.fails
	n.mu.Unlock()
	if left != 98 {
		t.Fatalf("want exactly 2 attempts, got %d", 100-left)
	}
	if q.Len() != 0 {
		t.Fatalf("dropped job still queued")
	}
}

func TestMemQueue_Closed(t *testing.T) {
	q := NewMemQueue(1)
	q.Close()
	q.Close()
	if err := q.Enqueue(context.Background(), domain.AlertJob{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("want ErrQueueClosed, got %v", err)
	}
}

func TestMemQueue_FullHonoursContext(t *testing.T) {
	q := NewMemQueue(1)
	_ = q.Enqueue(context.Background(), domain.AlertJob{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, domain.AlertJob{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline error, got %v", err)
	}
}
