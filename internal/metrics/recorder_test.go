package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

type memPoints struct {
	mu     sync.Mutex
	points []domain.Datapoint
	err    error
}

func (m *memPoints) AppendDatapoints(ctx context.Context, points []domain.Datapoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.points = append(m.points, points...)
	return nil
}

func (m *memPoints) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points)
}

func TestRecorder_FlushesOnBatchAndShutdown(t *testing.T) {
	store := &memPoints{}
	r := NewRecorder(store, zap.NewNop(), 16, 2, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	r.Record(domain.Datapoint{MonitorID: "a"})
	r.Record(domain.Datapoint{MonitorID: "b"})

	deadline := time.Now().Add(2 * time.Second)
	for store.len() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.len() != 2 {
		t.Fatalf("batch not flushed, have %d", store.len())
	}

	r.Record(domain.Datapoint{MonitorID: "c"})
	cancel()
	<-r.Done()
	if store.len() != 3 {
		t.Fatalf("shutdown should drain, have %d", store.len())
	}
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	r := NewRecorder(&memPoints{}, zap.NewNop(), 1, 10, time.Hour)
	done := make(chan struct{})
	go func() {
		r.Record(domain.Datapoint{MonitorID: "a"})
		r.Record(domain.Datapoint{MonitorID: "b"})
		r.Record(domain.Datapoint{MonitorID: "c"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	if len(r.ch) != 1 {
		t.Fatalf("want one buffered point, got %d", len(r.ch))
	}
}

func TestRecorder_StoreErrorIsNotFatal(t *testing.T) {
	store := &memPoints{err: errors.New("disk full")}
	r := NewRecorder(store, zap.NewNop(), 4, 1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	r.Record(domain.Datapoint{MonitorID: "a"})
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop")
	}
}
