package alert

import (
	"context"
	"errors"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/metrics"
)

var ErrQueueClosed = errors.New("alert queue closed")

// Delivery is a queued job plus how many times it was attempted.
type Delivery struct {
	Job      domain.AlertJob
	Attempts int
}

// MemQueue is an in-process bounded queue. Enqueue blocks while full until
// ctx is done.
type MemQueue struct {
	ch     chan Delivery
	closed chan struct{}
}

func NewMemQueue(size int) *MemQueue {
	if size <= 0 {
		size = 256
	}
	return &MemQueue{ch: make(chan Delivery, size), closed: make(chan struct{})}
}

func (q *MemQueue) Enqueue(ctx context.Context, job domain.AlertJob) error {
	return q.put(ctx, Delivery{Job: job})
}

func (q *MemQueue) put(ctx context.Context, d Delivery) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- d:
		metrics.AlertQueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until a delivery is available.
func (q *MemQueue) Next(ctx context.Context) (Delivery, error) {
	select {
	case d := <-q.ch:
		metrics.AlertQueueDepth.Set(float64(len(q.ch)))
		return d, nil
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

// Requeue puts a failed delivery back with its attempt count.
func (q *MemQueue) Requeue(ctx context.Context, d Delivery) error {
	return q.put(ctx, d)
}

func (q *MemQueue) Len() int { return len(q.ch) }

// Close stops new enqueues. Buffered deliveries can still be drained.
func (q *MemQueue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
}
