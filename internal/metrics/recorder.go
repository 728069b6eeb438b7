package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/repo"
)

// Recorder buffers datapoints and flushes them to a store in batches.
// Record never blocks; a full buffer drops the point.
type Recorder struct {
	store    repo.DatapointStore
	log      *zap.Logger
	ch       chan domain.Datapoint
	batch    int
	interval time.Duration

	once sync.Once
	done chan struct{}
}

func NewRecorder(store repo.DatapointStore, log *zap.Logger, buffer, batch int, interval time.Duration) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	if batch <= 0 {
		batch = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Recorder{
		store:    store,
		log:      log,
		ch:       make(chan domain.Datapoint, buffer),
		batch:    batch,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (r *Recorder) Record(p domain.Datapoint) {
	select {
	case r.ch <- p:
	default:
		DatapointsDropped.Inc()
	}
}

// Run flushes until ctx is done, then drains what is buffered.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.once.Do(func() { close(r.done) })
	t := time.NewTicker(r.interval)
	defer t.Stop()

	buf := make([]domain.Datapoint, 0, r.batch)
	flush := func(ctx context.Context) {
		if len(buf) == 0 {
			return
		}
		if err := r.store.AppendDatapoints(ctx, buf); err != nil {
			r.log.Warn("datapoints_flush_failed", zap.Int("count", len(buf)), zap.Error(err))
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case p := <-r.ch:
					buf = append(buf, p)
				default:
					drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					flush(drainCtx)
					cancel()
					return ctx.Err()
				}
			}
		case p := <-r.ch:
			buf = append(buf, p)
			if len(buf) >= r.batch {
				flush(ctx)
			}
		case <-t.C:
			flush(ctx)
		}
	}
}

// Done is closed once Run has returned.
func (r *Recorder) Done() <-chan struct{} { return r.done }
