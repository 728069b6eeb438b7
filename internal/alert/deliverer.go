package alert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/metrics"
	"github.com/hamed0406/uptimeguard/internal/notify"
)

type DelivererConfig struct {
	MaxAttempts int
	Backoff     time.Duration
	SendTimeout time.Duration
}

// Deliverer drains a MemQueue into a notifier, retrying failed sends.
type Deliverer struct {
	queue    *MemQueue
	notifier notify.Notifier
	cfg      DelivererConfig
	log      *zap.Logger
}

func NewDeliverer(queue *MemQueue, notifier notify.Notifier, cfg DelivererConfig, log *zap.Logger) *Deliverer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Deliverer{queue: queue, notifier: notifier, cfg: cfg, log: log}
}

func (d *Deliverer) Run(ctx context.Context) error {
	for {
		del, err := d.queue.Next(ctx)
		if err != nil {
			return err
		}
		d.deliver(ctx, del)
	}
}

func (d *Deliverer) deliver(ctx context.Context, del Delivery) {
	del.Attempts++
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err := d.notifier.Notify(sendCtx, del.Job)
	cancel()
	if err == nil {
		metrics.AlertDeliveries.WithLabelValues("sent").Inc()
		return
	}

	log := d.log.With(
		zap.String("alert_id", del.Job.AlertID),
		zap.String("monitor_id", string(del.Job.MonitorID)),
		zap.Int("attempts", del.Attempts),
		zap.Error(err),
	)
	if del.Attempts >= d.cfg.MaxAttempts {
		metrics.AlertDeliveries.WithLabelValues("dropped").Inc()
		log.Error("alert_delivery_dropped")
		return
	}
	metrics.AlertDeliveries.WithLabelValues("retry").Inc()
	log.Warn("alert_delivery_retry")

	// back off in the background so other alerts keep flowing
	go func() {
		t := time.NewTimer(d.cfg.Backoff * time.Duration(del.Attempts))
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := d.queue.Requeue(ctx, del); err != nil {
			log.Warn("alert_requeue_failed", zap.NamedError("requeue_error", err))
		}
	}()
}
