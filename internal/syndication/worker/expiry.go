// Package worker runs the consent expiry sweep on a ticker. Consents with a
// deadline in the past are flipped to expired and the affected platforms are
// notified to remove the content.
package worker

import (
	"context"
	"log/slog"
	"time"

	"taleweave/internal/syndication/metrics"
)

// ConsentExpirer is the sweep operation the worker drives.
type ConsentExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type Option func(*ExpiryWorker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *ExpiryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(w *ExpiryWorker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *ExpiryWorker) {
		w.metrics = m
	}
}

// ExpiryWorker periodically expires overdue consents.
type ExpiryWorker struct {
	expirer  ConsentExpirer
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(expirer ConsentExpirer, opts ...Option) *ExpiryWorker {
	w := &ExpiryWorker{
		expirer:  expirer,
		logger:   slog.Default(),
		interval: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the sweep loop until the context is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			expired, err := w.RunOnce(ctx)
			duration := time.Since(start)

			if err != nil {
				w.logger.Error("consent_expiry_sweep_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				continue
			}
			if expired > 0 {
				w.logger.Info("consent_expiry_sweep_completed",
					"consents_expired", expired,
					"duration_ms", duration.Milliseconds(),
				)
			}

		case <-ctx.Done():
			w.logger.Info("consent expiry worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single sweep. Logging is handled by the caller (Start).
func (w *ExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	if w.metrics != nil {
		w.metrics.ActiveSweeps.Set(1)
		defer w.metrics.ActiveSweeps.Set(0)
	}
	return w.expirer.ExpireDue(ctx, time.Now())
}
