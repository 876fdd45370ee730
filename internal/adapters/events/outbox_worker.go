package events

import (
	"context"
	"log/slog"
	"time"
)

// Flusher is the slice of the application service the worker needs.
type Flusher interface {
	FlushOutbox(ctx context.Context) error
}

// OutboxWorker drains the transactional outbox on a fixed interval. It
// separates committed state changes from broker delivery so a broker outage
// never blocks the write path.
type OutboxWorker struct {
	logger   *slog.Logger
	flusher  Flusher
	interval time.Duration
}

func NewOutboxWorker(logger *slog.Logger, flusher Flusher, interval time.Duration) *OutboxWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{logger: logger, flusher: flusher, interval: interval}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.flusher.FlushOutbox(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox flush iteration failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
