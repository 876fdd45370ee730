package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
)

// MemoryDomainPublisher records published envelopes for tests and local runs.
type MemoryDomainPublisher struct {
	mu        sync.Mutex
	Published []contracts.EventEnvelope
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher { return &MemoryDomainPublisher{} }

func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, envelope)
	return nil
}

type MemoryAnalyticsPublisher struct {
	mu        sync.Mutex
	Published []contracts.EventEnvelope
}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher { return &MemoryAnalyticsPublisher{} }

func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, envelope)
	return nil
}

// LoggingDLQPublisher is the fallback dead-letter sink: it keeps the record
// in the logs for manual replay instead of dropping it.
type LoggingDLQPublisher struct {
	logger *slog.Logger
}

func NewLoggingDLQPublisher(logger *slog.Logger) *LoggingDLQPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingDLQPublisher{logger: logger}
}

func (p *LoggingDLQPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.logger.ErrorContext(ctx, "event dead-lettered",
		"module", "events",
		"layer", "adapter",
		"operation", "publish_dlq",
		"outcome", "failure",
		"event_id", record.OriginalEvent.EventID,
		"event_type", record.OriginalEvent.EventType,
		"error_summary", record.ErrorSummary,
	)
	return nil
}
