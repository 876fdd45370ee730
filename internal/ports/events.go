package ports

import (
	"context"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}

type DomainPublisher interface {
	PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error
}

type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record contracts.DLQRecord) error
}

// AvailabilityNotifier observes successful ledger operations. Notifiers are
// off the critical path: implementations log their own failures and never
// surface them into the ledger.
type AvailabilityNotifier interface {
	AvailabilityChanged(ctx context.Context, change domain.AvailabilityChange)
}
