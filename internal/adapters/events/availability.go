package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

// OutboxAvailabilityNotifier turns ledger counter changes into
// offering.availability_changed envelopes in the outbox. The event is
// analytics-only; a failed enqueue is logged and dropped, never surfaced to
// the ledger caller.
type OutboxAvailabilityNotifier struct {
	logger        *slog.Logger
	outbox        ports.OutboxRepository
	sourceService string
}

func NewOutboxAvailabilityNotifier(logger *slog.Logger, outbox ports.OutboxRepository, sourceService string) *OutboxAvailabilityNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxAvailabilityNotifier{logger: logger, outbox: outbox, sourceService: sourceService}
}

func (n *OutboxAvailabilityNotifier) AvailabilityChanged(ctx context.Context, change domain.AvailabilityChange) {
	if n.outbox == nil {
		return
	}
	payload, err := json.Marshal(contracts.AvailabilityChangedPayload{
		OfferingID:      change.OfferingID,
		TotalShares:     change.TotalShares,
		AvailableShares: change.AvailableShares,
		ChangedAt:       change.ChangedAt.Format(time.RFC3339),
	})
	if err != nil {
		n.logger.WarnContext(ctx, "availability payload marshal failed",
			"module", "events.availability",
			"layer", "adapter",
			"operation", "availability_changed",
			"outcome", "failure",
			"offering_id", change.OfferingID,
			"error", err,
		)
		return
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        domain.EventOfferingAvailabilityChanged,
		EventClass:       domain.CanonicalEventClass(domain.EventOfferingAvailabilityChanged),
		OccurredAt:       change.ChangedAt,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(domain.EventOfferingAvailabilityChanged),
		PartitionKey:     change.OfferingID,
		SourceService:    n.sourceService,
		TraceID:          uuid.NewString(),
		SchemaVersion:    "v1",
		Data:             payload,
	}
	if err := n.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: env.EventClass,
		Envelope:   env,
		CreatedAt:  change.ChangedAt,
	}); err != nil {
		n.logger.WarnContext(ctx, "availability event enqueue failed",
			"module", "events.availability",
			"layer", "adapter",
			"operation", "availability_changed",
			"outcome", "failure",
			"offering_id", change.OfferingID,
			"error", err,
		)
	}
}
