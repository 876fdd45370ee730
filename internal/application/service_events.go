package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

// FlushOutbox publishes pending outbox records to their class broker. A
// domain-event delivery failure stops the flush and is dead-lettered;
// analytics failures are dropped.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil || s.domainEvents == nil {
		// Without a broker the records stay pending rather than being
		// consumed into nowhere.
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		now := s.nowFn()
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
				if s.dlq != nil {
					_ = s.dlq.PublishDLQ(ctx, contracts.DLQRecord{
						OriginalEvent: rec.Envelope,
						ErrorSummary:  err.Error(),
						RetryCount:    1,
						FirstSeenAt:   now,
						LastErrorAt:   now,
						SourceTopic:   rec.Envelope.EventType,
						DLQTopic:      s.cfg.ServiceName + ".dlq",
						TraceID:       rec.Envelope.TraceID,
					})
				}
				return err
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				_ = s.analytics.PublishAnalytics(ctx, rec.Envelope)
			}
		default:
			return fmt.Errorf("unsupported event class %q for %s", rec.EventClass, rec.Envelope.EventType)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrInvalidInput
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: env.EventClass,
		Envelope:   env,
		CreatedAt:  now,
	})
}

func (s *Service) enqueueOfferingPublished(ctx context.Context, offering domain.Offering, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventOfferingPublished, traceID, contracts.OfferingPublishedPayload{
		OfferingID:    offering.OfferingID,
		FarmerID:      offering.FarmerID,
		AssetType:     offering.AssetType,
		Region:        offering.Region,
		PricePerShare: offering.PricePerShare,
		TotalShares:   offering.TotalShares,
		PublishedAt:   now.Format(time.RFC3339),
	}, offering.OfferingID, now)
}

func (s *Service) enqueueOfferingRetired(ctx context.Context, offeringID, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventOfferingRetired, traceID, contracts.OfferingRetiredPayload{
		OfferingID: offeringID,
		RetiredAt:  now.Format(time.RFC3339),
	}, offeringID, now)
}

func (s *Service) enqueueRequestEvent(ctx context.Context, eventType string, request domain.InvestmentRequest, eventActor, reason, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, eventType, traceID, contracts.RequestEventPayload{
		RequestID:       request.RequestID,
		OfferingID:      request.OfferingID,
		InvestorID:      request.InvestorID,
		SharesRequested: request.SharesRequested,
		Amount:          request.Amount,
		Status:          request.Status,
		Actor:           eventActor,
		Reason:          reason,
		OccurredAt:      now.Format(time.RFC3339),
	}, request.RequestID, now)
}

func (s *Service) enqueueDeletionEvent(ctx context.Context, eventType string, deletion domain.DeletionRequest, investorID string, total, confirmed int, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, eventType, traceID, contracts.DeletionEventPayload{
		DeletionID: deletion.DeletionID,
		OfferingID: deletion.OfferingID,
		FarmerID:   deletion.FarmerID,
		InvestorID: investorID,
		Total:      total,
		Confirmed:  confirmed,
		OccurredAt: now.Format(time.RFC3339),
	}, deletion.OfferingID, now)
}

func (s *Service) enqueueDeletionConfirmed(ctx context.Context, deletion domain.DeletionRequest, investorID string, total, confirmed int, traceID string, now time.Time) error {
	return s.enqueueDeletionEvent(ctx, domain.EventDeletionConfirmed, deletion, investorID, total, confirmed, traceID, now)
}
