package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/events"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/gateway"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/memory"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/adapters/security"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ledger"
)

type failingDomainPublisher struct{ err error }

func (p *failingDomainPublisher) PublishDomain(context.Context, contracts.EventEnvelope) error {
	return p.err
}

type failingAnalyticsPublisher struct{ err error }

func (p *failingAnalyticsPublisher) PublishAnalytics(context.Context, contracts.EventEnvelope) error {
	return p.err
}

type recordingDLQ struct {
	mu      sync.Mutex
	records []contracts.DLQRecord
}

func (d *recordingDLQ) PublishDLQ(_ context.Context, record contracts.DLQRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, record)
	return nil
}

func TestFlushOutboxDeadLettersDomainFailures(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	brokerDown := errors.New("broker unreachable")
	dlq := &recordingDLQ{}
	svc := application.NewService(application.Dependencies{
		Offerings:    repos.Offerings,
		Requests:     repos.Requests,
		Deletions:    repos.Deletions,
		Idempotency:  repos.Idempotency,
		Outbox:       repos.Outbox,
		Catalog:      repos.Catalog,
		Ledger:       ledger.New(repos.Ledger, nil),
		DomainEvents: &failingDomainPublisher{err: brokerDown},
		DLQ:          dlq,
		Payments:     gateway.NewMemoryPaymentGateway(),
		Admin:        security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	if _, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	}); err != nil {
		t.Fatalf("create offering: %v", err)
	}

	if err := svc.FlushOutbox(ctx); !errors.Is(err, brokerDown) {
		t.Fatalf("expected the broker error surfaced, got %v", err)
	}
	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	if len(dlq.records) != 1 {
		t.Fatalf("expected one dead-lettered record, got %d", len(dlq.records))
	}
	if dlq.records[0].OriginalEvent.EventType != domain.EventOfferingPublished {
		t.Fatalf("unexpected dead-lettered event: %+v", dlq.records[0].OriginalEvent)
	}

	// The record is not consumed; a later flush can retry it.
	pending, err := repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed delivery must leave the record pending, got %d", len(pending))
	}
}

func TestFlushOutboxWithoutBrokerLeavesRecordsPending(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Offerings:   repos.Offerings,
		Requests:    repos.Requests,
		Deletions:   repos.Deletions,
		Idempotency: repos.Idempotency,
		Outbox:      repos.Outbox,
		Catalog:     repos.Catalog,
		Ledger:      ledger.New(repos.Ledger, nil),
		Payments:    gateway.NewMemoryPaymentGateway(),
		Admin:       security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	if _, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	}); err != nil {
		t.Fatalf("create offering: %v", err)
	}

	if err := svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("flush without broker must be a no-op, got %v", err)
	}
	pending, err := repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("records must stay pending without a broker, got %d", len(pending))
	}
}

func TestFlushOutboxDropsAnalyticsFailures(t *testing.T) {
	t.Parallel()

	repos := memory.NewRepositories()
	// The availability notifier enqueues analytics-class records whenever the
	// ledger moves shares.
	shareLedger := ledger.New(repos.Ledger, nil,
		events.NewOutboxAvailabilityNotifier(nil, repos.Outbox, "farm-invest-core"),
	)
	svc := application.NewService(application.Dependencies{
		Offerings:    repos.Offerings,
		Requests:     repos.Requests,
		Deletions:    repos.Deletions,
		Idempotency:  repos.Idempotency,
		Outbox:       repos.Outbox,
		Catalog:      repos.Catalog,
		Ledger:       shareLedger,
		DomainEvents: events.NewMemoryDomainPublisher(),
		Analytics:    &failingAnalyticsPublisher{err: errors.New("analytics sink down")},
		Payments:     gateway.NewMemoryPaymentGateway(),
		Admin:        security.NewStaticAdminVerifier(testAdminCode),
	})

	ctx := context.Background()
	view, err := svc.CreateOffering(ctx, actor("farmer-1"), application.CreateOfferingInput{
		AssetType:     "livestock",
		Region:        "krasnodar",
		PricePerShare: 100,
		TotalShares:   10,
	})
	if err != nil {
		t.Fatalf("create offering: %v", err)
	}
	if _, err := svc.CreateRequest(ctx, actor("investor-1"), application.CreateRequestInput{
		OfferingID: view.Offering.OfferingID,
		Shares:     2,
	}); err != nil {
		t.Fatalf("create request: %v", err)
	}

	// Analytics delivery is best effort: the failure neither aborts the flush
	// nor keeps the record pending.
	if err := svc.FlushOutbox(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	pending, err := repos.Outbox.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected an empty outbox after flush, got %d pending", len(pending))
	}
}
