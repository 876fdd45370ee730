package application

import (
	"log/slog"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ledger"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

type Config struct {
	ServiceName          string
	IdempotencyTTL       time.Duration
	OutboxFlushBatchSize int
}

// Actor is the already-verified caller identity supplied by the upstream
// identity service. SubjectID ownership, not Role, is what gates farmer and
// investor operations; the admin credential is verified separately.
type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

type CreateOfferingInput struct {
	AssetType     string
	AssetKind     string
	AssetDetails  string
	Region        string
	Purpose       string
	PricePerShare float64
	TotalShares   int
}

type CreateRequestInput struct {
	OfferingID string
	Shares     int
}

type ForceCancelInput struct {
	RequestID string
	AdminCode string
	Reason    string
}

type OpenDeletionInput struct {
	OfferingID string
	Reason     string
}

type Service struct {
	cfg         Config
	offerings   ports.OfferingRepository
	requests    ports.InvestmentRequestRepository
	deletions   ports.DeletionRepository
	idempotency ports.IdempotencyRepository
	outbox      ports.OutboxRepository
	catalog     ports.CatalogStore
	ledger      *ledger.Ledger

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher

	payments ports.PaymentGateway
	admin    ports.AdminVerifier

	logger *slog.Logger
	nowFn  func() time.Time
}

type Dependencies struct {
	Config      Config
	Offerings   ports.OfferingRepository
	Requests    ports.InvestmentRequestRepository
	Deletions   ports.DeletionRepository
	Idempotency ports.IdempotencyRepository
	Outbox      ports.OutboxRepository
	Catalog     ports.CatalogStore
	Ledger      *ledger.Ledger

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher

	Payments ports.PaymentGateway
	Admin    ports.AdminVerifier

	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "farm-invest-core"
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          cfg,
		offerings:    deps.Offerings,
		requests:     deps.Requests,
		deletions:    deps.Deletions,
		idempotency:  deps.Idempotency,
		outbox:       deps.Outbox,
		catalog:      deps.Catalog,
		ledger:       deps.Ledger,
		domainEvents: deps.DomainEvents,
		analytics:    deps.Analytics,
		dlq:          deps.DLQ,
		payments:     deps.Payments,
		admin:        deps.Admin,
		logger:       logger,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}
