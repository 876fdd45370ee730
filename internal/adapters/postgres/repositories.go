package postgres

import (
	"gorm.io/gorm"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

type Repositories struct {
	Offerings   ports.OfferingRepository
	Ledger      ports.ShareLedgerStore
	Requests    ports.InvestmentRequestRepository
	Deletions   ports.DeletionRepository
	Outbox      ports.OutboxRepository
	Idempotency ports.IdempotencyRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Offerings:   &offeringRepository{db: db},
		Ledger:      &shareLedgerStore{db: db},
		Requests:    &investmentRequestRepository{db: db},
		Deletions:   &deletionRepository{db: db},
		Outbox:      &outboxRepository{db: db},
		Idempotency: &idempotencyRepository{db: db},
	}
}
