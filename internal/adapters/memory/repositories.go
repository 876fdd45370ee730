// Package memory provides mutex-guarded in-memory implementations of the
// service's storage ports. They back unit tests and infrastructure-free local
// runs while keeping the same conditional-update contracts as the postgres
// adapters.
package memory

func NewRepositories() *Repositories {
	return &Repositories{
		Offerings:   NewOfferingRepository(),
		Ledger:      NewShareLedgerStore(),
		Requests:    NewInvestmentRequestRepository(),
		Deletions:   NewDeletionRepository(),
		Idempotency: NewIdempotencyRepository(),
		Outbox:      NewOutboxRepository(),
		Catalog:     NewCatalogStore(),
	}
}

type Repositories struct {
	Offerings   *OfferingRepository
	Ledger      *ShareLedgerStore
	Requests    *InvestmentRequestRepository
	Deletions   *DeletionRepository
	Idempotency *IdempotencyRepository
	Outbox      *OutboxRepository
	Catalog     *CatalogStore
}
