package ports

import (
	"context"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type OfferingRepository interface {
	Create(ctx context.Context, row domain.Offering) error
	GetByID(ctx context.Context, offeringID string) (domain.Offering, error)
	// UpdateStatus applies the transition with compare-and-swap semantics:
	// the update only lands when the stored status equals fromStatus.
	// Returns domain.ErrNotFound for unknown offerings and
	// domain.ErrInvalidTransition when the precondition fails.
	UpdateStatus(ctx context.Context, offeringID, fromStatus, toStatus string, at time.Time) error
	ListByFarmer(ctx context.Context, farmerID string) ([]domain.Offering, error)
}

// ShareLedgerStore holds the authoritative per-offering share counters.
// Every mutation is a single conditional update: implementations guarantee
// the counter never goes negative and never exceeds the total, failing with
// domain.ErrInsufficientShares (Reserve) or domain.ErrConflict (Release,
// Commit) instead of partially applying.
type ShareLedgerStore interface {
	Init(ctx context.Context, offeringID string, totalShares int, at time.Time) error
	Get(ctx context.Context, offeringID string) (domain.ShareCounter, error)
	// Reserve moves shares available -> reserved iff available >= shares.
	Reserve(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error)
	// Release moves shares reserved -> available.
	Release(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error)
	// Commit moves shares reserved -> allocated.
	Commit(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error)
	// ReleaseAllocated moves shares allocated -> available (admin force-cancel
	// of a paid or active request).
	ReleaseAllocated(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error)
}

type InvestmentRequestRepository interface {
	Create(ctx context.Context, row domain.InvestmentRequest) error
	GetByID(ctx context.Context, requestID string) (domain.InvestmentRequest, error)
	// UpdateStatus applies change iff the stored status is one of fromStatuses.
	// Returns domain.ErrNotFound for unknown requests and
	// domain.ErrInvalidTransition when the precondition fails.
	UpdateStatus(ctx context.Context, requestID string, fromStatuses []string, change domain.StatusChange) error
	ListByOffering(ctx context.Context, offeringID string) ([]domain.InvestmentRequest, error)
	ListByInvestor(ctx context.Context, investorID string) ([]domain.InvestmentRequest, error)
}

type DeletionRepository interface {
	// Create persists the round with its snapshot confirmations. For an open
	// round it fails with domain.ErrDeletionOpen when the offering already
	// has one.
	Create(ctx context.Context, row domain.DeletionRequest, confirmations []domain.DeletionConfirmation) error
	GetByID(ctx context.Context, deletionID string) (domain.DeletionRequest, error)
	GetOpenByOffering(ctx context.Context, offeringID string) (domain.DeletionRequest, error)
	ListConfirmations(ctx context.Context, deletionID string) ([]domain.DeletionConfirmation, error)
	// Confirm atomically records the investor's confirmation, counts the
	// round, and — iff every confirmation is now true — flips the round
	// open -> completed. Exactly one caller per round observes
	// CompletedRound=true. Confirming an already-confirmed row or a completed
	// round is a no-op success; a missing confirmation row returns
	// domain.ErrForbidden; an aborted round returns
	// domain.ErrInvalidTransition.
	Confirm(ctx context.Context, deletionID, investorID string, at time.Time) (domain.ConsensusState, error)
	// Abort flips open -> aborted and discards all confirmation rows.
	Abort(ctx context.Context, deletionID string, at time.Time) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	// Reserve claims the key, reclaiming a row whose expiry is at or before
	// the caller-supplied now. Implementations never consult the wall clock;
	// the caller owns the time base for both Get and Reserve.
	Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type CatalogStore interface {
	Upsert(ctx context.Context, listing domain.CatalogListing) error
	UpdateAvailability(ctx context.Context, offeringID string, availableShares int, at time.Time) error
	Remove(ctx context.Context, offeringID string) error
	List(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogListing, error)
}
