// Package ledger owns the per-offering share inventory. It is the only
// component that mutates available_shares; everything else goes through
// Reserve, Release, Commit, or ReleaseCommitted.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

// Ledger wraps a conditional-update share counter store. Atomicity per
// offering is the store's contract (single-statement conditional updates in
// postgres, a mutex in the memory adapter); the ledger adds validation,
// reservation tokens, and availability notifications.
type Ledger struct {
	store     ports.ShareLedgerStore
	notifiers []ports.AvailabilityNotifier
	logger    *slog.Logger
	nowFn     func() time.Time
}

func New(store ports.ShareLedgerStore, logger *slog.Logger, notifiers ...ports.AvailabilityNotifier) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:     store,
		notifiers: notifiers,
		logger:    logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// InitOffering seeds the counter for a freshly published offering with the
// full share supply available.
func (l *Ledger) InitOffering(ctx context.Context, offeringID string, totalShares int) error {
	if offeringID == "" || totalShares < 1 {
		return domain.ErrInvalidInput
	}
	return l.store.Init(ctx, offeringID, totalShares, l.nowFn())
}

// Counter returns the current authoritative counter for an offering.
func (l *Ledger) Counter(ctx context.Context, offeringID string) (domain.ShareCounter, error) {
	if offeringID == "" {
		return domain.ShareCounter{}, domain.ErrInvalidInput
	}
	return l.store.Get(ctx, offeringID)
}

// Reserve places a temporary claim on shares. It fails closed with
// domain.ErrInsufficientShares and makes no partial reservation.
func (l *Ledger) Reserve(ctx context.Context, offeringID string, shares int) (domain.Reservation, error) {
	if offeringID == "" || shares < 1 {
		return domain.Reservation{}, domain.ErrInvalidInput
	}
	counter, err := l.store.Reserve(ctx, offeringID, shares, l.nowFn())
	if err != nil {
		return domain.Reservation{}, err
	}
	l.notify(ctx, counter)
	return domain.Reservation{
		Token:      uuid.NewString(),
		OfferingID: offeringID,
		Shares:     shares,
	}, nil
}

// Release returns a reservation's shares to the pool. Used on rejection and
// on cancellation of pending/approved requests.
func (l *Ledger) Release(ctx context.Context, res domain.Reservation) error {
	if res.OfferingID == "" || res.Shares < 1 {
		return domain.ErrInvalidInput
	}
	counter, err := l.store.Release(ctx, res.OfferingID, res.Shares, l.nowFn())
	if err != nil {
		return err
	}
	l.notify(ctx, counter)
	return nil
}

// Commit converts a temporary reservation into a permanent allocation. Used
// when the investor's payment is confirmed.
func (l *Ledger) Commit(ctx context.Context, res domain.Reservation) error {
	if res.OfferingID == "" || res.Shares < 1 {
		return domain.ErrInvalidInput
	}
	counter, err := l.store.Commit(ctx, res.OfferingID, res.Shares, l.nowFn())
	if err != nil {
		return err
	}
	l.notify(ctx, counter)
	return nil
}

// ReleaseCommitted returns permanently allocated shares to the pool. Only the
// admin force-cancel path uses it.
func (l *Ledger) ReleaseCommitted(ctx context.Context, res domain.Reservation) error {
	if res.OfferingID == "" || res.Shares < 1 {
		return domain.ErrInvalidInput
	}
	counter, err := l.store.ReleaseAllocated(ctx, res.OfferingID, res.Shares, l.nowFn())
	if err != nil {
		return err
	}
	l.notify(ctx, counter)
	return nil
}

func (l *Ledger) notify(ctx context.Context, counter domain.ShareCounter) {
	if len(l.notifiers) == 0 {
		return
	}
	change := domain.AvailabilityChange{
		OfferingID:      counter.OfferingID,
		TotalShares:     counter.TotalShares,
		AvailableShares: counter.AvailableShares,
		ChangedAt:       counter.UpdatedAt,
	}
	for _, n := range l.notifiers {
		n.AvailabilityChanged(ctx, change)
	}
}
