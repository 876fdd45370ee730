package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// shareLedgerStore keeps the counter invariant inside the database: every
// mutation is one conditional UPDATE whose WHERE clause carries the source
// bucket's floor, so concurrent writers can never drive a bucket negative.
type shareLedgerStore struct {
	db *gorm.DB
}

func (s *shareLedgerStore) Init(ctx context.Context, offeringID string, totalShares int, at time.Time) error {
	rec := shareCounterModel{
		OfferingID:      offeringID,
		TotalShares:     totalShares,
		AvailableShares: totalShares,
		ReservedShares:  0,
		AllocatedShares: 0,
		UpdatedAt:       at,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (s *shareLedgerStore) Get(ctx context.Context, offeringID string) (domain.ShareCounter, error) {
	var rec shareCounterModel
	if err := s.db.WithContext(ctx).Where("offering_id = ?", offeringID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ShareCounter{}, domain.ErrNotFound
		}
		return domain.ShareCounter{}, err
	}
	return counterToDomain(rec), nil
}

// move applies a conditional bucket transfer and reloads the counter.
// guardErr is returned when the row exists but the source bucket is short.
func (s *shareLedgerStore) move(ctx context.Context, offeringID string, shares int, at time.Time, fromColumn, toColumn string, guardErr error) (domain.ShareCounter, error) {
	if shares <= 0 {
		return domain.ShareCounter{}, domain.ErrInvalidInput
	}
	res := s.db.WithContext(ctx).
		Model(&shareCounterModel{}).
		Where("offering_id = ? AND "+fromColumn+" >= ?", offeringID, shares).
		Updates(map[string]any{
			fromColumn:   gorm.Expr(fromColumn+" - ?", shares),
			toColumn:     gorm.Expr(toColumn+" + ?", shares),
			"updated_at": at,
		})
	if res.Error != nil {
		return domain.ShareCounter{}, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&shareCounterModel{}).Where("offering_id = ?", offeringID).Count(&count).Error; err != nil {
			return domain.ShareCounter{}, err
		}
		if count == 0 {
			return domain.ShareCounter{}, domain.ErrNotFound
		}
		return domain.ShareCounter{}, guardErr
	}
	return s.Get(ctx, offeringID)
}

func (s *shareLedgerStore) Reserve(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	return s.move(ctx, offeringID, shares, at, "available_shares", "reserved_shares", domain.ErrInsufficientShares)
}

func (s *shareLedgerStore) Release(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	return s.move(ctx, offeringID, shares, at, "reserved_shares", "available_shares", domain.ErrConflict)
}

func (s *shareLedgerStore) Commit(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	return s.move(ctx, offeringID, shares, at, "reserved_shares", "allocated_shares", domain.ErrConflict)
}

func (s *shareLedgerStore) ReleaseAllocated(ctx context.Context, offeringID string, shares int, at time.Time) (domain.ShareCounter, error) {
	return s.move(ctx, offeringID, shares, at, "allocated_shares", "available_shares", domain.ErrConflict)
}
