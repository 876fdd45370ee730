package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type investmentRequestRepository struct {
	db *gorm.DB
}

// Create inserts the request in the same transaction as a share-locked read
// of the offering row. A deletion round flips the offering with an exclusive
// row lock, so the insert either lands before the flip (and the stakeholder
// snapshot sees it) or observes pending_deletion and is refused.
func (r *investmentRequestRepository) Create(ctx context.Context, row domain.InvestmentRequest) error {
	rec := investmentRequestModel{
		RequestID:           row.RequestID,
		OfferingID:          row.OfferingID,
		InvestorID:          row.InvestorID,
		SharesRequested:     row.SharesRequested,
		Amount:              row.Amount,
		Status:              row.Status,
		ReservationToken:    row.ReservationToken,
		CancelActor:         row.CancelActor,
		CancelReason:        row.CancelReason,
		NeedsReconciliation: row.NeedsReconciliation,
		CreatedAt:           row.CreatedAt,
		StatusChangedAt:     row.StatusChangedAt,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var offering offeringModel
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("offering_id = ?", row.OfferingID).
			Take(&offering).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if offering.Status != domain.OfferingStatusPublished {
			return domain.ErrOfferingUnavailable
		}
		if err := tx.Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *investmentRequestRepository) GetByID(ctx context.Context, requestID string) (domain.InvestmentRequest, error) {
	var rec investmentRequestModel
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InvestmentRequest{}, domain.ErrNotFound
		}
		return domain.InvestmentRequest{}, err
	}
	return requestToDomain(rec), nil
}

func (r *investmentRequestRepository) UpdateStatus(ctx context.Context, requestID string, fromStatuses []string, change domain.StatusChange) error {
	updates := map[string]any{
		"status":            change.To,
		"status_changed_at": change.At,
	}
	if change.Actor != "" {
		updates["cancel_actor"] = change.Actor
	}
	if change.Reason != "" {
		updates["cancel_reason"] = change.Reason
	}
	if change.NeedsReconciliation {
		updates["needs_reconciliation"] = true
	}
	res := r.db.WithContext(ctx).
		Model(&investmentRequestModel{}).
		Where("request_id = ? AND status IN ?", requestID, fromStatuses).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&investmentRequestModel{}).Where("request_id = ?", requestID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *investmentRequestRepository) ListByOffering(ctx context.Context, offeringID string) ([]domain.InvestmentRequest, error) {
	return r.list(ctx, "offering_id = ?", offeringID)
}

func (r *investmentRequestRepository) ListByInvestor(ctx context.Context, investorID string) ([]domain.InvestmentRequest, error) {
	return r.list(ctx, "investor_id = ?", investorID)
}

func (r *investmentRequestRepository) list(ctx context.Context, cond string, arg any) ([]domain.InvestmentRequest, error) {
	var rows []investmentRequestModel
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.InvestmentRequest, 0, len(rows))
	for _, rec := range rows {
		out = append(out, requestToDomain(rec))
	}
	return out, nil
}
