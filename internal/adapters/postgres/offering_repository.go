package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type offeringRepository struct {
	db *gorm.DB
}

func (r *offeringRepository) Create(ctx context.Context, row domain.Offering) error {
	rec := offeringModel{
		OfferingID:    row.OfferingID,
		FarmerID:      row.FarmerID,
		AssetType:     row.AssetType,
		AssetKind:     row.AssetKind,
		AssetDetails:  row.AssetDetails,
		Region:        row.Region,
		Purpose:       row.Purpose,
		PricePerShare: row.PricePerShare,
		TotalShares:   row.TotalShares,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *offeringRepository) GetByID(ctx context.Context, offeringID string) (domain.Offering, error) {
	var rec offeringModel
	if err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Offering{}, domain.ErrNotFound
		}
		return domain.Offering{}, err
	}
	return offeringToDomain(rec), nil
}

func (r *offeringRepository) UpdateStatus(ctx context.Context, offeringID, fromStatus, toStatus string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&offeringModel{}).
		Where("offering_id = ? AND status = ?", offeringID, fromStatus).
		Updates(map[string]any{
			"status":     toStatus,
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&offeringModel{}).Where("offering_id = ?", offeringID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *offeringRepository) ListByFarmer(ctx context.Context, farmerID string) ([]domain.Offering, error) {
	var rows []offeringModel
	if err := r.db.WithContext(ctx).
		Where("farmer_id = ?", farmerID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Offering, 0, len(rows))
	for _, rec := range rows {
		out = append(out, offeringToDomain(rec))
	}
	return out, nil
}
