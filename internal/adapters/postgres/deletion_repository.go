package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

type deletionRepository struct {
	db *gorm.DB
}

func (r *deletionRepository) Create(ctx context.Context, row domain.DeletionRequest, confirmations []domain.DeletionConfirmation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := deletionRequestModel{
			DeletionID: row.DeletionID,
			OfferingID: row.OfferingID,
			FarmerID:   row.FarmerID,
			Reason:     row.Reason,
			Outcome:    row.Outcome,
			CreatedAt:  row.CreatedAt,
			ClosedAt:   row.ClosedAt,
		}
		if err := tx.Create(&rec).Error; err != nil {
			// The partial unique index on open rounds rejects a second
			// open round for the same offering.
			if isUniqueViolation(err) {
				return domain.ErrDeletionOpen
			}
			return err
		}
		for _, c := range confirmations {
			confirmation := deletionConfirmationModel{
				ConfirmationID: c.ConfirmationID,
				DeletionID:     c.DeletionID,
				InvestorID:     c.InvestorID,
				Confirmed:      c.Confirmed,
				RespondedAt:    c.RespondedAt,
				CreatedAt:      c.CreatedAt,
			}
			if err := tx.Create(&confirmation).Error; err != nil {
				if isUniqueViolation(err) {
					return domain.ErrConflict
				}
				return err
			}
		}
		return nil
	})
}

func (r *deletionRepository) GetByID(ctx context.Context, deletionID string) (domain.DeletionRequest, error) {
	var rec deletionRequestModel
	if err := r.db.WithContext(ctx).Where("deletion_id = ?", deletionID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DeletionRequest{}, domain.ErrNotFound
		}
		return domain.DeletionRequest{}, err
	}
	return deletionToDomain(rec), nil
}

func (r *deletionRepository) GetOpenByOffering(ctx context.Context, offeringID string) (domain.DeletionRequest, error) {
	var rec deletionRequestModel
	if err := r.db.WithContext(ctx).
		Where("offering_id = ? AND outcome = ?", offeringID, domain.DeletionOutcomeOpen).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DeletionRequest{}, domain.ErrNotFound
		}
		return domain.DeletionRequest{}, err
	}
	return deletionToDomain(rec), nil
}

func (r *deletionRepository) ListConfirmations(ctx context.Context, deletionID string) ([]domain.DeletionConfirmation, error) {
	var rows []deletionConfirmationModel
	if err := r.db.WithContext(ctx).
		Where("deletion_id = ?", deletionID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeletionConfirmation, 0, len(rows))
	for _, rec := range rows {
		out = append(out, confirmationToDomain(rec))
	}
	return out, nil
}

// Confirm records the vote, counts the round, and closes it when unanimous,
// all under a FOR UPDATE lock on the round row. The lock serializes
// concurrent confirmations so exactly one of them observes the flip.
func (r *deletionRepository) Confirm(ctx context.Context, deletionID, investorID string, at time.Time) (domain.ConsensusState, error) {
	var state domain.ConsensusState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round deletionRequestModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("deletion_id = ?", deletionID).
			Take(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if round.Outcome == domain.DeletionOutcomeAborted {
			return domain.ErrInvalidTransition
		}

		var confirmation deletionConfirmationModel
		if err := tx.
			Where("deletion_id = ? AND investor_id = ?", deletionID, investorID).
			Take(&confirmation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Not part of the snapshot taken when the round opened.
				return domain.ErrForbidden
			}
			return err
		}

		if round.Outcome == domain.DeletionOutcomeCompleted {
			state = domain.ConsensusState{
				DeletionID:     round.DeletionID,
				OfferingID:     round.OfferingID,
				Outcome:        round.Outcome,
				CompletedRound: false,
			}
			return r.fillCounts(tx, deletionID, &state)
		}

		if !confirmation.Confirmed {
			if err := tx.Model(&deletionConfirmationModel{}).
				Where("deletion_id = ? AND investor_id = ?", deletionID, investorID).
				Updates(map[string]any{
					"confirmed":    true,
					"responded_at": at,
				}).Error; err != nil {
				return err
			}
		}

		state = domain.ConsensusState{
			DeletionID: round.DeletionID,
			OfferingID: round.OfferingID,
			Outcome:    round.Outcome,
		}
		if err := r.fillCounts(tx, deletionID, &state); err != nil {
			return err
		}

		if state.Confirmed == state.Total {
			if err := tx.Model(&deletionRequestModel{}).
				Where("deletion_id = ? AND outcome = ?", deletionID, domain.DeletionOutcomeOpen).
				Updates(map[string]any{
					"outcome":   domain.DeletionOutcomeCompleted,
					"closed_at": at,
				}).Error; err != nil {
				return err
			}
			state.Outcome = domain.DeletionOutcomeCompleted
			state.CompletedRound = true
		}
		return nil
	})
	if err != nil {
		return domain.ConsensusState{}, err
	}
	return state, nil
}

func (r *deletionRepository) fillCounts(tx *gorm.DB, deletionID string, state *domain.ConsensusState) error {
	var total, confirmed int64
	if err := tx.Model(&deletionConfirmationModel{}).
		Where("deletion_id = ?", deletionID).
		Count(&total).Error; err != nil {
		return err
	}
	if err := tx.Model(&deletionConfirmationModel{}).
		Where("deletion_id = ? AND confirmed", deletionID).
		Count(&confirmed).Error; err != nil {
		return err
	}
	state.Total = int(total)
	state.Confirmed = int(confirmed)
	return nil
}

func (r *deletionRepository) Abort(ctx context.Context, deletionID string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&deletionRequestModel{}).
			Where("deletion_id = ? AND outcome = ?", deletionID, domain.DeletionOutcomeOpen).
			Updates(map[string]any{
				"outcome":   domain.DeletionOutcomeAborted,
				"closed_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&deletionRequestModel{}).Where("deletion_id = ?", deletionID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrInvalidTransition
		}
		return tx.
			Where("deletion_id = ?", deletionID).
			Delete(&deletionConfirmationModel{}).Error
	})
}
