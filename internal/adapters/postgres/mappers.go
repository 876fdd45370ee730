package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

func offeringToDomain(m offeringModel) domain.Offering {
	return domain.Offering{
		OfferingID:    m.OfferingID,
		FarmerID:      m.FarmerID,
		AssetType:     m.AssetType,
		AssetKind:     m.AssetKind,
		AssetDetails:  m.AssetDetails,
		Region:        m.Region,
		Purpose:       m.Purpose,
		PricePerShare: m.PricePerShare,
		TotalShares:   m.TotalShares,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func counterToDomain(m shareCounterModel) domain.ShareCounter {
	return domain.ShareCounter{
		OfferingID:      m.OfferingID,
		TotalShares:     m.TotalShares,
		AvailableShares: m.AvailableShares,
		ReservedShares:  m.ReservedShares,
		AllocatedShares: m.AllocatedShares,
		UpdatedAt:       m.UpdatedAt,
	}
}

func requestToDomain(m investmentRequestModel) domain.InvestmentRequest {
	return domain.InvestmentRequest{
		RequestID:           m.RequestID,
		OfferingID:          m.OfferingID,
		InvestorID:          m.InvestorID,
		SharesRequested:     m.SharesRequested,
		Amount:              m.Amount,
		Status:              m.Status,
		ReservationToken:    m.ReservationToken,
		CancelActor:         m.CancelActor,
		CancelReason:        m.CancelReason,
		NeedsReconciliation: m.NeedsReconciliation,
		CreatedAt:           m.CreatedAt,
		StatusChangedAt:     m.StatusChangedAt,
	}
}

func deletionToDomain(m deletionRequestModel) domain.DeletionRequest {
	return domain.DeletionRequest{
		DeletionID: m.DeletionID,
		OfferingID: m.OfferingID,
		FarmerID:   m.FarmerID,
		Reason:     m.Reason,
		Outcome:    m.Outcome,
		CreatedAt:  m.CreatedAt,
		ClosedAt:   m.ClosedAt,
	}
}

func confirmationToDomain(m deletionConfirmationModel) domain.DeletionConfirmation {
	return domain.DeletionConfirmation{
		ConfirmationID: m.ConfirmationID,
		DeletionID:     m.DeletionID,
		InvestorID:     m.InvestorID,
		Confirmed:      m.Confirmed,
		RespondedAt:    m.RespondedAt,
		CreatedAt:      m.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
