package application

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// OfferingView joins the offering row with its live share counter.
type OfferingView struct {
	Offering        domain.Offering
	AvailableShares int
}

// CreateOffering publishes a new share-divisible offering and seeds its
// ledger counter with the full supply.
func (s *Service) CreateOffering(ctx context.Context, actor Actor, input CreateOfferingInput) (OfferingView, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return OfferingView{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return OfferingView{}, domain.ErrIdempotencyRequired
	}
	input.AssetType = strings.TrimSpace(input.AssetType)
	input.AssetKind = strings.TrimSpace(input.AssetKind)
	input.Region = strings.TrimSpace(input.Region)
	input.Purpose = strings.TrimSpace(input.Purpose)
	if input.AssetType == "" || input.Region == "" || input.PricePerShare <= 0 || input.TotalShares < 1 {
		return OfferingView{}, domain.ErrInvalidInput
	}
	requestHash := hashJSON(input)
	if cached, ok, err := getIdempotent[OfferingView](ctx, s, actor.IdempotencyKey, requestHash); err != nil {
		return OfferingView{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return OfferingView{}, err
	}

	now := s.nowFn()
	offering := domain.Offering{
		OfferingID:    uuid.NewString(),
		FarmerID:      actor.SubjectID,
		AssetType:     input.AssetType,
		AssetKind:     input.AssetKind,
		AssetDetails:  strings.TrimSpace(input.AssetDetails),
		Region:        input.Region,
		Purpose:       input.Purpose,
		PricePerShare: input.PricePerShare,
		TotalShares:   input.TotalShares,
		Status:        domain.OfferingStatusPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.offerings.Create(ctx, offering); err != nil {
		return OfferingView{}, err
	}
	if err := s.ledger.InitOffering(ctx, offering.OfferingID, offering.TotalShares); err != nil {
		return OfferingView{}, err
	}
	s.projectListing(ctx, offering, offering.TotalShares)
	if err := s.enqueueOfferingPublished(ctx, offering, actor.RequestID, now); err != nil {
		return OfferingView{}, err
	}

	view := OfferingView{Offering: offering, AvailableShares: offering.TotalShares}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, view)
	return view, nil
}

func (s *Service) GetOffering(ctx context.Context, actor Actor, offeringID string) (OfferingView, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return OfferingView{}, domain.ErrUnauthorized
	}
	offeringID = strings.TrimSpace(offeringID)
	if offeringID == "" {
		return OfferingView{}, domain.ErrInvalidInput
	}
	offering, err := s.offerings.GetByID(ctx, offeringID)
	if err != nil {
		return OfferingView{}, err
	}
	counter, err := s.ledger.Counter(ctx, offeringID)
	if err != nil {
		return OfferingView{}, err
	}
	return OfferingView{Offering: offering, AvailableShares: counter.AvailableShares}, nil
}

func (s *Service) ListOfferingsByFarmer(ctx context.Context, actor Actor) ([]OfferingView, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	rows, err := s.offerings.ListByFarmer(ctx, actor.SubjectID)
	if err != nil {
		return nil, err
	}
	out := make([]OfferingView, 0, len(rows))
	for _, row := range rows {
		counter, err := s.ledger.Counter(ctx, row.OfferingID)
		if err != nil {
			return nil, err
		}
		out = append(out, OfferingView{Offering: row, AvailableShares: counter.AvailableShares})
	}
	return out, nil
}

// projectListing pushes a full listing into the catalog projection. The
// catalog is read-only UI data; failures are logged and never block the
// write path.
func (s *Service) projectListing(ctx context.Context, offering domain.Offering, availableShares int) {
	if s.catalog == nil {
		return
	}
	err := s.catalog.Upsert(ctx, domain.CatalogListing{
		OfferingID:      offering.OfferingID,
		FarmerID:        offering.FarmerID,
		AssetType:       offering.AssetType,
		AssetKind:       offering.AssetKind,
		Region:          offering.Region,
		Purpose:         offering.Purpose,
		PricePerShare:   offering.PricePerShare,
		TotalShares:     offering.TotalShares,
		AvailableShares: availableShares,
		Status:          offering.Status,
		UpdatedAt:       s.nowFn(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "catalog upsert failed",
			"module", "application",
			"layer", "service",
			"operation", "project_listing",
			"outcome", "failure",
			"offering_id", offering.OfferingID,
			"error", err,
		)
	}
}

func (s *Service) unlistOffering(ctx context.Context, offeringID string) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Remove(ctx, offeringID); err != nil {
		s.logger.WarnContext(ctx, "catalog remove failed",
			"module", "application",
			"layer", "service",
			"operation", "unlist_offering",
			"outcome", "failure",
			"offering_id", offeringID,
			"error", err,
		)
	}
}
