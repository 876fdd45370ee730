package application

import (
	"context"
	"strings"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// BrowseCatalog serves the investor-facing listing from the read projection.
// Availability here is eventually consistent: it reflects the last ledger
// notification applied by the projector, never a financial guarantee.
func (s *Service) BrowseCatalog(ctx context.Context, actor Actor, filter domain.CatalogFilter) ([]domain.CatalogListing, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if s.catalog == nil {
		return []domain.CatalogListing{}, nil
	}
	filter.AssetType = strings.TrimSpace(filter.AssetType)
	filter.Region = strings.TrimSpace(filter.Region)
	filter.Purpose = strings.TrimSpace(filter.Purpose)
	listings, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CatalogListing, 0, len(listings))
	for _, l := range listings {
		if l.Status != domain.OfferingStatusPublished {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
