package events

import (
	"context"
	"log/slog"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/ports"
)

// CatalogProjector keeps the browse projection's available-share count in
// step with the ledger. Projection lag is acceptable; a failed update is
// logged and the next counter change overwrites it.
type CatalogProjector struct {
	logger  *slog.Logger
	catalog ports.CatalogStore
}

func NewCatalogProjector(logger *slog.Logger, catalog ports.CatalogStore) *CatalogProjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogProjector{logger: logger, catalog: catalog}
}

func (p *CatalogProjector) AvailabilityChanged(ctx context.Context, change domain.AvailabilityChange) {
	if p.catalog == nil {
		return
	}
	if err := p.catalog.UpdateAvailability(ctx, change.OfferingID, change.AvailableShares, change.ChangedAt); err != nil {
		p.logger.WarnContext(ctx, "catalog availability update failed",
			"module", "events.catalog_projector",
			"layer", "adapter",
			"operation", "availability_changed",
			"outcome", "failure",
			"offering_id", change.OfferingID,
			"error", err,
		)
	}
}
