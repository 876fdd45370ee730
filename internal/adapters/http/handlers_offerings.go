package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

func offeringResponse(view application.OfferingView) contracts.OfferingResponse {
	o := view.Offering
	return contracts.OfferingResponse{
		OfferingID:      o.OfferingID,
		FarmerID:        o.FarmerID,
		AssetType:       o.AssetType,
		AssetKind:       o.AssetKind,
		AssetDetails:    o.AssetDetails,
		Region:          o.Region,
		Purpose:         o.Purpose,
		PricePerShare:   o.PricePerShare,
		TotalShares:     o.TotalShares,
		AvailableShares: view.AvailableShares,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createOffering(w http.ResponseWriter, r *http.Request) {
	var body contracts.CreateOfferingRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(w, r, "create_offering", err)
		return
	}
	view, err := h.service.CreateOffering(r.Context(), actorFromContext(r.Context()), application.CreateOfferingInput{
		AssetType:     body.AssetType,
		AssetKind:     body.AssetKind,
		AssetDetails:  body.AssetDetails,
		Region:        body.Region,
		Purpose:       body.Purpose,
		PricePerShare: body.PricePerShare,
		TotalShares:   body.TotalShares,
	})
	if err != nil {
		writeMappedError(w, r, "create_offering", err)
		return
	}
	writeSuccess(w, http.StatusCreated, offeringResponse(view))
}

// listOfferings serves the investor catalog; ?mine=true switches to the
// caller's own offerings regardless of status.
func (h *Handler) listOfferings(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	if mine, _ := strconv.ParseBool(r.URL.Query().Get("mine")); mine {
		views, err := h.service.ListOfferingsByFarmer(r.Context(), actor)
		if err != nil {
			writeMappedError(w, r, "list_offerings", err)
			return
		}
		out := make([]contracts.OfferingResponse, 0, len(views))
		for _, view := range views {
			out = append(out, offeringResponse(view))
		}
		writeSuccess(w, http.StatusOK, out)
		return
	}

	listings, err := h.service.BrowseCatalog(r.Context(), actor, domain.CatalogFilter{
		AssetType: r.URL.Query().Get("asset_type"),
		Region:    r.URL.Query().Get("region"),
		Purpose:   r.URL.Query().Get("purpose"),
	})
	if err != nil {
		writeMappedError(w, r, "browse_catalog", err)
		return
	}
	out := make([]contracts.CatalogListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, contracts.CatalogListingResponse{
			OfferingID:      l.OfferingID,
			AssetType:       l.AssetType,
			AssetKind:       l.AssetKind,
			Region:          l.Region,
			Purpose:         l.Purpose,
			PricePerShare:   l.PricePerShare,
			TotalShares:     l.TotalShares,
			AvailableShares: l.AvailableShares,
		})
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) getOffering(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetOffering(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "offering_id"))
	if err != nil {
		writeMappedError(w, r, "get_offering", err)
		return
	}
	writeSuccess(w, http.StatusOK, offeringResponse(view))
}

func (h *Handler) listOfferingRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequestsByOffering(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "offering_id"))
	if err != nil {
		writeMappedError(w, r, "list_offering_requests", err)
		return
	}
	out := make([]contracts.InvestmentRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, requestResponse(request))
	}
	writeSuccess(w, http.StatusOK, out)
}
