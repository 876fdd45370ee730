package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
)

func deletionStatusResponse(view application.DeletionStatusView) contracts.DeletionStatusResponse {
	out := contracts.DeletionStatusResponse{
		DeletionID:  view.Deletion.DeletionID,
		OfferingID:  view.Deletion.OfferingID,
		Outcome:     view.Deletion.Outcome,
		Total:       view.Total,
		Confirmed:   view.Confirmed,
		Outstanding: view.Outstanding(),
	}
	for _, c := range view.Confirmations {
		confirmation := contracts.DeletionConfirmationResponse{
			InvestorID: c.InvestorID,
			Confirmed:  c.Confirmed,
		}
		if c.RespondedAt != nil {
			confirmation.RespondedAt = c.RespondedAt.Format(time.RFC3339)
		}
		out.Confirmation = append(out.Confirmation, confirmation)
	}
	return out
}

func (h *Handler) openDeletion(w http.ResponseWriter, r *http.Request) {
	var body contracts.OpenDeletionRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeValidationError(w, r, "open_deletion", err)
			return
		}
	}
	view, err := h.service.OpenDeletionRequest(r.Context(), actorFromContext(r.Context()), application.OpenDeletionInput{
		OfferingID: chi.URLParam(r, "offering_id"),
		Reason:     body.Reason,
	})
	if err != nil {
		writeMappedError(w, r, "open_deletion", err)
		return
	}
	writeSuccess(w, http.StatusCreated, deletionStatusResponse(view))
}

func (h *Handler) getDeletionStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDeletionStatus(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "offering_id"))
	if err != nil {
		writeMappedError(w, r, "get_deletion_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, deletionStatusResponse(view))
}

// confirmDeletion resolves the offering's open round and records the caller's
// consent. The final confirmation retires the offering in the same call.
func (h *Handler) confirmDeletion(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	view, err := h.service.GetDeletionStatus(r.Context(), actor, chi.URLParam(r, "offering_id"))
	if err != nil {
		writeMappedError(w, r, "confirm_deletion", err)
		return
	}
	state, err := h.service.ConfirmDeletion(r.Context(), actor, view.Deletion.DeletionID)
	if err != nil {
		writeMappedError(w, r, "confirm_deletion", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.DeletionStatusResponse{
		DeletionID:  state.DeletionID,
		OfferingID:  state.OfferingID,
		Outcome:     state.Outcome,
		Total:       state.Total,
		Confirmed:   state.Confirmed,
		Outstanding: state.Total - state.Confirmed,
	})
}

func (h *Handler) abortDeletion(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	view, err := h.service.GetDeletionStatus(r.Context(), actor, chi.URLParam(r, "offering_id"))
	if err != nil {
		writeMappedError(w, r, "abort_deletion", err)
		return
	}
	deletion, err := h.service.AbortDeletion(r.Context(), actor, view.Deletion.DeletionID)
	if err != nil {
		writeMappedError(w, r, "abort_deletion", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.DeletionStatusResponse{
		DeletionID: deletion.DeletionID,
		OfferingID: deletion.OfferingID,
		Outcome:    deletion.Outcome,
	})
}
