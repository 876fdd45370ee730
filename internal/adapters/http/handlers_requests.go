package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/application"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

func requestResponse(request domain.InvestmentRequest) contracts.InvestmentRequestResponse {
	return contracts.InvestmentRequestResponse{
		RequestID:       request.RequestID,
		OfferingID:      request.OfferingID,
		InvestorID:      request.InvestorID,
		SharesRequested: request.SharesRequested,
		Amount:          request.Amount,
		Status:          request.Status,
		CreatedAt:       request.CreatedAt.Format(time.RFC3339),
		StatusChangedAt: request.StatusChangedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var body contracts.CreateInvestmentRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(w, r, "create_request", err)
		return
	}
	request, err := h.service.CreateRequest(r.Context(), actorFromContext(r.Context()), application.CreateRequestInput{
		OfferingID: body.OfferingID,
		Shares:     body.Shares,
	})
	if err != nil {
		writeMappedError(w, r, "create_request", err)
		return
	}
	writeSuccess(w, http.StatusCreated, requestResponse(request))
}

func (h *Handler) listMyRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListRequestsByInvestor(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(w, r, "list_requests", err)
		return
	}
	out := make([]contracts.InvestmentRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, requestResponse(request))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.GetRequest(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "request_id"))
	if err != nil {
		writeMappedError(w, r, "get_request", err)
		return
	}
	writeSuccess(w, http.StatusOK, requestResponse(request))
}

func (h *Handler) transition(operation string, apply func(*http.Request) (domain.InvestmentRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, err := apply(r)
		if err != nil {
			writeMappedError(w, r, operation, err)
			return
		}
		writeSuccess(w, http.StatusOK, requestResponse(request))
	}
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	h.transition("approve_request", func(r *http.Request) (domain.InvestmentRequest, error) {
		return h.service.Approve(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "request_id"))
	})(w, r)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transition("reject_request", func(r *http.Request) (domain.InvestmentRequest, error) {
		return h.service.Reject(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "request_id"))
	})(w, r)
}

func (h *Handler) payRequest(w http.ResponseWriter, r *http.Request) {
	h.transition("pay_request", func(r *http.Request) (domain.InvestmentRequest, error) {
		return h.service.MarkPaid(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "request_id"))
	})(w, r)
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition("cancel_request", func(r *http.Request) (domain.InvestmentRequest, error) {
		return h.service.Cancel(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "request_id"))
	})(w, r)
}

func (h *Handler) forceCancelRequest(w http.ResponseWriter, r *http.Request) {
	var body contracts.ForceCancelRequest
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(w, r, "force_cancel_request", err)
		return
	}
	request, err := h.service.ForceCancel(r.Context(), actorFromContext(r.Context()), application.ForceCancelInput{
		RequestID: chi.URLParam(r, "request_id"),
		AdminCode: body.AdminCode,
		Reason:    body.Reason,
	})
	if err != nil {
		writeMappedError(w, r, "force_cancel_request", err)
		return
	}
	writeSuccess(w, http.StatusOK, requestResponse(request))
}
