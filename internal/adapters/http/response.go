package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/contracts"
	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, contracts.SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message, requestID string) {
	writeJSON(w, statusCode, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// mapDomainError translates service-layer sentinels into transport codes.
// Insufficient shares is a conflict over current inventory, not a malformed
// request, so it maps to 409 alongside the other state collisions.
func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "not allowed for this actor"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", "invalid request"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED", "Idempotency-Key header is required"
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "IDEMPOTENCY_CONFLICT", "idempotency key reused with a different request"
	case errors.Is(err, domain.ErrInsufficientShares):
		return http.StatusConflict, "INSUFFICIENT_SHARES", "not enough available shares"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", "state transition not allowed"
	case errors.Is(err, domain.ErrDeletionOpen):
		return http.StatusConflict, "DELETION_OPEN", "a deletion round is already open for this offering"
	case errors.Is(err, domain.ErrOfferingUnavailable):
		return http.StatusConflict, "OFFERING_UNAVAILABLE", "offering is not accepting requests"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", "resource state conflict"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeMappedError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, msg := mapDomainError(err)
	requestID := requestIDFromContext(r.Context())
	logHTTPOperationError(r.Context(), operation, status, code, msg, err)
	writeError(w, status, code, msg, requestID)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	requestID := requestIDFromContext(r.Context())
	logHTTPOperationError(r.Context(), operation, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
}
