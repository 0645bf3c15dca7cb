package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// mapDomainError translates a domain error into an HTTP status and a stable
// machine-readable code. Classification goes through the precedence category
// so every error in a category gets a consistent status.
func mapDomainError(err error) (status int, code string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrReentrancy):
		return http.StatusConflict, "reentrancy"
	case errors.Is(err, domain.ErrIdempotencyRequired):
		return http.StatusBadRequest, "idempotency_key_required"
	case errors.Is(err, domain.ErrIdempotencyConflict), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	switch domain.Category(err) {
	case domain.CategoryPaused:
		return http.StatusServiceUnavailable, "paused"
	case domain.CategoryInitialization:
		return http.StatusConflict, "initialization"
	case domain.CategoryAuthorization:
		return http.StatusForbidden, "forbidden"
	case domain.CategoryNotFound:
		return http.StatusNotFound, "not_found"
	case domain.CategoryStateConflict:
		return http.StatusConflict, "state_conflict"
	case domain.CategoryStateMismatch:
		return http.StatusConflict, "invalid_status"
	case domain.CategoryCapability:
		return http.StatusUnprocessableEntity, "capability_rejected"
	case domain.CategoryBusinessRule:
		return http.StatusUnprocessableEntity, "business_rule"
	case domain.CategoryPrecondition:
		return http.StatusUnprocessableEntity, "precondition_failed"
	case domain.CategoryAvailability:
		return http.StatusUnprocessableEntity, "limit_exceeded"
	case domain.CategoryBatchShape:
		return http.StatusBadRequest, "invalid_batch"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
