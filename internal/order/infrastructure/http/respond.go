package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meninadourada/storefront/internal/order/domain"
	paymentdomain "github.com/meninadourada/storefront/internal/payment/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Anything
// unrecognized becomes a 500 without internal detail.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var gwErr *paymentdomain.GatewayError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", "order was modified concurrently, retry")
	case errors.As(err, &gwErr):
		writeError(w, http.StatusInternalServerError, "gateway_error", "payment provider request failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
