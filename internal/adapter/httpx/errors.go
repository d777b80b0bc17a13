package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zibanoo/commerce-core/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

// writeDomainError maps business errors onto the HTTP taxonomy. Anything
// unrecognised is a 500: logged with full context, surfaced without detail.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "request validation failed",
			Fields:  ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		writeError(w, http.StatusBadRequest, "payment_not_confirmed", err.Error())
	case errors.Is(err, domain.ErrPromotionExpired):
		writeError(w, http.StatusBadRequest, "promotion_expired", "the coupon code has expired")
	case errors.Is(err, domain.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "empty_cart", "no active cart lines to order")
	case errors.Is(err, domain.ErrPromotionNotFound):
		writeError(w, http.StatusNotFound, "promotion_not_found", "the coupon code is invalid")
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, domain.ErrCartLineNotFound):
		writeError(w, http.StatusNotFound, "cart_line_not_found", "cart line not found")
	case errors.Is(err, domain.ErrPromotionExhausted):
		writeError(w, http.StatusConflict, "promotion_exhausted", "the coupon usage limit has been reached")
	case errors.Is(err, domain.ErrInsufficientStock):
		// The race was lost to another buyer; the client should refresh the
		// cart rather than retry blindly.
		writeError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden", "insufficient privileges")
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
	}
}
