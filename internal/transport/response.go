package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-eats/internal/idempotency"
	"campus-eats/internal/logger"
	"campus-eats/internal/menu"
	"campus-eats/internal/order"
	"campus-eats/internal/utils"

	"go.uber.org/zap"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable maps domain errors to responses. An empty message means the
// error text itself is safe to show.
var errorTable = []errorMapping{
	{order.ErrItemNotFound, http.StatusNotFound, "item_not_found", ""},
	{menu.ErrMenuItemNotFound, http.StatusNotFound, "item_not_found", "Menu item not found"},
	{order.ErrItemUnavailable, http.StatusConflict, "item_unavailable", ""},
	{order.ErrValidation, http.StatusBadRequest, "validation_failed", ""},
	{menu.ErrInvalidCategory, http.StatusBadRequest, "validation_failed", "Invalid category"},
	{order.ErrOrderNotFound, http.StatusNotFound, "order_not_found", "Order not found"},
	{order.ErrAccessDenied, http.StatusForbidden, "access_denied", "Not authorized to access this order"},
	{order.ErrIllegalTransition, http.StatusConflict, "illegal_transition", ""},
	{order.ErrTransitionConflict, http.StatusConflict, "transition_conflict", "Order was modified concurrently, please retry"},
	{idempotency.ErrInFlight, http.StatusConflict, "duplicate_request", "A request with this Idempotency-Key is already being processed"},
	{order.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "Service temporarily unavailable"},
	{menu.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable", "Service temporarily unavailable"},
}

// writeError never echoes storage or unexpected error text to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			if m.status >= http.StatusInternalServerError {
				logger.FromCtx(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
			utils.WriteJSONError(w, m.status, m.code, msg)
			return
		}
	}

	logger.FromCtx(r.Context()).Error("unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
	utils.WriteJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}
