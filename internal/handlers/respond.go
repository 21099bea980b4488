package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"broiler-backend/internal/services"
	"broiler-backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service-layer errors onto HTTP statuses. Quantity
// conflicts get a structured 409 body so the client can offer the
// keep-submitted / use-computed choice.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *services.QuantityConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":            "quantity_conflict",
			"message":          conflict.Error(),
			"givenQuantity":    conflict.Given,
			"expectedQuantity": conflict.Expected,
			"resolutions":      []string{"keep_submitted", "use_computed"},
		})
	case errors.Is(err, services.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidTOTPCode),
		errors.Is(err, services.ErrNoTOTPSecret),
		errors.Is(err, services.ErrTOTPNotEnabled):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrUserInactive):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrSetupClosed):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrTooManyAttempts):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
