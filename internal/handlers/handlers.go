package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deltabank/backend/internal/middleware"
	"github.com/deltabank/backend/internal/services"
)

// statusForError maps ledger engine errors onto transport status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// callerID extracts the authenticated user from the request context.
func callerID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	return userID, ok
}

func callerIsStaff(r *http.Request) bool {
	isStaff, ok := r.Context().Value(middleware.IsStaffKey).(bool)
	return ok && isStaff
}
