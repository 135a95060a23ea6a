package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wellbeing-backend/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// respondDomainError maps typed domain errors to HTTP statuses
func respondDomainError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied), errors.Is(err, models.ErrNotVerified):
		statusCode = http.StatusForbidden
	case errors.Is(err, models.ErrAlertAlreadyResolved),
		errors.Is(err, models.ErrChannelArchived):
		statusCode = http.StatusConflict
	case errors.Is(err, models.ErrMessageRejected):
		statusCode = http.StatusBadRequest
	}
	respondError(w, err.Error(), statusCode)
}
