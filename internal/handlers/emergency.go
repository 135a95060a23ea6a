package handlers

import (
	"encoding/json"
	"net/http"

	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EmergencyHandler handles emergency alert HTTP requests
type EmergencyHandler struct {
	alertService   *services.AlertService
	contactService *services.ContactService
}

// NewEmergencyHandler creates a new emergency handler
func NewEmergencyHandler(alertService *services.AlertService, contactService *services.ContactService) *EmergencyHandler {
	return &EmergencyHandler{
		alertService:   alertService,
		contactService: contactService,
	}
}

// PanicRequest represents the request body for raising an alert.
// Location is optional; a missing location never blocks activation.
type PanicRequest struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Address string   `json:"address"`
}

// Panic handles POST /api/v1/emergency/panic
func (h *EmergencyHandler) Panic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req PanicRequest
	if r.Body != nil {
		// Body is optional for a panic activation
		json.NewDecoder(r.Body).Decode(&req)
	}

	alert, err := h.alertService.Activate(ctx, userID, req.Lat, req.Lon, req.Address)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to activate alert")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, alert)
}

// Respond handles POST /api/v1/emergency/alert/{alert_id}/respond
func (h *EmergencyHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	companionID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "alert_id")

	alert, err := h.alertService.Respond(ctx, alertID, companionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("alert_id", alertID).
			Str("companion_id", companionID).
			Msg("Failed to respond to alert")
		respondDomainError(w, err)
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("companion_id", companionID).
		Msg("Companion responded to alert")
	respondJSON(w, http.StatusOK, alert)
}

// Resolve handles PUT /api/v1/emergency/alert/{alert_id}/resolve
func (h *EmergencyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	alertID := chi.URLParam(r, "alert_id")

	alert, err := h.alertService.Resolve(ctx, alertID, actorID)
	if err != nil {
		log.Error().
			Err(err).
			Str("alert_id", alertID).
			Str("actor_id", actorID).
			Msg("Failed to resolve alert")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// GetContacts handles GET /api/v1/emergency/contacts/{country}
func (h *EmergencyHandler) GetContacts(w http.ResponseWriter, r *http.Request) {
	country := chi.URLParam(r, "country")
	if country == "" {
		respondError(w, "country is required", http.StatusBadRequest)
		return
	}

	contacts, err := h.contactService.ListByCountry(r.Context(), country)
	if err != nil {
		log.Error().Err(err).Str("country", country).Msg("Failed to list official contacts")
		respondDomainError(w, err)
		return
	}

	if contacts == nil {
		contacts = []*models.OfficialContact{}
	}
	respondJSON(w, http.StatusOK, contacts)
}
