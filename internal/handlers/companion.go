package handlers

import (
	"encoding/json"
	"net/http"

	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CompanionHandler handles companion-related HTTP requests
type CompanionHandler struct {
	companionService *services.CompanionService
}

// NewCompanionHandler creates a new companion handler
func NewCompanionHandler(companionService *services.CompanionService) *CompanionHandler {
	return &CompanionHandler{companionService: companionService}
}

// RegisterCompanionRequest represents the request body for companion registration
type RegisterCompanionRequest struct {
	Specializations       []string `json:"specializations"`
	AvailabilityStart     string   `json:"availability_start"`
	AvailabilityEnd       string   `json:"availability_end"`
	MaxResponseDistanceKm float64  `json:"max_response_distance_km"`
}

// Register handles POST /api/v1/companions
func (h *CompanionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req RegisterCompanionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	profile, err := h.companionService.Register(ctx, userID,
		req.Specializations, req.AvailabilityStart, req.AvailabilityEnd, req.MaxResponseDistanceKm)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to register companion")
		respondDomainError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Msg("Companion registration submitted")
	respondJSON(w, http.StatusCreated, profile)
}

// Verify handles POST /api/v1/companions/{user_id}/verify
func (h *CompanionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	companionID := chi.URLParam(r, "user_id")

	if err := h.companionService.Verify(ctx, actorID, companionID); err != nil {
		log.Error().
			Err(err).
			Str("actor_id", actorID).
			Str("companion_id", companionID).
			Msg("Failed to verify companion")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}

// ReportAvailabilityRequest represents the availability heartbeat body
type ReportAvailabilityRequest struct {
	Available bool     `json:"available"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

// ReportAvailability handles PUT /api/v1/companions/availability
func (h *CompanionHandler) ReportAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req ReportAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.companionService.ReportAvailability(ctx, userID, req.Available, req.Lat, req.Lon); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to report availability")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}
