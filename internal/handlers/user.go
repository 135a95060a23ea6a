package handlers

import (
	"encoding/json"
	"net/http"

	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	FirstName             string   `json:"first_name"`
	MentalHealthNotes     []string `json:"mental_health_notes"`
	EmergencyContactCount int      `json:"emergency_contact_count"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if r.Body != nil {
		// Body is optional; an empty request creates an anonymous user
		json.NewDecoder(r.Body).Decode(&req)
	}

	user, err := h.userService.CreateUser(r.Context(), req.FirstName, req.MentalHealthNotes, req.EmergencyContactCount)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("User created")
	respondJSON(w, http.StatusCreated, user)
}

// UpdatePushTokenRequest represents the request body for registering a push token
type UpdatePushTokenRequest struct {
	PushToken *string `json:"push_token"`
}

// UpdatePushToken handles PUT /api/v1/users/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req UpdatePushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to update push token")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}
