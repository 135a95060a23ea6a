package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"wellbeing-backend/internal/middleware"
	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles chat channel HTTP requests
type ChatHandler struct {
	channelService *services.ChannelService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(channelService *services.ChannelService) *ChatHandler {
	return &ChatHandler{channelService: channelService}
}

// GetMessages handles GET /api/v1/chat/channel/{channel_id}/messages
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	channelID := chi.URLParam(r, "channel_id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.channelService.ListMessages(ctx, channelID, userID, limit, offset)
	if err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Str("user_id", userID).
			Msg("Failed to list messages")
		respondDomainError(w, err)
		return
	}

	if messages == nil {
		messages = []*models.ChatMessage{}
	}
	respondJSON(w, http.StatusOK, messages)
}

// SendMessageRequest represents the request body for posting a message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage handles POST /api/v1/chat/channel/{channel_id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	channelID := chi.URLParam(r, "channel_id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.channelService.SendMessage(ctx, channelID, models.UserSender(userID), req.Content, models.MessageText)
	if err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Str("user_id", userID).
			Msg("Failed to send message")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": msg.ID})
}

// EscalateRequest represents the request body for escalating an emergency
type EscalateRequest struct {
	Kind models.EscalationKind `json:"kind"`
}

// Escalate handles POST /api/v1/chat/channel/{channel_id}/escalate
func (h *ChatHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	channelID := chi.URLParam(r, "channel_id")

	var req EscalateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidEscalationKind(req.Kind) {
		respondError(w, "kind must be one of medical, police, crisis_center", http.StatusBadRequest)
		return
	}

	if err := h.channelService.Escalate(ctx, channelID, userID, req.Kind); err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Str("user_id", userID).
			Str("kind", string(req.Kind)).
			Msg("Failed to escalate")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}

// AddParticipantRequest represents the request body for adding a participant
type AddParticipantRequest struct {
	UserID string `json:"user_id"`
}

// AddParticipant handles POST /api/v1/chat/channel/{channel_id}/participants
func (h *ChatHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	channelID := chi.URLParam(r, "channel_id")

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	if err := h.channelService.AddParticipant(ctx, channelID, actorID, req.UserID); err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Str("actor_id", actorID).
			Msg("Failed to add participant")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}

// RemoveParticipant handles DELETE /api/v1/chat/channel/{channel_id}/participants/{user_id}
func (h *ChatHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	channelID := chi.URLParam(r, "channel_id")
	userID := chi.URLParam(r, "user_id")

	if err := h.channelService.RemoveParticipant(ctx, channelID, actorID, userID); err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Str("actor_id", actorID).
			Msg("Failed to remove participant")
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{})
}
