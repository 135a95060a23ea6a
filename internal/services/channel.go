package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// escalationTemplates are the system messages posted when a participant
// hands the emergency to an external service tier
var escalationTemplates = map[models.EscalationKind]string{
	models.EscalateMedical:      "This emergency has been escalated to medical services. Help has been requested.",
	models.EscalatePolice:       "This emergency has been escalated to the police.",
	models.EscalateCrisisCenter: "This emergency has been escalated to a crisis center. A counselor will be in touch as soon as possible.",
}

// ChannelService owns the emergency-scoped chat channel: creation, access
// control, system narration, context sharing, moderation and archival
type ChannelService struct {
	channelRepo repository.ChannelStore
	messageRepo repository.MessageStore
	userRepo    repository.UserStore
	moderator   *Moderator
	notifier    *Notifier
	hub         *WSHub
}

// NewChannelService creates a new channel service
func NewChannelService(
	channelRepo repository.ChannelStore,
	messageRepo repository.MessageStore,
	userRepo repository.UserStore,
	moderator *Moderator,
	notifier *Notifier,
	hub *WSHub,
) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		moderator:   moderator,
		notifier:    notifier,
		hub:         hub,
	}
}

// EnsureChannelForAlert returns the emergency channel bound to the alert,
// creating it if this is the first event that needs one. Creation is
// idempotent per alert: concurrent callers all end up with the same
// channel. The alert owner is always a participant.
func (s *ChannelService) EnsureChannelForAlert(ctx context.Context, alert *models.EmergencyAlert) (*models.ChatChannel, error) {
	alertID := alert.ID
	channel, created, err := s.channelRepo.CreateForAlert(ctx, &models.ChatChannel{
		ID:               uuid.New().String(),
		Type:             models.ChannelEmergency,
		EmergencyAlertID: &alertID,
		CreatedAt:        time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.channelRepo.AddParticipant(ctx, channel.ID, alert.UserID); err != nil {
		return nil, err
	}

	if created {
		log.Info().
			Str("channel_id", channel.ID).
			Str("alert_id", alertID).
			Msg("Emergency channel created")
		s.postSystem(ctx, channel.ID,
			"You are connected to the emergency support channel. A companion will join as soon as one responds.")
	}

	return s.channelRepo.GetByID(ctx, channel.ID)
}

// JoinResponder adds a responding companion to the alert's channel and
// announces the join
func (s *ChannelService) JoinResponder(ctx context.Context, channelID, companionID string) error {
	added, err := s.channelRepo.AddParticipant(ctx, channelID, companionID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	name := s.displayName(ctx, companionID)
	s.postSystem(ctx, channelID, fmt.Sprintf("%s has joined as a companion and is here to help.", name))
	return nil
}

// SendMessage posts a message to a channel. Real users must be participants
// and pass moderation; the service's own system sender always bypasses the
// participant check so it can narrate joins, context, escalation and
// resolution. Archived channels reject new non-system messages.
func (s *ChannelService) SendMessage(ctx context.Context, channelID string, sender models.Sender, content string, msgType models.MessageType) (*models.ChatMessage, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if userID, isUser := sender.UserID(); isUser {
		if channel.Archived {
			return nil, fmt.Errorf("channel %s: %w", channelID, models.ErrChannelArchived)
		}
		if !channel.HasParticipant(userID) {
			return nil, fmt.Errorf("user %s is not a participant of channel %s: %w", userID, channelID, models.ErrAccessDenied)
		}
		if err := s.moderator.Moderate(channelID, content, channel.Type == models.ChannelEmergency); err != nil {
			return nil, err
		}
	}

	msg := &models.ChatMessage{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		Sender:    sender,
		Content:   content,
		Type:      msgType,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.broadcast(channel, msg)
	s.notifyParticipants(channel, sender, "New message", content)

	return msg, nil
}

// ListMessages returns a page of channel history, oldest first. Only
// participants may read.
func (s *ChannelService) ListMessages(ctx context.Context, channelID, requesterID string, limit, offset int) ([]*models.ChatMessage, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !channel.HasParticipant(requesterID) {
		return nil, fmt.Errorf("user %s is not a participant of channel %s: %w", requesterID, channelID, models.ErrAccessDenied)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	return s.messageRepo.ListByChannel(ctx, channelID, limit, offset)
}

// ShareEmergencyContext posts system messages summarizing the requester and
// the alert for the companions in the channel. The location, when known, is
// a separate message. This is only ever visible to channel participants.
func (s *ChannelService) ShareEmergencyContext(ctx context.Context, channelID string, alert *models.EmergencyAlert) error {
	requester, err := s.userRepo.GetByID(ctx, alert.UserID)
	if err != nil {
		return err
	}

	summary := "Emergency context:"
	if requester.FirstName != "" {
		summary += fmt.Sprintf(" %s needs support.", requester.FirstName)
	} else {
		summary += " A user needs support."
	}
	if len(requester.MentalHealthNotes) > 0 {
		summary += fmt.Sprintf(" Declared conditions: %s.", strings.Join(requester.MentalHealthNotes, ", "))
	}
	summary += fmt.Sprintf(" Registered emergency contacts: %d.", requester.EmergencyContactCount)
	summary += fmt.Sprintf(" Alert raised at %s.", alert.CreatedAt.Format(time.RFC1123))

	if _, err := s.SendMessage(ctx, channelID, models.SystemSender(), summary, models.MessageSystem); err != nil {
		return err
	}

	if alert.HasLocation() {
		location := fmt.Sprintf("Location: https://maps.google.com/?q=%f,%f", *alert.Lat, *alert.Lon)
		if alert.Address != "" {
			location += fmt.Sprintf(" (%s)", alert.Address)
		}
		if _, err := s.SendMessage(ctx, channelID, models.SystemSender(), location, models.MessageSystem); err != nil {
			return err
		}
	}

	return nil
}

// AddParticipant adds a user to the channel. The acting user must already
// be a participant. A join message is posted.
func (s *ChannelService) AddParticipant(ctx context.Context, channelID, actorID, userID string) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.Archived {
		return fmt.Errorf("channel %s: %w", channelID, models.ErrChannelArchived)
	}
	if !channel.HasParticipant(actorID) {
		return fmt.Errorf("user %s is not a participant of channel %s: %w", actorID, channelID, models.ErrAccessDenied)
	}

	added, err := s.channelRepo.AddParticipant(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if added {
		s.postSystem(ctx, channelID, fmt.Sprintf("%s has joined the conversation.", s.displayName(ctx, userID)))
	}
	return nil
}

// RemoveParticipant removes a user from the channel. The acting user must
// be a participant; users may remove themselves. A leave message is posted.
func (s *ChannelService) RemoveParticipant(ctx context.Context, channelID, actorID, userID string) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if !channel.HasParticipant(actorID) {
		return fmt.Errorf("user %s is not a participant of channel %s: %w", actorID, channelID, models.ErrAccessDenied)
	}

	if err := s.channelRepo.RemoveParticipant(ctx, channelID, userID); err != nil {
		return err
	}
	s.postSystem(ctx, channelID, fmt.Sprintf("%s has left the conversation.", s.displayName(ctx, userID)))
	return nil
}

// Escalate posts a templated system message recording an explicit hand-off
// of the emergency to an external service tier. Escalation is always a
// human action by a participant, never an automatic one.
func (s *ChannelService) Escalate(ctx context.Context, channelID, actorID string, kind models.EscalationKind) error {
	template, ok := escalationTemplates[kind]
	if !ok {
		return fmt.Errorf("unknown escalation kind %q: %w", kind, models.ErrMessageRejected)
	}

	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.Archived {
		return fmt.Errorf("channel %s: %w", channelID, models.ErrChannelArchived)
	}
	if !channel.HasParticipant(actorID) {
		return fmt.Errorf("user %s is not a participant of channel %s: %w", actorID, channelID, models.ErrAccessDenied)
	}

	log.Warn().
		Str("channel_id", channelID).
		Str("actor_id", actorID).
		Str("kind", string(kind)).
		Msg("Emergency escalated")

	if _, err := s.SendMessage(ctx, channelID, models.SystemSender(), template, models.MessageSystem); err != nil {
		return err
	}

	s.notifyParticipants(channel, models.UserSender(actorID), "Emergency escalated", template)
	return nil
}

// ArchiveForAlert closes the channel bound to a resolved alert. A closing
// system message is posted first; history is never deleted.
func (s *ChannelService) ArchiveForAlert(ctx context.Context, alertID string) error {
	channel, err := s.channelRepo.GetByAlertID(ctx, alertID)
	if err != nil {
		return err
	}
	if channel.Archived {
		return nil
	}

	s.postSystem(ctx, channel.ID,
		"This emergency has been resolved. The channel is now closed. Thank you to everyone who helped.")

	if err := s.channelRepo.Archive(ctx, channel.ID); err != nil {
		return err
	}

	log.Info().
		Str("channel_id", channel.ID).
		Str("alert_id", alertID).
		Msg("Emergency channel archived")
	return nil
}

// postSystem persists and broadcasts a system message, logging failures
// instead of propagating them: narration must never fail a business write.
func (s *ChannelService) postSystem(ctx context.Context, channelID, content string) {
	if _, err := s.SendMessage(ctx, channelID, models.SystemSender(), content, models.MessageSystem); err != nil {
		log.Error().
			Err(err).
			Str("channel_id", channelID).
			Msg("Failed to post system message")
	}
}

// broadcast delivers a new message to every online participant
func (s *ChannelService) broadcast(channel *models.ChatChannel, msg *models.ChatMessage) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(channel.Participants, WSMessage{
		Type:      "chat_message",
		ChannelID: channel.ID,
		Data:      msg,
	})
}

// notifyParticipants enqueues a push to every participant except the sender
func (s *ChannelService) notifyParticipants(channel *models.ChatChannel, sender models.Sender, title, body string) {
	if s.notifier == nil {
		return
	}
	senderID, _ := sender.UserID()
	var recipients []string
	for _, p := range channel.Participants {
		if p != senderID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}
	s.notifier.Enqueue(DirectJob(recipients, title, body))
}

// displayName resolves a user's first name for narration, falling back to a
// neutral label
func (s *ChannelService) displayName(ctx context.Context, userID string) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.FirstName == "" {
		return "A participant"
	}
	return user.FirstName
}
