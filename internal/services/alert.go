package services

import (
	"context"
	"fmt"
	"time"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlertService owns the emergency alert state machine:
// ACTIVE -> RESPONDED -> RESOLVED, forward only
type AlertService struct {
	alertRepo     repository.AlertStore
	companionRepo repository.CompanionStore
	channels      *ChannelService
	notifier      *Notifier
	archiver      *ArchiveService
}

// NewAlertService creates a new alert service
func NewAlertService(
	alertRepo repository.AlertStore,
	companionRepo repository.CompanionStore,
	channels *ChannelService,
	notifier *Notifier,
	archiver *ArchiveService,
) *AlertService {
	return &AlertService{
		alertRepo:     alertRepo,
		companionRepo: companionRepo,
		channels:      channels,
		notifier:      notifier,
		archiver:      archiver,
	}
}

// Activate raises a new emergency alert for a user. The alert is persisted
// as ACTIVE and returned immediately; companion lookup and push delivery
// happen on the notification queue and are never in the critical path of
// the write. The emergency channel is created right away so the user can
// start talking while waiting for a responder.
func (s *AlertService) Activate(ctx context.Context, userID string, lat, lon *float64, address string) (*models.EmergencyAlert, error) {
	alert := &models.EmergencyAlert{
		ID:                       uuid.New().String(),
		UserID:                   userID,
		Lat:                      lat,
		Lon:                      lon,
		Address:                  address,
		Status:                   models.AlertActive,
		OfficialContactsNotified: []string{},
		CreatedAt:                time.Now(),
	}

	if err := s.alertRepo.Create(ctx, alert); err != nil {
		return nil, err
	}

	log.Info().
		Str("alert_id", alert.ID).
		Str("user_id", userID).
		Bool("has_location", alert.HasLocation()).
		Msg("Emergency alert activated")

	if _, err := s.channels.EnsureChannelForAlert(ctx, alert); err != nil {
		// The alert is already committed; a channel will be created again
		// at the first companion response.
		log.Error().
			Err(err).
			Str("alert_id", alert.ID).
			Msg("Failed to create emergency channel at activation")
	}

	s.notifier.Enqueue(AlertFanoutJob(alert.ID, lat, lon,
		"Emergency alert", "Someone nearby needs support right now."))

	return alert, nil
}

// GetByID returns an alert with its responder set
func (s *AlertService) GetByID(ctx context.Context, alertID string) (*models.EmergencyAlert, error) {
	return s.alertRepo.GetByID(ctx, alertID)
}

// Respond records that a companion is responding to an alert. The responder
// set add is atomic and guarded on status at the storage layer, so concurrent
// responders never lose each other and a resolve landing mid-request cannot
// grow a resolved alert's responder set. The ACTIVE -> RESPONDED transition
// fires exactly once no matter how many companions respond in the same
// instant. Only the transition winner runs
// the first-responder side effects (context sharing, owner notification);
// every newly added responder joins the channel.
func (s *AlertService) Respond(ctx context.Context, alertID, companionID string) (*models.EmergencyAlert, error) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status == models.AlertResolved {
		return nil, fmt.Errorf("alert %s: %w", alertID, models.ErrAlertAlreadyResolved)
	}

	profile, err := s.companionRepo.GetByUserID(ctx, companionID)
	if err != nil {
		return nil, err
	}
	if profile.VerificationStatus != models.VerificationVerified {
		return nil, fmt.Errorf("companion %s: %w", companionID, models.ErrNotVerified)
	}

	added, err := s.alertRepo.AddResponder(ctx, alertID, companionID)
	if err != nil {
		return nil, err
	}

	transitioned, err := s.alertRepo.TransitionToResponded(ctx, alertID)
	if err != nil {
		return nil, err
	}

	channel, err := s.channels.EnsureChannelForAlert(ctx, alert)
	if err != nil {
		return nil, err
	}

	if added {
		if err := s.channels.JoinResponder(ctx, channel.ID, companionID); err != nil {
			return nil, err
		}
	}

	if transitioned {
		log.Info().
			Str("alert_id", alertID).
			Str("companion_id", companionID).
			Msg("First companion responded, alert is now RESPONDED")

		if err := s.channels.ShareEmergencyContext(ctx, channel.ID, alert); err != nil {
			log.Error().
				Err(err).
				Str("alert_id", alertID).
				Msg("Failed to share emergency context")
		}

		s.notifier.Enqueue(DirectJob([]string{alert.UserID},
			"A companion is responding", "A companion has responded to your alert and joined your channel."))
	}

	return s.alertRepo.GetByID(ctx, alertID)
}

// Resolve closes an alert. Legal from ACTIVE or RESPONDED; only the alert
// owner or a responding companion may resolve. Resolving an already
// resolved alert is a no-op success so duplicate requests from a flaky
// client do not error.
func (s *AlertService) Resolve(ctx context.Context, alertID, actorID string) (*models.EmergencyAlert, error) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if !s.canResolve(alert, actorID) {
		return nil, fmt.Errorf("user %s cannot resolve alert %s: %w", actorID, alertID, models.ErrAccessDenied)
	}

	resolved, err := s.alertRepo.Resolve(ctx, alertID, time.Now())
	if err != nil {
		return nil, err
	}

	if resolved {
		log.Info().
			Str("alert_id", alertID).
			Str("actor_id", actorID).
			Msg("Emergency alert resolved")

		if err := s.channels.ArchiveForAlert(ctx, alertID); err != nil {
			log.Error().
				Err(err).
				Str("alert_id", alertID).
				Msg("Failed to archive emergency channel")
		}

		recipients := append([]string{alert.UserID}, alert.RespondingCompanions...)
		s.notifier.Enqueue(DirectJob(recipients,
			"Emergency resolved", "The emergency has been marked as resolved."))

		if s.archiver != nil {
			s.archiver.ExportTranscript(ctx, alertID)
		}
	}

	return s.alertRepo.GetByID(ctx, alertID)
}

// canResolve reports whether the actor is the alert owner or a responder
func (s *AlertService) canResolve(alert *models.EmergencyAlert, actorID string) bool {
	if alert.UserID == actorID {
		return true
	}
	for _, id := range alert.RespondingCompanions {
		if id == actorID {
			return true
		}
	}
	return false
}
