package services

import (
	"context"
	"fmt"
	"time"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// CompanionService handles companion registration, verification and
// availability reporting
type CompanionService struct {
	companionRepo repository.CompanionStore
	userRepo      repository.UserStore
	staleAfter    time.Duration
}

// NewCompanionService creates a new companion service
func NewCompanionService(companionRepo repository.CompanionStore, userRepo repository.UserStore, staleAfter time.Duration) *CompanionService {
	return &CompanionService{
		companionRepo: companionRepo,
		userRepo:      userRepo,
		staleAfter:    staleAfter,
	}
}

// Register creates a pending companion profile for a user and promotes the
// user's role. Profiles start unverified and unavailable.
func (s *CompanionService) Register(ctx context.Context, userID string, specializations []string, availabilityStart, availabilityEnd string, maxDistanceKm float64) (*models.CompanionProfile, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	profile := &models.CompanionProfile{
		UserID:                userID,
		Specializations:       specializations,
		AvailabilityStart:     availabilityStart,
		AvailabilityEnd:       availabilityEnd,
		MaxResponseDistanceKm: maxDistanceKm,
		VerificationStatus:    models.VerificationPending,
		Available:             false,
		Active:                true,
		CreatedAt:             time.Now(),
	}
	if err := s.companionRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRole(ctx, userID, models.RoleCompanion); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Msg("Companion registered, pending verification")
	return profile, nil
}

// Verify marks a companion as verified. Only administrators may verify.
func (s *CompanionService) Verify(ctx context.Context, actorID, companionID string) error {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		return fmt.Errorf("user %s is not an administrator: %w", actorID, models.ErrAccessDenied)
	}

	if err := s.companionRepo.SetVerified(ctx, companionID); err != nil {
		return err
	}

	log.Info().
		Str("companion_id", companionID).
		Str("actor_id", actorID).
		Msg("Companion verified")
	return nil
}

// ReportAvailability records a self-reported availability heartbeat with an
// optional last-known location
func (s *CompanionService) ReportAvailability(ctx context.Context, userID string, available bool, lat, lon *float64) error {
	return s.companionRepo.UpdateAvailability(ctx, userID, available, lat, lon, time.Now())
}

// Deactivate retires a companion profile. Profiles are never deleted.
func (s *CompanionService) Deactivate(ctx context.Context, actorID, companionID string) error {
	if actorID != companionID {
		actor, err := s.userRepo.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			return fmt.Errorf("user %s cannot deactivate companion %s: %w", actorID, companionID, models.ErrAccessDenied)
		}
	}
	return s.companionRepo.Deactivate(ctx, companionID)
}

// SweepStale flags companions unavailable when their last heartbeat is
// older than the configured threshold. Run on a schedule.
func (s *CompanionService) SweepStale(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)
	swept, err := s.companionRepo.MarkStale(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Availability sweep failed")
		return
	}
	if swept > 0 {
		log.Info().Int64("swept", swept).Msg("Marked stale companions unavailable")
	}
}
