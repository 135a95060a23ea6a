package repository

import (
	"context"
	"time"

	"wellbeing-backend/internal/models"
)

// UserStore handles persistence for users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	SetRole(ctx context.Context, userID string, role models.UserRole) error
}

// CompanionStore handles persistence for companion profiles
type CompanionStore interface {
	Create(ctx context.Context, profile *models.CompanionProfile) error
	GetByUserID(ctx context.Context, userID string) (*models.CompanionProfile, error)
	// ListVerifiedAvailable returns active, verified profiles currently
	// flagged available. Time-window and distance filtering happen in the
	// matching engine, not in SQL.
	ListVerifiedAvailable(ctx context.Context) ([]*models.CompanionProfile, error)
	SetVerified(ctx context.Context, userID string) error
	UpdateAvailability(ctx context.Context, userID string, available bool, lat, lon *float64, seenAt time.Time) error
	Deactivate(ctx context.Context, userID string) error
	// MarkStale flags profiles unavailable when their last heartbeat is older
	// than the cutoff. Returns how many profiles were swept.
	MarkStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertStore handles persistence for emergency alerts.
// The responder set and the state transition are updated with conditional
// statements so concurrent responders cannot lose updates or double-fire
// the ACTIVE -> RESPONDED transition.
type AlertStore interface {
	Create(ctx context.Context, alert *models.EmergencyAlert) error
	GetByID(ctx context.Context, id string) (*models.EmergencyAlert, error)
	// AddResponder atomically adds the companion to the alert's responder
	// set. The add is refused with ErrAlertAlreadyResolved when the alert is
	// RESOLVED, checked in the same statement as the insert. Reports whether
	// the companion was newly added.
	AddResponder(ctx context.Context, alertID, companionID string) (bool, error)
	// TransitionToResponded moves the alert from ACTIVE to RESPONDED.
	// Reports whether this call performed the transition; at most one
	// concurrent caller observes true.
	TransitionToResponded(ctx context.Context, alertID string) (bool, error)
	// Resolve moves the alert to RESOLVED. Reports whether this call
	// performed the transition; false means it was already resolved.
	Resolve(ctx context.Context, alertID string, resolvedAt time.Time) (bool, error)
	ListResponders(ctx context.Context, alertID string) ([]string, error)
}

// ChannelStore handles persistence for chat channels
type ChannelStore interface {
	// CreateForAlert creates the emergency channel bound to the alert, or
	// returns the existing one. Creation is idempotent per alert.
	CreateForAlert(ctx context.Context, channel *models.ChatChannel) (*models.ChatChannel, bool, error)
	GetByID(ctx context.Context, id string) (*models.ChatChannel, error)
	GetByAlertID(ctx context.Context, alertID string) (*models.ChatChannel, error)
	// AddParticipant atomically adds the user; reports whether the user was
	// newly added.
	AddParticipant(ctx context.Context, channelID, userID string) (bool, error)
	RemoveParticipant(ctx context.Context, channelID, userID string) error
	Archive(ctx context.Context, channelID string) error
}

// MessageStore handles persistence for chat messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	// ListByChannel returns messages ordered by creation time ascending.
	ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]*models.ChatMessage, error)
}

// ContactStore handles lookups of static official emergency contacts
type ContactStore interface {
	ListByCountry(ctx context.Context, country string) ([]*models.OfficialContact, error)
}
