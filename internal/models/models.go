package models

import "time"

// UserRole determines what a user is allowed to do
type UserRole string

const (
	RoleUser      UserRole = "user"
	RoleCompanion UserRole = "companion"
	RoleAdmin     UserRole = "admin"
)

// AlertStatus is the lifecycle state of an emergency alert.
// Transitions only move forward: ACTIVE -> RESPONDED -> RESOLVED.
type AlertStatus string

const (
	AlertActive    AlertStatus = "ACTIVE"
	AlertResponded AlertStatus = "RESPONDED"
	AlertResolved  AlertStatus = "RESOLVED"
)

// ChannelType distinguishes chat channel kinds
type ChannelType string

const (
	ChannelIndividual ChannelType = "INDIVIDUAL"
	ChannelGroup      ChannelType = "GROUP"
	ChannelEmergency  ChannelType = "EMERGENCY"
)

// MessageType distinguishes user text from service narration
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageSystem MessageType = "SYSTEM"
)

// VerificationStatus of a companion profile
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// EscalationKind is an external service tier an emergency can be handed to
type EscalationKind string

const (
	EscalateMedical      EscalationKind = "medical"
	EscalatePolice       EscalationKind = "police"
	EscalateCrisisCenter EscalationKind = "crisis_center"
)

// ValidEscalationKind reports whether kind names a known service tier
func ValidEscalationKind(kind EscalationKind) bool {
	switch kind {
	case EscalateMedical, EscalatePolice, EscalateCrisisCenter:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID                    string    `json:"id"`
	Role                  UserRole  `json:"role"`
	FirstName             string    `json:"first_name,omitempty"`
	Token                 string    `json:"token,omitempty"`
	PushToken             *string   `json:"push_token,omitempty"`
	MentalHealthNotes     []string  `json:"mental_health_notes,omitempty"`
	EmergencyContactCount int       `json:"emergency_contact_count"`
	CreatedAt             time.Time `json:"created_at"`
}

// CompanionProfile holds the matching-relevant state of a volunteer responder.
// Availability bounds are local times of day in "15:04" form; a window whose
// end precedes its start wraps past midnight.
type CompanionProfile struct {
	UserID                string             `json:"user_id"`
	Specializations       []string           `json:"specializations"`
	AvailabilityStart     string             `json:"availability_start"`
	AvailabilityEnd       string             `json:"availability_end"`
	MaxResponseDistanceKm float64            `json:"max_response_distance_km"`
	VerificationStatus    VerificationStatus `json:"verification_status"`
	Available             bool               `json:"available"`
	LastLat               *float64           `json:"last_lat,omitempty"`
	LastLon               *float64           `json:"last_lon,omitempty"`
	LastSeenAt            *time.Time         `json:"last_seen_at,omitempty"`
	Active                bool               `json:"active"`
	CreatedAt             time.Time          `json:"created_at"`
}

// CompanionSummary is what the matching engine exposes to callers
type CompanionSummary struct {
	UserID                string   `json:"user_id"`
	Specializations       []string `json:"specializations"`
	MaxResponseDistanceKm float64  `json:"max_response_distance_km"`
}

// EmergencyAlert is one panic activation and its lifecycle record.
// Never deleted; kept for audit after resolution.
type EmergencyAlert struct {
	ID                       string      `json:"id"`
	UserID                   string      `json:"user_id"`
	Lat                      *float64    `json:"lat,omitempty"`
	Lon                      *float64    `json:"lon,omitempty"`
	Address                  string      `json:"address,omitempty"`
	Status                   AlertStatus `json:"status"`
	RespondingCompanions     []string    `json:"responding_companions"`
	OfficialContactsNotified []string    `json:"official_contacts_notified"`
	CreatedAt                time.Time   `json:"created_at"`
	ResolvedAt               *time.Time  `json:"resolved_at,omitempty"`
}

// HasLocation reports whether the alert carries coordinates
func (a *EmergencyAlert) HasLocation() bool {
	return a.Lat != nil && a.Lon != nil
}

// ChatChannel is a persistent conversation between participants.
// An EMERGENCY channel is bound 1:1 to an alert via EmergencyAlertID.
type ChatChannel struct {
	ID               string      `json:"id"`
	Type             ChannelType `json:"type"`
	Participants     []string    `json:"participants"`
	EmergencyAlertID *string     `json:"emergency_alert_id,omitempty"`
	Archived         bool        `json:"archived"`
	CreatedAt        time.Time   `json:"created_at"`
}

// HasParticipant reports whether userID is a member of the channel
func (c *ChatChannel) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatMessage is immutable once created; ordered by CreatedAt within a channel
type ChatMessage struct {
	ID        string      `json:"id"`
	ChannelID string      `json:"channel_id"`
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}

// OfficialContact is a static per-country emergency service entry
type OfficialContact struct {
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number"`
	Type         string `json:"type"`
	Available24h bool   `json:"available_24h"`
	Country      string `json:"country"`
}
