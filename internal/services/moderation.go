package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"wellbeing-backend/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	// maxMessageLength bounds ordinary channel messages
	maxMessageLength = 2000
	// maxEmergencyMessageLength is deliberately higher: safety-relevant
	// messages must not be truncated or blocked
	maxEmergencyMessageLength = 5000
)

// selfHarmPhrases are indicator phrases scanned for in every moderated
// message. A match never blocks the message; it is flagged for human
// follow-up only.
var selfHarmPhrases = []string{
	"kill myself",
	"end my life",
	"want to die",
	"hurt myself",
	"no reason to live",
	"suicide",
	"self harm",
	"self-harm",
}

// Moderator runs the content checks applied to user messages before they
// are persisted
type Moderator struct{}

// NewModerator creates a new moderator
func NewModerator() *Moderator {
	return &Moderator{}
}

// Moderate validates message content. Emergency channels use the permissive
// length bound. A self-harm indicator match is logged at elevated severity
// and flagged, but the message is still accepted.
func (m *Moderator) Moderate(channelID, content string, emergency bool) error {
	limit := maxMessageLength
	if emergency {
		limit = maxEmergencyMessageLength
	}

	// Limits are characters, not bytes
	if utf8.RuneCountInString(content) > limit {
		return fmt.Errorf("message exceeds %d characters: %w", limit, models.ErrMessageRejected)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("message is empty: %w", models.ErrMessageRejected)
	}

	if phrase, found := m.scanSelfHarm(content); found {
		log.Warn().
			Str("channel_id", channelID).
			Str("matched_phrase", phrase).
			Bool("self_harm_flag", true).
			Msg("Message matched self-harm indicator, flagged for human follow-up")
	}

	return nil
}

// scanSelfHarm returns the first matched indicator phrase, if any
func (m *Moderator) scanSelfHarm(content string) (string, bool) {
	lowered := strings.ToLower(content)
	for _, phrase := range selfHarmPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}
