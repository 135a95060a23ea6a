package models

import "encoding/json"

// Sender identifies the origin of a chat message: either a real user or the
// service itself. Modeled as a closed type rather than a magic sender id so
// participant checks can never mistake service narration for a spoofable user.
type Sender struct {
	userID string
	system bool
}

// UserSender returns a sender for a real user id
func UserSender(userID string) Sender {
	return Sender{userID: userID}
}

// SystemSender returns the service's own sender identity
func SystemSender() Sender {
	return Sender{system: true}
}

// IsSystem reports whether the message was authored by the service
func (s Sender) IsSystem() bool {
	return s.system
}

// UserID returns the sending user's id and whether the sender is a real user
func (s Sender) UserID() (string, bool) {
	if s.system {
		return "", false
	}
	return s.userID, true
}

// String renders the sender for logs and API payloads
func (s Sender) String() string {
	if s.system {
		return "system"
	}
	return s.userID
}

// MarshalJSON renders the system sender as the literal "system"
func (s Sender) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either a user id or the literal "system"
func (s *Sender) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "system" {
		*s = SystemSender()
		return nil
	}
	*s = UserSender(raw)
	return nil
}
