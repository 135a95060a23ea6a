package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wellbeing-backend/internal/models"
)

// In-memory repository fakes. Each is safe for concurrent use so the
// lifecycle tests can hammer them from many goroutines.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	user.PushToken = pushToken
	return nil
}

func (f *fakeUserStore) SetRole(_ context.Context, userID string, role models.UserRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	user.Role = role
	return nil
}

type fakeCompanionStore struct {
	mu       sync.Mutex
	profiles map[string]*models.CompanionProfile
}

func newFakeCompanionStore() *fakeCompanionStore {
	return &fakeCompanionStore{profiles: make(map[string]*models.CompanionProfile)}
}

func (f *fakeCompanionStore) Create(_ context.Context, profile *models.CompanionProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *profile
	f.profiles[profile.UserID] = &copied
	return nil
}

func (f *fakeCompanionStore) GetByUserID(_ context.Context, userID string) (*models.CompanionProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeCompanionStore) ListVerifiedAvailable(_ context.Context) ([]*models.CompanionProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CompanionProfile
	for _, p := range f.profiles {
		if p.Active && p.Available && p.VerificationStatus == models.VerificationVerified {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCompanionStore) SetVerified(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	profile.VerificationStatus = models.VerificationVerified
	return nil
}

func (f *fakeCompanionStore) UpdateAvailability(_ context.Context, userID string, available bool, lat, lon *float64, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	profile.Available = available
	profile.LastLat = lat
	profile.LastLon = lon
	profile.LastSeenAt = &seenAt
	return nil
}

func (f *fakeCompanionStore) Deactivate(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	profile.Active = false
	profile.Available = false
	return nil
}

func (f *fakeCompanionStore) MarkStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var swept int64
	for _, p := range f.profiles {
		if p.Available && (p.LastSeenAt == nil || p.LastSeenAt.Before(cutoff)) {
			p.Available = false
			swept++
		}
	}
	return swept, nil
}

type fakeAlertStore struct {
	mu         sync.Mutex
	alerts     map[string]*models.EmergencyAlert
	responders map[string][]string
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{
		alerts:     make(map[string]*models.EmergencyAlert),
		responders: make(map[string][]string),
	}
}

func (f *fakeAlertStore) Create(_ context.Context, alert *models.EmergencyAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *alert
	f.alerts[alert.ID] = &copied
	return nil
}

func (f *fakeAlertStore) GetByID(_ context.Context, id string) (*models.EmergencyAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
	}
	copied := *alert
	copied.RespondingCompanions = append([]string(nil), f.responders[id]...)
	return &copied, nil
}

func (f *fakeAlertStore) AddResponder(_ context.Context, alertID, companionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[alertID]
	if !ok {
		return false, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
	}
	if alert.Status == models.AlertResolved {
		return false, fmt.Errorf("alert %s: %w", alertID, models.ErrAlertAlreadyResolved)
	}
	for _, id := range f.responders[alertID] {
		if id == companionID {
			return false, nil
		}
	}
	f.responders[alertID] = append(f.responders[alertID], companionID)
	return true, nil
}

func (f *fakeAlertStore) TransitionToResponded(_ context.Context, alertID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[alertID]
	if !ok {
		return false, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
	}
	if alert.Status != models.AlertActive {
		return false, nil
	}
	alert.Status = models.AlertResponded
	return true, nil
}

func (f *fakeAlertStore) Resolve(_ context.Context, alertID string, resolvedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[alertID]
	if !ok {
		return false, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
	}
	if alert.Status == models.AlertResolved {
		return false, nil
	}
	alert.Status = models.AlertResolved
	alert.ResolvedAt = &resolvedAt
	return true, nil
}

func (f *fakeAlertStore) ListResponders(_ context.Context, alertID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.responders[alertID]...), nil
}

type fakeChannelStore struct {
	mu           sync.Mutex
	channels     map[string]*models.ChatChannel
	byAlert      map[string]string
	participants map[string][]string
}

func newFakeChannelStore() *fakeChannelStore {
	return &fakeChannelStore{
		channels:     make(map[string]*models.ChatChannel),
		byAlert:      make(map[string]string),
		participants: make(map[string][]string),
	}
}

func (f *fakeChannelStore) CreateForAlert(_ context.Context, channel *models.ChatChannel) (*models.ChatChannel, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alertID := *channel.EmergencyAlertID
	if existingID, ok := f.byAlert[alertID]; ok {
		return f.snapshot(existingID), false, nil
	}
	copied := *channel
	f.channels[channel.ID] = &copied
	f.byAlert[alertID] = channel.ID
	return f.snapshot(channel.ID), true, nil
}

func (f *fakeChannelStore) GetByID(_ context.Context, id string) (*models.ChatChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[id]; !ok {
		return nil, fmt.Errorf("channel %s: %w", id, models.ErrNotFound)
	}
	return f.snapshot(id), nil
}

func (f *fakeChannelStore) GetByAlertID(_ context.Context, alertID string) (*models.ChatChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byAlert[alertID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", alertID, models.ErrNotFound)
	}
	return f.snapshot(id), nil
}

func (f *fakeChannelStore) AddParticipant(_ context.Context, channelID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, models.ErrNotFound)
	}
	for _, p := range f.participants[channelID] {
		if p == userID {
			return false, nil
		}
	}
	f.participants[channelID] = append(f.participants[channelID], userID)
	return true, nil
}

func (f *fakeChannelStore) RemoveParticipant(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.participants[channelID]
	for i, p := range members {
		if p == userID {
			f.participants[channelID] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("participant %s in channel %s: %w", userID, channelID, models.ErrNotFound)
}

func (f *fakeChannelStore) Archive(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, models.ErrNotFound)
	}
	channel.Archived = true
	return nil
}

// snapshot must be called with the lock held
func (f *fakeChannelStore) snapshot(id string) *models.ChatChannel {
	copied := *f.channels[id]
	copied.Participants = append([]string(nil), f.participants[id]...)
	return &copied
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []*models.ChatMessage
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Create(_ context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *msg
	f.messages = append(f.messages, &copied)
	return nil
}

func (f *fakeMessageStore) ListByChannel(_ context.Context, channelID string, limit, offset int) ([]*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ChatMessage
	for _, m := range f.messages {
		if m.ChannelID == channelID {
			copied := *m
			out = append(out, &copied)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type fakeContactStore struct {
	mu       sync.Mutex
	contacts map[string][]*models.OfficialContact
	calls    int
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{contacts: make(map[string][]*models.OfficialContact)}
}

func (f *fakeContactStore) ListByCountry(_ context.Context, country string) ([]*models.OfficialContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.contacts[country], nil
}

type pushRecord struct {
	deviceToken string
	title       string
	body        string
}

type fakePushSender struct {
	mu     sync.Mutex
	pushes []pushRecord
	err    error
}

func (f *fakePushSender) Push(_ context.Context, deviceToken, title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, pushRecord{deviceToken: deviceToken, title: title, body: body})
	return nil
}

func (f *fakePushSender) sent() []pushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushRecord(nil), f.pushes...)
}
