package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"wellbeing-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv wires the services against in-memory fakes. The notifier is not
// started, so enqueued jobs simply buffer; notifier behavior has its own
// tests.
type testEnv struct {
	users      *fakeUserStore
	companions *fakeCompanionStore
	alerts     *fakeAlertStore
	channels   *fakeChannelStore
	messages   *fakeMessageStore
	sender     *fakePushSender
	channelSvc *ChannelService
	alertSvc   *AlertService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:      newFakeUserStore(),
		companions: newFakeCompanionStore(),
		alerts:     newFakeAlertStore(),
		channels:   newFakeChannelStore(),
		messages:   newFakeMessageStore(),
		sender:     &fakePushSender{},
	}

	matching := NewMatchingService(env.companions)
	notifier := NewNotifier(env.sender, env.users, matching, nil, 2, 1024)
	env.channelSvc = NewChannelService(env.channels, env.messages, env.users, NewModerator(), notifier, nil)
	env.alertSvc = NewAlertService(env.alerts, env.companions, env.channelSvc, notifier, nil)

	return env
}

func (e *testEnv) addUser(t *testing.T, id, firstName string) {
	t.Helper()
	require.NoError(t, e.users.Create(context.Background(), &models.User{
		ID:        id,
		Role:      models.RoleUser,
		FirstName: firstName,
		CreatedAt: time.Now(),
	}))
}

func (e *testEnv) addVerifiedCompanion(t *testing.T, id, firstName string) {
	t.Helper()
	e.addUser(t, id, firstName)
	require.NoError(t, e.companions.Create(context.Background(), makeProfile(id, nil)))
}

func (e *testEnv) systemMessages(t *testing.T, channelID string) []*models.ChatMessage {
	t.Helper()
	all, err := e.messages.ListByChannel(context.Background(), channelID, 1000, 0)
	require.NoError(t, err)
	var system []*models.ChatMessage
	for _, m := range all {
		if m.Type == models.MessageSystem {
			system = append(system, m)
		}
	}
	return system
}

func TestActivate_CreatesActiveAlertAndChannel(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.AlertActive, alert.Status)
	assert.Empty(t, alert.RespondingCompanions)
	assert.Nil(t, alert.ResolvedAt)

	channel, err := env.channels.GetByAlertID(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChannelEmergency, channel.Type)
	assert.Equal(t, []string{"user-a"}, channel.Participants)
	assert.False(t, channel.Archived)

	// Welcome narration is posted at creation
	system := env.systemMessages(t, channel.ID)
	require.NotEmpty(t, system)
	assert.True(t, system[0].Sender.IsSystem())
}

func TestRespond_TransitionsAndJoinsChannel(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addVerifiedCompanion(t, "comp-b", "Bob")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	updated, err := env.alertSvc.Respond(context.Background(), alert.ID, "comp-b")
	require.NoError(t, err)

	assert.Equal(t, models.AlertResponded, updated.Status)
	assert.Equal(t, []string{"comp-b"}, updated.RespondingCompanions)

	channel, err := env.channels.GetByAlertID(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-a", "comp-b"}, channel.Participants)
}

func TestRespond_UnverifiedCompanionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addUser(t, "comp-b", "Bob")
	require.NoError(t, env.companions.Create(context.Background(), makeProfile("comp-b", func(p *models.CompanionProfile) {
		p.VerificationStatus = models.VerificationPending
	})))

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	_, err = env.alertSvc.Respond(context.Background(), alert.ID, "comp-b")
	assert.ErrorIs(t, err, models.ErrNotVerified)
}

func TestRespond_ResolvedAlertRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addVerifiedCompanion(t, "comp-b", "Bob")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	_, err = env.alertSvc.Resolve(context.Background(), alert.ID, "user-a")
	require.NoError(t, err)

	_, err = env.alertSvc.Respond(context.Background(), alert.ID, "comp-b")
	assert.ErrorIs(t, err, models.ErrAlertAlreadyResolved)
}

func TestRespond_ConcurrentCompanions(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")

	const companionCount = 20
	ids := make([]string, companionCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("comp-%02d", i)
		env.addVerifiedCompanion(t, ids[i], fmt.Sprintf("Companion%02d", i))
	}

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(companionID string) {
			defer wg.Done()
			_, err := env.alertSvc.Respond(context.Background(), alert.ID, companionID)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	// No responder may be lost, regardless of interleaving
	final, err := env.alertSvc.GetByID(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResponded, final.Status)
	assert.ElementsMatch(t, ids, final.RespondingCompanions)

	// The transition side effect runs exactly once: one context summary
	channel, err := env.channels.GetByAlertID(context.Background(), alert.ID)
	require.NoError(t, err)

	contextMessages := 0
	for _, m := range env.systemMessages(t, channel.ID) {
		if len(m.Content) >= len("Emergency context:") && m.Content[:len("Emergency context:")] == "Emergency context:" {
			contextMessages++
		}
	}
	assert.Equal(t, 1, contextMessages)

	// Every companion joined the channel exactly once
	assert.Len(t, channel.Participants, companionCount+1)
}

// resolveRacingAlertStore resolves the alert right before the responder
// insert runs, reproducing a resolve that lands between Respond's status
// read and the set add.
type resolveRacingAlertStore struct {
	*fakeAlertStore
	resolveOnce sync.Once
}

func (s *resolveRacingAlertStore) AddResponder(ctx context.Context, alertID, companionID string) (bool, error) {
	s.resolveOnce.Do(func() {
		s.fakeAlertStore.Resolve(ctx, alertID, time.Now())
	})
	return s.fakeAlertStore.AddResponder(ctx, alertID, companionID)
}

func TestRespond_ResolveRacingResponderAdd(t *testing.T) {
	users := newFakeUserStore()
	companions := newFakeCompanionStore()
	alerts := &resolveRacingAlertStore{fakeAlertStore: newFakeAlertStore()}
	channels := newFakeChannelStore()
	messages := newFakeMessageStore()

	matching := NewMatchingService(companions)
	notifier := NewNotifier(&fakePushSender{}, users, matching, nil, 2, 1024)
	channelSvc := NewChannelService(channels, messages, users, NewModerator(), notifier, nil)
	alertSvc := NewAlertService(alerts, companions, channelSvc, notifier, nil)

	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &models.User{ID: "user-a", Role: models.RoleUser, FirstName: "Alice", CreatedAt: time.Now()}))
	require.NoError(t, users.Create(ctx, &models.User{ID: "comp-b", Role: models.RoleCompanion, FirstName: "Bob", CreatedAt: time.Now()}))
	require.NoError(t, companions.Create(ctx, makeProfile("comp-b", nil)))

	alert, err := alertSvc.Activate(ctx, "user-a", nil, nil, "")
	require.NoError(t, err)

	_, err = alertSvc.Respond(ctx, alert.ID, "comp-b")
	require.ErrorIs(t, err, models.ErrAlertAlreadyResolved)

	// The resolved alert stayed immutable
	final, err := alerts.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, final.Status)
	assert.Empty(t, final.RespondingCompanions)

	// And the companion never joined the channel
	channel, err := channels.GetByAlertID(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, channel.HasParticipant("comp-b"))
}

func TestResolve_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addVerifiedCompanion(t, "comp-b", "Bob")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)
	_, err = env.alertSvc.Respond(context.Background(), alert.ID, "comp-b")
	require.NoError(t, err)

	first, err := env.alertSvc.Resolve(context.Background(), alert.ID, "user-a")
	require.NoError(t, err)
	require.Equal(t, models.AlertResolved, first.Status)
	require.NotNil(t, first.ResolvedAt)

	// Second resolve is a no-op success, not an error
	second, err := env.alertSvc.Resolve(context.Background(), alert.ID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, second.Status)
	assert.Equal(t, first.ResolvedAt.Unix(), second.ResolvedAt.Unix())

	// Only one closing narration despite the duplicate resolve
	channel, err := env.channels.GetByAlertID(context.Background(), alert.ID)
	require.NoError(t, err)
	closings := 0
	for _, m := range env.systemMessages(t, channel.ID) {
		if m.Content == "This emergency has been resolved. The channel is now closed. Thank you to everyone who helped." {
			closings++
		}
	}
	assert.Equal(t, 1, closings)
}

func TestResolve_ByRespondingCompanion(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addVerifiedCompanion(t, "comp-b", "Bob")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)
	_, err = env.alertSvc.Respond(context.Background(), alert.ID, "comp-b")
	require.NoError(t, err)

	resolved, err := env.alertSvc.Resolve(context.Background(), alert.ID, "comp-b")
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
}

func TestResolve_StrangerDenied(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addUser(t, "stranger", "Sam")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	_, err = env.alertSvc.Resolve(context.Background(), alert.ID, "stranger")
	assert.ErrorIs(t, err, models.ErrAccessDenied)
}

func TestResolve_FromActiveWithoutResponder(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")

	alert, err := env.alertSvc.Activate(context.Background(), "user-a", nil, nil, "")
	require.NoError(t, err)

	// ACTIVE -> RESOLVED is legal; the user calmed down before anyone responded
	resolved, err := env.alertSvc.Resolve(context.Background(), alert.ID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, resolved.Status)
}

func TestEmergencyFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user-a", "Alice")
	env.addVerifiedCompanion(t, "comp-b", "Bob")

	ctx := context.Background()

	// Activation without location
	alert, err := env.alertSvc.Activate(ctx, "user-a", nil, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.AlertActive, alert.Status)
	require.Empty(t, alert.RespondingCompanions)

	// Companion responds
	alert, err = env.alertSvc.Respond(ctx, alert.ID, "comp-b")
	require.NoError(t, err)
	require.Equal(t, models.AlertResponded, alert.Status)

	channel, err := env.channels.GetByAlertID(ctx, alert.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user-a", "comp-b"}, channel.Participants)

	welcome := env.systemMessages(t, channel.ID)
	require.NotEmpty(t, welcome)

	// Companion speaks; the message is ordered after the narration
	sent, err := env.channelSvc.SendMessage(ctx, channel.ID, models.UserSender("comp-b"), "I'm here to help", models.MessageText)
	require.NoError(t, err)

	history, err := env.channelSvc.ListMessages(ctx, channel.ID, "user-a", 100, 0)
	require.NoError(t, err)
	require.Equal(t, sent.ID, history[len(history)-1].ID)
	assert.Equal(t, models.MessageText, history[len(history)-1].Type)
	assert.Equal(t, models.MessageSystem, history[0].Type)

	// Owner resolves; the channel closes
	alert, err = env.alertSvc.Resolve(ctx, alert.ID, "user-a")
	require.NoError(t, err)
	require.Equal(t, models.AlertResolved, alert.Status)

	channel, err = env.channels.GetByAlertID(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, channel.Archived)

	system := env.systemMessages(t, channel.ID)
	assert.Contains(t, system[len(system)-1].Content, "resolved")

	// Further non-system writes are rejected
	_, err = env.channelSvc.SendMessage(ctx, channel.ID, models.UserSender("comp-b"), "still there?", models.MessageText)
	assert.ErrorIs(t, err, models.ErrChannelArchived)
}
