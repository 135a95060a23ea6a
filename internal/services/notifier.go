package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wellbeing-backend/internal/config"
	"wellbeing-backend/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushSender delivers a push notification to one device. Delivery is best
// effort; the transport owns its own retries.
type PushSender interface {
	Push(ctx context.Context, deviceToken, title, body string) error
}

// APNsSender sends push notifications through Apple's push service
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender creates a push sender from the APNs token credentials
func NewAPNsSender(cfg config.APNsConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{client: client, topic: cfg.Topic}, nil
}

// Push sends one notification to a device token
func (s *APNsSender) Push(ctx context.Context, deviceToken, title, body string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Sound("default"),
	}

	res, err := s.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %s", res.Reason)
	}
	return nil
}

// jobKind selects how a notification job is expanded by the workers
type jobKind int

const (
	// jobDirect pushes to an explicit recipient list
	jobDirect jobKind = iota
	// jobAlertFanout resolves eligible companions through the matching
	// engine at delivery time, then pushes to each
	jobAlertFanout
)

// Job is one unit of notification work handed off by a write path
type Job struct {
	kind       jobKind
	recipients []string
	title      string
	body       string

	alertID string
	lat     *float64
	lon     *float64
}

// DirectJob builds a job that notifies an explicit set of users
func DirectJob(recipients []string, title, body string) Job {
	return Job{kind: jobDirect, recipients: recipients, title: title, body: body}
}

// AlertFanoutJob builds a job that notifies all companions eligible for the
// alert's location at the time of delivery
func AlertFanoutJob(alertID string, lat, lon *float64, title, body string) Job {
	return Job{kind: jobAlertFanout, alertID: alertID, lat: lat, lon: lon, title: title, body: body}
}

// Notifier is the notification fan-out. Write paths enqueue jobs and return
// immediately; a worker pool drains the queue and performs the pushes.
// Failures never propagate to the operation that enqueued the job.
type Notifier struct {
	queue    chan Job
	sender   PushSender
	userRepo repository.UserStore
	matcher  *MatchingService
	hub      *WSHub
	workers  int
	wg       sync.WaitGroup
	stopOnce sync.Once
	mu       sync.Mutex
	stopped  bool
}

// NewNotifier creates a notification fan-out with the given worker pool size
func NewNotifier(sender PushSender, userRepo repository.UserStore, matcher *MatchingService, hub *WSHub, workers, queueSize int) *Notifier {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Notifier{
		queue:    make(chan Job, queueSize),
		sender:   sender,
		userRepo: userRepo,
		matcher:  matcher,
		hub:      hub,
		workers:  workers,
	}
}

// Start launches the worker pool
func (n *Notifier) Start(ctx context.Context) {
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-n.queue:
					if !ok {
						return
					}
					n.process(ctx, job)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight jobs to finish. The stopped
// flag is set under the lock before the close, so a concurrent Enqueue can
// never send on the closed queue.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		n.mu.Lock()
		n.stopped = true
		n.mu.Unlock()
		close(n.queue)
	})
	n.wg.Wait()
}

// Enqueue hands a job to the worker pool without blocking the caller. When
// the queue is full, or the notifier has already been stopped, the job is
// dropped and logged; notification delivery is best effort by contract and
// must never stall a life-safety write.
func (n *Notifier) Enqueue(job Job) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		log.Warn().
			Str("title", job.title).
			Str("alert_id", job.alertID).
			Msg("Notifier stopped, dropping job")
		return
	}
	select {
	case n.queue <- job:
	default:
		log.Error().
			Str("title", job.title).
			Str("alert_id", job.alertID).
			Msg("Notification queue full, dropping job")
	}
}

// process expands and delivers one job
func (n *Notifier) process(ctx context.Context, job Job) {
	recipients := job.recipients

	if job.kind == jobAlertFanout {
		eligible, err := n.matcher.FindEligible(ctx, job.lat, job.lon, time.Now())
		if err != nil {
			log.Error().
				Err(err).
				Str("alert_id", job.alertID).
				Msg("Failed to resolve eligible companions for fan-out")
			return
		}
		for _, c := range eligible {
			recipients = append(recipients, c.UserID)
		}
		log.Info().
			Str("alert_id", job.alertID).
			Int("companion_count", len(eligible)).
			Msg("Fanning out alert notification")
	}

	for _, userID := range recipients {
		n.deliver(ctx, userID, job)
	}
}

// deliver pushes to one recipient, catching every failure
func (n *Notifier) deliver(ctx context.Context, userID string, job Job) {
	if n.hub != nil {
		n.hub.Broadcast([]string{userID}, WSMessage{
			Type:    "notification",
			AlertID: job.alertID,
			Message: job.body,
		})
	}

	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to load notification recipient")
		return
	}
	if user.PushToken == nil || *user.PushToken == "" {
		return
	}

	if err := n.sender.Push(ctx, *user.PushToken, job.title, job.body); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("title", job.title).
			Msg("Failed to deliver push notification")
	}
}
