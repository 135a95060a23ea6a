package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ArchiveService exports resolved-alert transcripts to object storage for
// audit. Export is best effort: failures are logged, never propagated to
// the resolve path.
type ArchiveService struct {
	alertRepo   repository.AlertStore
	channelRepo repository.ChannelStore
	messageRepo repository.MessageStore
	s3Client    *s3.Client
	bucket      string
}

// NewArchiveService creates a new archive service
func NewArchiveService(
	alertRepo repository.AlertStore,
	channelRepo repository.ChannelStore,
	messageRepo repository.MessageStore,
	awsRegion, bucket string,
) (*ArchiveService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ArchiveService{
		alertRepo:   alertRepo,
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		s3Client:    s3.NewFromConfig(cfg),
		bucket:      bucket,
	}, nil
}

// transcript is the archived record of one resolved emergency
type transcript struct {
	Alert    *models.EmergencyAlert `json:"alert"`
	Channel  *models.ChatChannel    `json:"channel"`
	Messages []*models.ChatMessage  `json:"messages"`
}

// ExportTranscript uploads the full channel history of a resolved alert
func (s *ArchiveService) ExportTranscript(ctx context.Context, alertID string) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		log.Error().Err(err).Str("alert_id", alertID).Msg("Transcript export: failed to load alert")
		return
	}

	channel, err := s.channelRepo.GetByAlertID(ctx, alertID)
	if err != nil {
		log.Error().Err(err).Str("alert_id", alertID).Msg("Transcript export: failed to load channel")
		return
	}

	// Full history; archived channels cannot grow past this point.
	messages, err := s.messageRepo.ListByChannel(ctx, channel.ID, 10000, 0)
	if err != nil {
		log.Error().Err(err).Str("alert_id", alertID).Msg("Transcript export: failed to load messages")
		return
	}

	body, err := json.Marshal(transcript{Alert: alert, Channel: channel, Messages: messages})
	if err != nil {
		log.Error().Err(err).Str("alert_id", alertID).Msg("Transcript export: failed to marshal transcript")
		return
	}

	key := fmt.Sprintf("transcripts/%s.json", alertID)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		log.Error().Err(err).Str("alert_id", alertID).Str("key", key).Msg("Transcript export: upload failed")
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("key", key).
		Int("message_count", len(messages)).
		Msg("Transcript exported")
}
