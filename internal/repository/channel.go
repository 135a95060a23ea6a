package repository

import (
	"context"
	"fmt"

	"wellbeing-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChannelRepository handles database operations for chat channels
type ChannelRepository struct {
	db *pgxpool.Pool
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// CreateForAlert creates the emergency channel bound to an alert. The unique
// index on emergency_alert_id makes creation idempotent: when a channel
// already exists for the alert, the existing one is returned. The boolean
// reports whether this call created the channel.
func (r *ChannelRepository) CreateForAlert(ctx context.Context, channel *models.ChatChannel) (*models.ChatChannel, bool, error) {
	query := `
		INSERT INTO chat_channels (id, type, emergency_alert_id, archived, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (emergency_alert_id) WHERE emergency_alert_id IS NOT NULL DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, channel.ID, channel.Type, channel.EmergencyAlertID, channel.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create channel: %w", err)
	}

	if result.RowsAffected() > 0 {
		created := *channel
		created.Participants = nil
		return &created, true, nil
	}

	existing, err := r.GetByAlertID(ctx, *channel.EmergencyAlertID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByID retrieves a channel by ID, including its participants
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*models.ChatChannel, error) {
	query := `
		SELECT id, type, emergency_alert_id, archived, created_at
		FROM chat_channels
		WHERE id = $1
	`
	return r.getOne(ctx, query, id)
}

// GetByAlertID retrieves the emergency channel bound to an alert
func (r *ChannelRepository) GetByAlertID(ctx context.Context, alertID string) (*models.ChatChannel, error) {
	query := `
		SELECT id, type, emergency_alert_id, archived, created_at
		FROM chat_channels
		WHERE emergency_alert_id = $1
	`
	return r.getOne(ctx, query, alertID)
}

func (r *ChannelRepository) getOne(ctx context.Context, query, arg string) (*models.ChatChannel, error) {
	var channel models.ChatChannel
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&channel.ID, &channel.Type, &channel.EmergencyAlertID, &channel.Archived, &channel.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("channel %s: %w", arg, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	participants, err := r.listParticipants(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	channel.Participants = participants

	return &channel, nil
}

// AddParticipant atomically adds a user to a channel. Returns whether the
// user was newly added.
func (r *ChannelRepository) AddParticipant(ctx context.Context, channelID, userID string) (bool, error) {
	query := `
		INSERT INTO channel_participants (channel_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, channelID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// RemoveParticipant removes a user from a channel
func (r *ChannelRepository) RemoveParticipant(ctx context.Context, channelID, userID string) error {
	query := `DELETE FROM channel_participants WHERE channel_id = $1 AND user_id = $2`
	result, err := r.db.Exec(ctx, query, channelID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("participant %s in channel %s: %w", userID, channelID, models.ErrNotFound)
	}
	return nil
}

// Archive closes a channel to new activity. History is retained.
func (r *ChannelRepository) Archive(ctx context.Context, channelID string) error {
	query := `UPDATE chat_channels SET archived = TRUE WHERE id = $1`
	result, err := r.db.Exec(ctx, query, channelID)
	if err != nil {
		return fmt.Errorf("failed to archive channel: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", channelID, models.ErrNotFound)
	}
	return nil
}

func (r *ChannelRepository) listParticipants(ctx context.Context, channelID string) ([]string, error) {
	query := `
		SELECT user_id::text
		FROM channel_participants
		WHERE channel_id = $1
		ORDER BY joined_at
	`
	rows, err := r.db.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participant rows: %w", err)
	}
	return participants, nil
}
