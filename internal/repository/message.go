package repository

import (
	"context"
	"fmt"

	"wellbeing-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message. System messages are stored with a NULL
// sender_id; a non-NULL sender_id is always a real user.
func (r *MessageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, channel_id, sender_id, content, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	var senderID *string
	if id, ok := msg.Sender.UserID(); ok {
		senderID = &id
	}
	_, err := r.db.Exec(ctx, query, msg.ID, msg.ChannelID, senderID, msg.Content, msg.Type, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByChannel returns messages ordered by creation time ascending
func (r *MessageRepository) ListByChannel(ctx context.Context, channelID string, limit, offset int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, channel_id, sender_id::text, content, type, created_at
		FROM chat_messages
		WHERE channel_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, channelID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		var senderID *string
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &senderID, &msg.Content, &msg.Type, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if senderID != nil {
			msg.Sender = models.UserSender(*senderID)
		} else {
			msg.Sender = models.SystemSender()
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read message rows: %w", err)
	}
	return messages, nil
}
