package repository

import (
	"context"
	"fmt"
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AlertRepository handles database operations for emergency alerts
type AlertRepository struct {
	db *pgxpool.Pool
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates a new alert
func (r *AlertRepository) Create(ctx context.Context, alert *models.EmergencyAlert) error {
	query := `
		INSERT INTO emergency_alerts (id, user_id, lat, lon, address, status, official_contacts_notified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		alert.ID, alert.UserID, alert.Lat, alert.Lon, alert.Address,
		alert.Status, alert.OfficialContactsNotified, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by ID, including its responder set
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.EmergencyAlert, error) {
	query := `
		SELECT id, user_id, lat, lon, address, status, official_contacts_notified, created_at, resolved_at
		FROM emergency_alerts
		WHERE id = $1
	`
	var alert models.EmergencyAlert
	err := r.db.QueryRow(ctx, query, id).Scan(
		&alert.ID, &alert.UserID, &alert.Lat, &alert.Lon, &alert.Address,
		&alert.Status, &alert.OfficialContactsNotified, &alert.CreatedAt, &alert.ResolvedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("alert %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	responders, err := r.ListResponders(ctx, id)
	if err != nil {
		return nil, err
	}
	alert.RespondingCompanions = responders

	return &alert, nil
}

// AddResponder atomically adds a companion to the alert's responder set.
// The status guard lives in the same statement as the insert, so a resolve
// landing mid-request can never grow a RESOLVED alert's responder set, and
// concurrent responders never lose each other's updates. Returns whether the
// companion was newly added; a resolved alert returns ErrAlertAlreadyResolved.
func (r *AlertRepository) AddResponder(ctx context.Context, alertID, companionID string) (bool, error) {
	query := `
		INSERT INTO alert_responders (alert_id, companion_id)
		SELECT id, $2 FROM emergency_alerts WHERE id = $1 AND status <> $3
		ON CONFLICT DO NOTHING
	`
	result, err := r.db.Exec(ctx, query, alertID, companionID, models.AlertResolved)
	if err != nil {
		return false, fmt.Errorf("failed to add responder: %w", err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	// Zero rows: the companion already responded, or the guard refused the
	// insert. Distinguish by re-reading the status.
	var status models.AlertStatus
	err = r.db.QueryRow(ctx, `SELECT status FROM emergency_alerts WHERE id = $1`, alertID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, fmt.Errorf("alert %s: %w", alertID, models.ErrNotFound)
		}
		return false, fmt.Errorf("failed to check alert status: %w", err)
	}
	if status == models.AlertResolved {
		return false, fmt.Errorf("alert %s: %w", alertID, models.ErrAlertAlreadyResolved)
	}
	return false, nil
}

// TransitionToResponded performs the ACTIVE -> RESPONDED transition as a
// compare-and-swap: the guarded update succeeds for exactly one caller no
// matter how many companions respond concurrently.
func (r *AlertRepository) TransitionToResponded(ctx context.Context, alertID string) (bool, error) {
	query := `
		UPDATE emergency_alerts
		SET status = $1
		WHERE id = $2 AND status = $3
	`
	result, err := r.db.Exec(ctx, query, models.AlertResponded, alertID, models.AlertActive)
	if err != nil {
		return false, fmt.Errorf("failed to transition alert: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Resolve moves the alert to RESOLVED. The guard on status makes a repeated
// resolve a no-op, which the service layer treats as success.
func (r *AlertRepository) Resolve(ctx context.Context, alertID string, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE emergency_alerts
		SET status = $1, resolved_at = $2
		WHERE id = $3 AND status <> $1
	`
	result, err := r.db.Exec(ctx, query, models.AlertResolved, resolvedAt, alertID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListResponders returns the companion ids that responded to an alert
func (r *AlertRepository) ListResponders(ctx context.Context, alertID string) ([]string, error) {
	query := `
		SELECT companion_id::text
		FROM alert_responders
		WHERE alert_id = $1
		ORDER BY responded_at
	`
	rows, err := r.db.Query(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responders: %w", err)
	}
	defer rows.Close()

	var responders []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan responder: %w", err)
		}
		responders = append(responders, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read responder rows: %w", err)
	}
	return responders, nil
}
