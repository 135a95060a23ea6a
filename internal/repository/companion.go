package repository

import (
	"context"
	"fmt"
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanionRepository handles database operations for companion profiles
type CompanionRepository struct {
	db *pgxpool.Pool
}

// NewCompanionRepository creates a new companion repository
func NewCompanionRepository(db *pgxpool.Pool) *CompanionRepository {
	return &CompanionRepository{db: db}
}

const companionColumns = `
	user_id, specializations, availability_start, availability_end,
	max_response_distance_km, verification_status, available,
	last_lat, last_lon, last_seen_at, active, created_at
`

func scanCompanion(row pgx.Row) (*models.CompanionProfile, error) {
	var p models.CompanionProfile
	err := row.Scan(
		&p.UserID, &p.Specializations, &p.AvailabilityStart, &p.AvailabilityEnd,
		&p.MaxResponseDistanceKm, &p.VerificationStatus, &p.Available,
		&p.LastLat, &p.LastLon, &p.LastSeenAt, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create creates a new companion profile
func (r *CompanionRepository) Create(ctx context.Context, profile *models.CompanionProfile) error {
	query := `
		INSERT INTO companion_profiles (
			user_id, specializations, availability_start, availability_end,
			max_response_distance_km, verification_status, available, active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		profile.UserID, profile.Specializations, profile.AvailabilityStart, profile.AvailabilityEnd,
		profile.MaxResponseDistanceKm, profile.VerificationStatus, profile.Available,
		profile.Active, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create companion profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves a companion profile by user ID
func (r *CompanionRepository) GetByUserID(ctx context.Context, userID string) (*models.CompanionProfile, error) {
	query := `SELECT ` + companionColumns + ` FROM companion_profiles WHERE user_id = $1`
	profile, err := scanCompanion(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get companion profile: %w", err)
	}
	return profile, nil
}

// ListVerifiedAvailable returns active, verified profiles currently flagged available
func (r *CompanionRepository) ListVerifiedAvailable(ctx context.Context) ([]*models.CompanionProfile, error) {
	query := `
		SELECT ` + companionColumns + `
		FROM companion_profiles
		WHERE active AND available AND verification_status = $1
	`
	rows, err := r.db.Query(ctx, query, models.VerificationVerified)
	if err != nil {
		return nil, fmt.Errorf("failed to list companions: %w", err)
	}
	defer rows.Close()

	var profiles []*models.CompanionProfile
	for rows.Next() {
		profile, err := scanCompanion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan companion profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read companion rows: %w", err)
	}
	return profiles, nil
}

// SetVerified marks a companion profile as verified
func (r *CompanionRepository) SetVerified(ctx context.Context, userID string) error {
	query := `UPDATE companion_profiles SET verification_status = $1 WHERE user_id = $2`
	result, err := r.db.Exec(ctx, query, models.VerificationVerified, userID)
	if err != nil {
		return fmt.Errorf("failed to verify companion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

// UpdateAvailability records a self-reported availability heartbeat
func (r *CompanionRepository) UpdateAvailability(ctx context.Context, userID string, available bool, lat, lon *float64, seenAt time.Time) error {
	query := `
		UPDATE companion_profiles
		SET available = $1, last_lat = $2, last_lon = $3, last_seen_at = $4
		WHERE user_id = $5
	`
	result, err := r.db.Exec(ctx, query, available, lat, lon, seenAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

// Deactivate retires a companion profile. Profiles are never deleted.
func (r *CompanionRepository) Deactivate(ctx context.Context, userID string) error {
	query := `UPDATE companion_profiles SET active = FALSE, available = FALSE WHERE user_id = $1`
	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate companion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("companion profile %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

// MarkStale flags profiles unavailable when their heartbeat is older than the cutoff
func (r *CompanionRepository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE companion_profiles
		SET available = FALSE
		WHERE available AND (last_seen_at IS NULL OR last_seen_at < $1)
	`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale availability: %w", err)
	}
	return result.RowsAffected(), nil
}
