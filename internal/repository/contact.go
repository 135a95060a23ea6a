package repository

import (
	"context"
	"fmt"

	"wellbeing-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ContactRepository handles lookups of static official emergency contacts
type ContactRepository struct {
	db *pgxpool.Pool
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListByCountry returns the official contacts registered for a country code
func (r *ContactRepository) ListByCountry(ctx context.Context, country string) ([]*models.OfficialContact, error) {
	query := `
		SELECT country, name, phone_number, type, available_24h
		FROM official_contacts
		WHERE country = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, country)
	if err != nil {
		return nil, fmt.Errorf("failed to list official contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.OfficialContact
	for rows.Next() {
		var c models.OfficialContact
		if err := rows.Scan(&c.Country, &c.Name, &c.PhoneNumber, &c.Type, &c.Available24h); err != nil {
			return nil, fmt.Errorf("failed to scan official contact: %w", err)
		}
		contacts = append(contacts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read official contact rows: %w", err)
	}
	return contacts, nil
}
