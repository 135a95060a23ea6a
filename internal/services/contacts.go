package services

import (
	"context"
	"strings"
	"time"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	gocache "github.com/patrickmn/go-cache"
)

// ContactService serves per-country official emergency contacts. The data
// is static collaborator data, so lookups are fronted by a short-lived
// in-process cache.
type ContactService struct {
	contactRepo repository.ContactStore
	cache       *gocache.Cache
}

// NewContactService creates a new contact service
func NewContactService(contactRepo repository.ContactStore) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		cache:       gocache.New(10*time.Minute, 30*time.Minute),
	}
}

// ListByCountry returns the official contacts for a country code
func (s *ContactService) ListByCountry(ctx context.Context, country string) ([]*models.OfficialContact, error) {
	key := strings.ToUpper(strings.TrimSpace(country))

	if cached, found := s.cache.Get(key); found {
		return cached.([]*models.OfficialContact), nil
	}

	contacts, err := s.contactRepo.ListByCountry(ctx, key)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, contacts, gocache.DefaultExpiration)
	return contacts, nil
}
