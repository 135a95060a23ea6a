package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// MatchingService finds companions eligible to respond to an alert
type MatchingService struct {
	companionRepo repository.CompanionStore
}

// NewMatchingService creates a new matching service
func NewMatchingService(companionRepo repository.CompanionStore) *MatchingService {
	return &MatchingService{companionRepo: companionRepo}
}

// FindEligible returns companions that are verified, currently inside their
// declared availability window and flagged available. Distance against the
// companion's declared radius is a soft filter: it only applies when both
// the requester and the companion have a known location. A missing location
// never excludes a companion. No matches is an empty result, not an error.
func (s *MatchingService) FindEligible(ctx context.Context, lat, lon *float64, now time.Time) ([]models.CompanionSummary, error) {
	profiles, err := s.companionRepo.ListVerifiedAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load companions: %w", err)
	}

	var eligible []models.CompanionSummary
	for _, p := range profiles {
		if !withinWindow(now, p.AvailabilityStart, p.AvailabilityEnd) {
			continue
		}
		if lat != nil && lon != nil && p.LastLat != nil && p.LastLon != nil && p.MaxResponseDistanceKm > 0 {
			distance := haversineKm(*lat, *lon, *p.LastLat, *p.LastLon)
			if distance > p.MaxResponseDistanceKm {
				continue
			}
		}
		eligible = append(eligible, models.CompanionSummary{
			UserID:                p.UserID,
			Specializations:       p.Specializations,
			MaxResponseDistanceKm: p.MaxResponseDistanceKm,
		})
	}

	return eligible, nil
}

// withinWindow reports whether the local time of day falls inside the
// declared availability window. A window whose end precedes its start wraps
// past midnight (22:00-06:00 covers 02:00). A malformed or degenerate
// window counts as always available; matching must never be blocked by bad
// profile data.
func withinWindow(now time.Time, start, end string) bool {
	startMin, err1 := parseMinutes(start)
	endMin, err2 := parseMinutes(end)
	if err1 != nil || err2 != nil {
		log.Warn().
			Str("availability_start", start).
			Str("availability_end", end).
			Msg("Malformed availability window, treating companion as always available")
		return true
	}
	if startMin == endMin {
		return true
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// wrap-around past midnight
	return nowMin >= startMin || nowMin < endMin
}

// parseMinutes converts an "HH:MM" time of day to minutes since midnight
func parseMinutes(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two coordinates
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
