package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"hackmate/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const hackathonKeyPrefix = "hackathons:"

// HackathonCacheKey normalizes an interest into its cache key.
func HackathonCacheKey(interest string) string {
	return hackathonKeyPrefix + strings.Join(strings.Fields(strings.ToLower(interest)), " ")
}

// GetCachedHackathons reports a miss (false, nil) when Redis is not configured.
func (s *Service) GetCachedHackathons(ctx context.Context, interest string) ([]models.Hackathon, bool, error) {
	if s.Redis == nil {
		return nil, false, nil
	}

	raw, err := s.Redis.Get(ctx, HackathonCacheKey(interest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var hackathons []models.Hackathon
	if err := json.Unmarshal(raw, &hackathons); err != nil {
		return nil, false, err
	}
	return hackathons, true, nil
}

// CacheHackathons stores results for ttl. It is a no-op without Redis.
func (s *Service) CacheHackathons(ctx context.Context, interest string, hackathons []models.Hackathon, ttl time.Duration) error {
	if s.Redis == nil {
		return nil
	}

	data, err := json.Marshal(hackathons)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, HackathonCacheKey(interest), data, ttl).Err()
}
