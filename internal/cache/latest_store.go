package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"rectmon/internal/models"
)

const latestKey = "rectifier:latest"

// LatestStore caches the most recent reading summary so the read API can
// answer ticker queries without hitting Postgres. It is best-effort: callers
// treat any error as a cache miss.
type LatestStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestStore returns redis-backed store.
func NewLatestStore(client *redis.Client, ttl time.Duration) *LatestStore {
	return &LatestStore{client: client, ttl: ttl}
}

// Save caches the summary.
func (s *LatestStore) Save(ctx context.Context, summary models.ReadingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, latestKey, data, s.ttl).Err()
}

// Get returns the cached summary, redis.Nil when absent.
func (s *LatestStore) Get(ctx context.Context) (*models.ReadingSummary, error) {
	result, err := s.client.Get(ctx, latestKey).Result()
	if err != nil {
		return nil, err
	}
	var summary models.ReadingSummary
	if err := json.Unmarshal([]byte(result), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
