// Package cache provides a redis-backed cache of computed matching
// rankings. A circuit breaker guards every redis call so a cache outage
// degrades to recomputation instead of failing requests.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/clinic-matching-server/internal/domain"
)

// MatchCache caches matching results per patient with a TTL.
type MatchCache struct {
	redis      *redis.Client
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	logger     *logrus.Logger
}

// CachedMatching wraps cached results with timing metadata.
type CachedMatching struct {
	Results   []domain.MatchResult `json:"results"`
	CachedAt  time.Time            `json:"cached_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// NewMatchCache connects to redis and wires the circuit breaker.
func NewMatchCache(cfg domain.CacheConfig, logger *logrus.Logger) (*MatchCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewMatchCacheWithClient(client, cfg.ResultTTL, logger), nil
}

// NewMatchCacheWithClient wraps an existing redis client. Used by tests
// with a mock client.
func NewMatchCacheWithClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *MatchCache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	settings := gobreaker.Settings{
		Name:        "match-cache",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A cold cache is not a redis outage.
		IsSuccessful: func(err error) bool {
			return err == nil || err == redis.Nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Match cache circuit breaker state changed")
		},
	}

	return &MatchCache{
		redis:      client,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		defaultTTL: ttl,
		logger:     logger,
	}
}

// GetMatching returns cached results for a patient. The boolean is
// false on a cache miss; an open breaker reports a miss, not an error.
func (c *MatchCache) GetMatching(ctx context.Context, patientID uuid.UUID) ([]domain.MatchResult, bool, error) {
	key := matchingKey(patientID)

	val, err := c.breaker.Execute(func() (interface{}, error) {
		return c.redis.Get(ctx, key).Result()
	})
	if err == redis.Nil {
		return nil, false, nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached matching: %w", err)
	}

	var cached CachedMatching
	if err := json.Unmarshal([]byte(val.(string)), &cached); err != nil {
		// Corrupted entry, drop it.
		c.redis.Del(ctx, key)
		return nil, false, nil
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Results, true, nil
}

// SetMatching caches a patient's results with the default TTL.
func (c *MatchCache) SetMatching(ctx context.Context, patientID uuid.UUID, results []domain.MatchResult) error {
	key := matchingKey(patientID)
	now := time.Now()

	cached := CachedMatching{
		Results:   results,
		CachedAt:  now,
		ExpiresAt: now.Add(c.defaultTTL),
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal cached matching: %w", err)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Set(ctx, key, data, c.defaultTTL).Err()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil
	}
	return err
}

// InvalidateMatching drops a patient's cached results, e.g. after they
// retake the matching questionnaire.
func (c *MatchCache) InvalidateMatching(ctx context.Context, patientID uuid.UUID) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.redis.Del(ctx, matchingKey(patientID)).Err()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil
	}
	return err
}

// Ping checks the redis connection.
func (c *MatchCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the redis connection.
func (c *MatchCache) Close() error {
	return c.redis.Close()
}

func matchingKey(patientID uuid.UUID) string {
	return fmt.Sprintf("matching:patient:%s", patientID)
}
