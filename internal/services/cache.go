package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/pkg/models"
)

// Feed kinds cached per user.
const (
	FeedPersonalized = "personalized"
	FeedGenre        = "genre"
)

// KeyValueStore is the cache capability the aggregator receives. Get
// returns an empty string on a miss.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore backs KeyValueStore with a redis client.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// RecommendationCache memoizes per-user feed results for a bounded window.
// It is best-effort: store outages degrade to live computation and are
// never surfaced to the caller.
type RecommendationCache struct {
	store  KeyValueStore
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRecommendationCache(store KeyValueStore, ttl time.Duration, logger *logrus.Logger) *RecommendationCache {
	return &RecommendationCache{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RecommendationCache) Get(ctx context.Context, userID uuid.UUID, kind string) ([]models.Song, bool) {
	cached, err := c.store.Get(ctx, cacheKey(kind, userID))
	if err != nil {
		c.logger.WithError(err).Warn("Recommendation cache read failed")
		return nil, false
	}
	if cached == "" {
		return nil, false
	}

	var songs []models.Song
	if err := json.Unmarshal([]byte(cached), &songs); err != nil {
		c.logger.WithError(err).Warn("Discarding undecodable recommendation cache entry")
		return nil, false
	}
	return songs, true
}

func (c *RecommendationCache) Set(ctx context.Context, userID uuid.UUID, kind string, songs []models.Song) {
	data, err := json.Marshal(songs)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode recommendations for cache")
		return
	}

	if err := c.store.Set(ctx, cacheKey(kind, userID), string(data), c.ttl); err != nil {
		c.logger.WithError(err).Warn("Recommendation cache write failed")
	}
}

// Invalidate evicts both feed kinds for the user. Ratings can change future
// suggestions of either kind, so eviction is always whole-entry.
func (c *RecommendationCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	keys := []string{
		cacheKey(FeedPersonalized, userID),
		cacheKey(FeedGenre, userID),
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.WithError(err).Warn("Recommendation cache invalidation failed")
	}
}

func cacheKey(kind string, userID uuid.UUID) string {
	return fmt.Sprintf("recs:%s:%s", kind, userID.String())
}
