package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"conclave/internal/responder"
)

const (
	// Redis key prefix for cached raw results
	rawResultKeyPrefix = "conclave:raw:"
)

// RedisStore is a Redis-backed cache. This is the production-recommended
// implementation for deployments where multiple instances should share one
// response cache. TTL enforcement is delegated to Redis key expiry.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedis constructs a Redis-backed cache store. The client lifecycle is
// managed externally.
func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the cached result or ErrMiss. A corrupt entry is deleted and
// reported as a miss rather than poisoning the run.
func (s *RedisStore) Get(ctx context.Context, fp Fingerprint) (*responder.RawResult, error) {
	data, err := s.client.Get(ctx, rawResultKeyPrefix+string(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", fp, err)
	}

	var raw responder.RawResult
	if err := json.Unmarshal(data, &raw); err != nil {
		_ = s.client.Del(ctx, rawResultKeyPrefix+string(fp)).Err()
		return nil, ErrMiss
	}
	return &raw, nil
}

// Put stores raw under fp with TTL via SET EX.
func (s *RedisStore) Put(ctx context.Context, fp Fingerprint, raw *responder.RawResult, ttl time.Duration) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", fp, err)
	}
	if err := s.client.Set(ctx, rawResultKeyPrefix+string(fp), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put %s: %w", fp, err)
	}
	return nil
}
