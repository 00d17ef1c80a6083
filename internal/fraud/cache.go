package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shailjagaurzz/jan-kavach/pkg/redis"
)

const (
	reputationKeyPrefix = "fraud:reputation:"
	reputationCacheTTL  = 5 * time.Minute
)

// RedisReputationCache caches reputation lookups with a short TTL so hot
// numbers do not hammer the database during alert storms.
type RedisReputationCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ReputationCache = (*RedisReputationCache)(nil)

// NewRedisReputationCache creates a reputation cache over the shared client
func NewRedisReputationCache(client *redis.Client) *RedisReputationCache {
	return &RedisReputationCache{client: client, ttl: reputationCacheTTL}
}

// Get returns the cached record, a hit flag, and any transport error
func (c *RedisReputationCache) Get(ctx context.Context, phoneNumber string) (*FraudNumber, bool, error) {
	raw, err := c.client.GetString(ctx, reputationKeyPrefix+phoneNumber)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var number FraudNumber
	if err := json.Unmarshal([]byte(raw), &number); err != nil {
		return nil, false, err
	}
	return &number, true, nil
}

// Set caches a reputation record
func (c *RedisReputationCache) Set(ctx context.Context, number *FraudNumber) error {
	payload, err := json.Marshal(number)
	if err != nil {
		return err
	}
	return c.client.SetWithExpiration(ctx, reputationKeyPrefix+number.PhoneNumber, payload, c.ttl)
}

// Invalidate drops the cached record after a report mutates it
func (c *RedisReputationCache) Invalidate(ctx context.Context, phoneNumber string) error {
	return c.client.Delete(ctx, reputationKeyPrefix+phoneNumber)
}
