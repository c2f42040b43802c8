package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	json "github.com/goccy/go-json"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

const redisKeyPrefix = "compat:"

// RedisCache shares compatibility results between API instances. Redis errors
// are logged and reported as misses.
type RedisCache struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, now: time.Now}
}

func pairRedisKey(key scoring.PairKey) string {
	return redisKeyPrefix + "pair:" + key.String()
}

func userRedisKey(userID int64) string {
	return fmt.Sprintf("%suser:%d", redisKeyPrefix, userID)
}

func (c *RedisCache) Get(ctx context.Context, key scoring.PairKey) (*scoring.CompatibilityResult, bool) {
	data, err := c.client.Get(ctx, pairRedisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.Warn().Err(err).Str("pair", key.String()).Msg("compatibility cache read failed")
		}
		return nil, false
	}

	var result scoring.CompatibilityResult
	if err := json.Unmarshal(data, &result); err != nil {
		logging.Warn().Err(err).Str("pair", key.String()).Msg("dropping undecodable cache entry")
		c.client.Del(ctx, pairRedisKey(key))
		return nil, false
	}
	// Redis expiry has millisecond resolution; the lease is authoritative.
	if result.Expired(c.now()) {
		return nil, false
	}
	return &result, true
}

func (c *RedisCache) Put(ctx context.Context, key scoring.PairKey, result *scoring.CompatibilityResult, ttl time.Duration) {
	now := c.now()
	stored, ok := leaseFor(result, ttl, now)
	if !ok {
		return
	}
	data, err := json.Marshal(stored)
	if err != nil {
		logging.Warn().Err(err).Str("pair", key.String()).Msg("encoding compatibility result failed")
		return
	}

	remaining := stored.ExpiresAt.Sub(now)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, pairRedisKey(key), data, remaining)
	for _, id := range []int64{key.Low, key.High} {
		pipe.SAdd(ctx, userRedisKey(id), key.String())
		pipe.Expire(ctx, userRedisKey(id), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logging.Warn().Err(err).Str("pair", key.String()).Msg("compatibility cache write failed")
	}
}

func (c *RedisCache) InvalidateUser(ctx context.Context, userID int64) {
	idx := userRedisKey(userID)
	pairs, err := c.client.SMembers(ctx, idx).Result()
	if err != nil {
		logging.Warn().Err(err).Int64("user_id", userID).Msg("reading cache index failed")
		return
	}

	keys := make([]string, 0, len(pairs)+1)
	for _, p := range pairs {
		keys = append(keys, redisKeyPrefix+"pair:"+p)
	}
	keys = append(keys, idx)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logging.Warn().Err(err).Int64("user_id", userID).Msg("cache invalidation failed")
	}
}
