package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rnqayush/starter-sub001/booking-service/internal/interval"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 30 * time.Second
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Generation(ctx context.Context, unitID string) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey(unitID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (r *RedisCache) Get(ctx context.Context, unitID string, generation int64, iv interval.Interval) (int, error) {
	data, err := r.client.Get(ctx, cacheKey(unitID, generation, iv)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}

	remaining, err := strconv.Atoi(data)
	if err != nil {
		return 0, fmt.Errorf("corrupt availability entry: %w", err)
	}
	return remaining, nil
}

func (r *RedisCache) Set(ctx context.Context, unitID string, generation int64, iv interval.Interval, remaining int) error {
	// jitter spreads expiry of entries written together
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/4) + 1))
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, cacheKey(unitID, generation, iv), remaining, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context, unitID string) error {
	if err := r.client.Incr(ctx, generationKey(unitID)).Err(); err != nil {
		return fmt.Errorf("redis incr generation failed: %w", err)
	}
	return nil
}

func generationKey(unitID string) string {
	return fmt.Sprintf("availability:%s:gen", unitID)
}

func cacheKey(unitID string, generation int64, iv interval.Interval) string {
	return fmt.Sprintf("availability:%s:%d:%d:%d", unitID, generation, iv.Start.Unix(), iv.End.Unix())
}
