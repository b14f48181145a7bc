package repository

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg *config.RedisConnect) (*redis.Client, error) {

	slog.Info("Connecting to Redis", slog.String("addr", net.JoinHostPort(cfg.Host, cfg.Port)), slog.Int("db", cfg.DB))

	opt, err := redis.ParseURL(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("✅ Successfully connected to Redis")
	return client, nil

}

// RateLimiter counts attempts per key over a sliding window.
type RateLimiter interface {
	// Allow records an attempt for key. When the window is full it reports
	// how long until the oldest attempt falls out of it.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type redisRateLimiter struct {
	client      redis.UniversalClient
	prefix      string
	window      time.Duration
	maxAttempts int64
}

func NewRateLimiter(client redis.UniversalClient, prefix string, window time.Duration, maxAttempts int) RateLimiter {
	return &redisRateLimiter{client: client, prefix: prefix, window: window, maxAttempts: int64(maxAttempts)}
}

func (r *redisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	logger := middleware.LoggerFromContext(ctx)

	redisKey := r.prefix + ":" + key
	now := time.Now()
	windowStart := now.Add(-r.window).UnixMilli()

	// Attempts are scored by their timestamp so old ones can be trimmed by range.
	member := uuid.NewString()
	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit pipeline for %s: %w", redisKey, err)
	}

	attempts := count.Val()
	if attempts <= r.maxAttempts {
		logger.Debug("Rate limit check passed", slog.String("key", redisKey), slog.Int64("attempts", attempts))
		return true, 0, nil
	}

	// Rejected attempts must not keep the window full.
	if err := r.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		logger.Warn("Failed to drop rejected attempt", slog.String("key", redisKey), slog.String("error", err.Error()))
	}

	oldest, err := r.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return false, r.window, fmt.Errorf("failed to read oldest attempt for %s: %w", redisKey, err)
	}

	if len(oldest) == 0 {
		return false, r.window, fmt.Errorf("no attempts recorded for %s", redisKey)
	}

	retryAfter := time.UnixMilli(int64(oldest[0].Score)).Add(r.window).Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	logger.Warn("Rate limit exceeded", slog.String("key", redisKey), slog.Int64("attempts", attempts))
	return false, retryAfter, nil
}
