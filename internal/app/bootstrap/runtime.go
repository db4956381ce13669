package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/assistant-relay/internal/config"
	httpmiddleware "github.com/wolfman30/assistant-relay/internal/http/middleware"
	"github.com/wolfman30/assistant-relay/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter picks the inbound limiter: Redis-backed when a client is
// available, in-memory otherwise, nil when rate limiting is disabled.
func BuildRateLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg == nil || cfg.RateLimitRPS <= 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	if redisClient != nil {
		window := httpmiddleware.RedisWindowForRate(cfg.RateLimitRPS, burst)
		logger.Info("rate limiting enabled", "backend", "redis", "limit", burst, "window", window.String())
		return httpmiddleware.NewRedisRateLimiter(redisClient, burst, window)
	}
	logger.Info("rate limiting enabled", "backend", "memory", "rps", cfg.RateLimitRPS, "burst", burst)
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, burst)
}
