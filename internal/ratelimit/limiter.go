package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fitretto/gymbill/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyRequest = "ratelimit:request:%s"

// RequestLimiter throttles API requests per client. A nil limiter, returned
// when no redis address is configured, admits everything.
type RequestLimiter struct {
	log    *zap.Logger
	bucket *TokenBucket

	rate  float64
	burst int
}

func NewRequestLimiter(cfg config.Config, log *zap.Logger) *RequestLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.RateLimitPerMinute <= 0 {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	burst := cfg.RateLimitPerMinute / 6
	if burst < 1 {
		burst = 1
	}

	return &RequestLimiter{
		log:    log.Named("ratelimit"),
		bucket: NewTokenBucket(client),
		rate:   float64(cfg.RateLimitPerMinute) / 60.0,
		burst:  burst,
	}
}

func (l *RequestLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow reports whether the client identified by key may proceed. Redis
// outages fail open so the limiter can never take the API down with it.
func (l *RequestLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}

	result, err := l.bucket.Allow(ctx, fmt.Sprintf(keyRequest, strings.TrimSpace(key)), l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed, admitting request", zap.Error(err))
		return true, 0
	}
	return result.Allowed, result.RetryAfter
}
