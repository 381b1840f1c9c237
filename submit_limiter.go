package paneflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type submitLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	cooldown    time.Duration
}

func newSubmitLimiter(redisClient redis.UniversalClient, cfg SecurityConfig) *submitLimiter {
	return &submitLimiter{
		redis:       redisClient,
		maxAttempts: cfg.MaxSubmitAttempts,
		cooldown:    cfg.SubmitCooldownDuration,
	}
}

func (l *submitLimiter) key(connectWebviewID string) string {
	return "pfl:" + connectWebviewID
}

func (l *submitLimiter) Check(ctx context.Context, connectWebviewID string) error {
	if l == nil || l.maxAttempts <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(connectWebviewID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if count >= int64(l.maxAttempts) {
		return ErrSubmitRateLimited
	}
	return nil
}

func (l *submitLimiter) Record(ctx context.Context, connectWebviewID string) error {
	if l == nil || l.maxAttempts <= 0 {
		return nil
	}
	count, err := l.redis.Incr(ctx, l.key(connectWebviewID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(connectWebviewID), l.cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}
	if count >= int64(l.maxAttempts) {
		return ErrSubmitRateLimited
	}
	return nil
}

func (l *submitLimiter) Reset(ctx context.Context, connectWebviewID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(connectWebviewID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}
