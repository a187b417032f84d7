package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers tokens that were logged out before they expired.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocations keeps revoked token ids in Redis until the token would have expired.
type RedisRevocations struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRevocations builds a Redis-backed store.
func NewRedisRevocations(client redis.Cmdable) *RedisRevocations {
	return &RedisRevocations{client: client, prefix: "auth:revoked:"}
}

func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+tokenID, "1", ttl).Err()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NoopRevocations is used when Redis is not configured. Logout then only clears the cookie.
type NoopRevocations struct{}

func (NoopRevocations) Revoke(context.Context, string, time.Duration) error { return nil }

func (NoopRevocations) IsRevoked(context.Context, string) (bool, error) { return false, nil }
