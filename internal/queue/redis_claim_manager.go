package queue

import (
	"context"
	"time"

	"github.com/redis/rueidis"
)

// RedisClaimManager stores claims as Redis keys set with NX and a PX expiry.
type RedisClaimManager struct {
	client rueidis.Client
	prefix string
}

func NewRedisClaimManager(client rueidis.Client, prefix string) *RedisClaimManager {
	return &RedisClaimManager{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisClaimManager) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	cmd := r.client.B().Set().Key(r.prefix + key).Value("1").Nx().PxMilliseconds(ttl.Milliseconds()).Build()
	result := r.client.Do(ctx, cmd)

	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *RedisClaimManager) Release(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(r.prefix + key).Build()
	return r.client.Do(ctx, cmd).Error()
}
