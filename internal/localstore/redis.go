package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis stores each blob under a single key. Writes are one SET, so a
// reader sees either the old or the new blob.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	quota  int
}

type RedisOptions struct {
	Prefix     string
	TTL        time.Duration
	QuotaBytes int
}

func NewRedis(rdb *redis.Client, opts RedisOptions) *Redis {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "cart:local:"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: opts.TTL, quota: opts.QuotaBytes}
}

// ConnectRedis opens a client and pings it with a short timeout.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	blob, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return blob, nil
}

func (r *Redis) Save(ctx context.Context, key string, blob []byte) error {
	if r.quota > 0 && len(blob) > r.quota {
		return ErrQuotaExceeded
	}
	if err := r.rdb.Set(ctx, r.prefix+key, blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
