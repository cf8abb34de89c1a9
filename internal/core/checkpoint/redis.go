package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "salesbrain:checkpoint:"
	DefaultTTL       = 7 * 24 * time.Hour
)

// RedisStore keeps each run's checkpoints in one Redis hash, field per step.
type RedisStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL (redis://[:password@]host:port/db) and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Infow("checkpoint store connected", "addr", opts.Addr, "db", opts.DB)
	return NewRedisStoreFromClient(client, DefaultKeyPrefix, DefaultTTL), nil
}

func NewRedisStoreFromClient(client *goredis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) key(runID string) string {
	return r.prefix + runID
}

func (r *RedisStore) Load(ctx context.Context, runID, step string) ([]byte, bool, error) {
	payload, err := r.client.HGet(ctx, r.key(runID), step).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint %s/%s: %w", runID, step, err)
	}
	return payload, true, nil
}

func (r *RedisStore) Save(ctx context.Context, runID, step string, payload []byte) error {
	key := r.key(runID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, step, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint %s/%s: %w", runID, step, err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, runID string) error {
	if err := r.client.Del(ctx, r.key(runID)).Err(); err != nil {
		return fmt.Errorf("clear checkpoints of %s: %w", runID, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
