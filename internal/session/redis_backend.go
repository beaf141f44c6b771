package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/persistence"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisBackend keeps one browser session's record under prefix:sid with a
// sliding TTL that is renewed on every save.
type RedisBackend struct {
	kv  redisKV
	key string
	ttl time.Duration
}

// NewRedisBackend scopes a backend to the session id sid.
func NewRedisBackend(r *persistence.Redis, prefix, sid string, ttl time.Duration) *RedisBackend {
	return newRedisBackend(r.Client, prefix, sid, ttl)
}

func newRedisBackend(kv redisKV, prefix, sid string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{kv: kv, key: prefix + ":" + sid, ttl: ttl}
}

// Key is the redis key holding the record.
func (r *RedisBackend) Key() string {
	return r.key
}

func (r *RedisBackend) Load(ctx context.Context) (*domain.Session, error) {
	raw, err := r.kv.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", r.key, err)
	}
	var record domain.Session
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &record, nil
}

func (r *RedisBackend) Save(ctx context.Context, session domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context) error {
	if err := r.kv.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", r.key, err)
	}
	return nil
}
