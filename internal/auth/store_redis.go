package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCredentialStore keeps the cookie set as one JSON value with a TTL.
type RedisCredentialStore struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisCredentialStore(rdb redis.UniversalClient, key string, ttl time.Duration) (*RedisCredentialStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	return &RedisCredentialStore{rdb: rdb, key: key, ttl: ttl}, nil
}

func (s *RedisCredentialStore) Load(ctx context.Context) ([]Cookie, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	var out []Cookie
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return out, nil
}

func (s *RedisCredentialStore) Save(ctx context.Context, cookies []Cookie) error {
	if len(cookies) == 0 {
		return s.Clear(ctx)
	}
	b, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("set credentials: %w", err)
	}
	return nil
}

func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
