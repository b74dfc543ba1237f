package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is where the snapshot lives when no key is configured.
const DefaultRedisKey = "vcgw:ledger"

// RedisStore persists the snapshot as one JSON value under a fixed key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed snapshot store.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]Record, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode ledger snapshot: %w", err)
	}
	return records, nil
}

func (s *RedisStore) Save(ctx context.Context, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("save ledger snapshot: %w", err)
	}
	return nil
}
