package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "mediagate:ratelimit"

// RedisStore keeps entries as fields of a single redis hash, using the same
// [attempts, window_start] encoding as the state file. Writes go straight to
// redis so Flush has nothing to do.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisPrefix
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context, clientID string) (Entry, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	e, err := decodeEntry(raw)
	if err != nil {
		return Entry{}, false, fmt.Errorf("entry %q: %w", clientID, err)
	}
	return e, true, nil
}

func (s *RedisStore) Put(ctx context.Context, clientID string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, clientID, raw).Err()
}

func (s *RedisStore) Flush(context.Context) error { return nil }

func (s *RedisStore) Entries(ctx context.Context) (map[string]Entry, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Entry, len(all))
	for id, raw := range all {
		e, err := decodeEntry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", id, err)
		}
		out[id] = e
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, clientID string) error {
	return s.client.HDel(ctx, s.key, clientID).Err()
}

// Ping checks that redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
