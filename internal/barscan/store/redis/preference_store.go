// Package redis stores preferences in a single Redis hash so several
// scanning stations can share one settings backend.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const defaultHashKey = "barscan:preferences"

type PreferenceStore struct {
	client  goredis.UniversalClient
	hashKey string
}

// NewPreferenceStore wraps an existing client.  hashKey defaults to
// "barscan:preferences".
func NewPreferenceStore(client goredis.UniversalClient, hashKey string) *PreferenceStore {
	if hashKey == "" {
		hashKey = defaultHashKey
	}
	return &PreferenceStore{client: client, hashKey: hashKey}
}

func (s *PreferenceStore) GetString(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.hashKey, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis HGET %s: %w", key, err)
	}
	return v, true, nil
}

func (s *PreferenceStore) SetString(ctx context.Context, key, value string) error {
	if err := s.client.HSet(ctx, s.hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}
	return nil
}
