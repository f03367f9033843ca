// Package fragments buffers the raw message fragments a user sends while
// their debounce window is open. Fragments accumulate per user in arrival
// order and are drained atomically when the window closes.
package fragments

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store accumulates and drains per-user message fragments.
type Store interface {
	// Append adds a fragment to the end of the user's buffer.
	Append(ctx context.Context, userKey, fragment string) error

	// Drain atomically removes and returns all buffered fragments for the
	// user in arrival order. A user with no buffer yields an empty slice.
	// Concurrent drains never deliver the same fragment twice.
	Drain(ctx context.Context, userKey string) ([]string, error)
}

// RedisStore keeps each user's buffer in a Redis list so fragments survive
// process restarts while a window is open.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a fragment store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func fragmentKey(userKey string) string {
	return "fragments:" + userKey
}

// Append pushes the fragment onto the tail of the user's list.
func (s *RedisStore) Append(ctx context.Context, userKey, fragment string) error {
	if err := s.client.RPush(ctx, fragmentKey(userKey), fragment).Err(); err != nil {
		return fmt.Errorf("failed to append fragment: %w", err)
	}
	return nil
}

// Drain reads and deletes the user's list in one transaction so a fragment
// arriving between the read and the delete is never lost or duplicated.
func (s *RedisStore) Drain(ctx context.Context, userKey string) ([]string, error) {
	var read *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		read = pipe.LRange(ctx, fragmentKey(userKey), 0, -1)
		pipe.Del(ctx, fragmentKey(userKey))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain fragments: %w", err)
	}
	return read.Val(), nil
}
