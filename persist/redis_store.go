package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the checkpoint and the journal under two string keys
// sharing a prefix. Journal records are appended with APPEND, and a
// checkpoint writes both keys in one MULTI/EXEC.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore using keys "<prefix>:state" and
// "<prefix>:messages".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) stateKey() string   { return s.prefix + ":state" }
func (s *RedisStore) journalKey() string { return s.prefix + ":messages" }

// Checkpoint implements Store.
func (s *RedisStore) Checkpoint(ctx context.Context, state []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.stateKey(), state, 0)
		pipe.Set(ctx, s.journalKey(), []byte{}, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Append implements Store.
func (s *RedisStore) Append(ctx context.Context, record []byte) error {
	if err := s.client.Append(ctx, s.journalKey(), string(record)).Err(); err != nil {
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return nil
}

// LoadCheckpoint implements Store.
func (s *RedisStore) LoadCheckpoint(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.stateKey())
}

// LoadJournal implements Store.
func (s *RedisStore) LoadJournal(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.journalKey())
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.stateKey(), s.journalKey()).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, nil
}

var _ Store = (*RedisStore)(nil)
