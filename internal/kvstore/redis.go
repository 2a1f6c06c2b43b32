// Package kvstore wraps the shared Redis instance used for ephemeral state:
// active essay sessions and rate-limit windows.
package kvstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lingwo/essayd/internal/domain"
)

// Store is the ephemeral key-value store backed by Redis.
type Store struct {
	rdb *redis.Client
}

// New creates a store connected to the given Redis instance.
func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Client exposes the underlying client for components that need pipelined
// sorted-set operations (the rate limiter).
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Ping verifies connectivity. Called once at startup.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", domain.ErrUpstream, err)
	}
	return nil
}

// Get retrieves a string blob. A missing key is (found=false, err=nil).
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get: %v", domain.ErrUpstream, err)
	}
	return val, true, nil
}

// Set stores a string blob without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrUpstream, err)
	}
	return nil
}

// SetNX stores a string blob only if the key does not exist. Returns whether
// the write happened. This is the atomic check-and-set behind the
// one-active-session-per-user invariant.
func (s *Store) SetNX(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis setnx: %v", domain.ErrUpstream, err)
	}
	return ok, nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", domain.ErrUpstream, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}
