// Package rediskv stores project records in Redis.
//
// Several API servers can share one Redis so that a project opened on one
// instance sees the last flush made on another.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key, e.g. "flowkeeper:".
	Prefix string

	// TTL expires records that are not written again in time. Zero keeps
	// them forever.
	TTL time.Duration
}

// Store implements kv.Store with a go-redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ kv.Store = (*Store)(nil)

// Open connects to Redis and verifies the connection with PING.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, errors.Join(kv.ErrUnavailable, err))
	}
	return New(client, cfg.Prefix, cfg.TTL), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return data, true, nil
}

// Set implements kv.Store.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return wrap("set", key, s.client.Set(ctx, s.prefix+key, value, s.ttl).Err())
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	return wrap("delete", key, s.client.Del(ctx, s.prefix+key).Err())
}

// Close closes the client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

// wrap marks network failures and timeouts as retryable.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrClosed) {
		return kv.ErrClosed
	}
	err = fmt.Errorf("redis %s %s: %w", op, key, err)
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return kv.Retryable(err)
	}
	return err
}
