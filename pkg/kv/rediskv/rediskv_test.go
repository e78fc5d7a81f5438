package rediskv

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// Integration tests run against FLOWKEEPER_TEST_REDIS (host:port) when set.
func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("FLOWKEEPER_TEST_REDIS")
	if addr == "" {
		t.Skip("FLOWKEEPER_TEST_REDIS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, Config{Addr: addr, Prefix: "flowkeeper-test:" + t.Name() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "project:p1", []byte("v1")))
	data, ok, err := s.Get(ctx, "project:p1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, s.Delete(ctx, "project:p1"))
	_, ok, err = s.Get(ctx, "project:p1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, kv.ErrUnavailable)
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("get", "k", nil))
	assert.ErrorIs(t, wrap("get", "k", redis.ErrClosed), kv.ErrClosed)
	assert.True(t, kv.IsRetryable(wrap("set", "k", context.DeadlineExceeded)))
	assert.False(t, kv.IsRetryable(wrap("set", "k", errors.New("WRONGTYPE"))))
}
