package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	data, ok, err := s.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok || data != nil {
		t.Error("NullStore.Get should always report a missing key")
	}

	if err := s.Set(ctx, "key", []byte("value")); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, ok, _ = s.Get(ctx, "key"); ok {
		t.Error("NullStore should not store data")
	}
	if err := s.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

// exercise runs the common Store contract against s.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "project:p1"); ok || err != nil {
		t.Fatalf("Get on empty store = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "project:p1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Set(ctx, "project:p1", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("overwrite error: %v", err)
	}
	data, ok, err := s.Get(ctx, "project:p1")
	if err != nil || !ok || string(data) != `{"v":2}` {
		t.Fatalf("Get = %q, %v, %v", data, ok, err)
	}
	if err := s.Delete(ctx, "project:p1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := s.Delete(ctx, "project:p1"); err != nil {
		t.Fatalf("Delete of missing key error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "project:p1"); ok {
		t.Error("key survived Delete")
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exercise(t, s)

	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("MemoryStore aliased the caller's slice: %q", got)
	}

	_ = s.Close()
	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v", err)
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = s.Set(ctx, key, []byte(key))
			_, _, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if s.Len() != 20 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "nested", "store"))
	if err != nil {
		t.Fatal(err)
	}
	exercise(t, s)

	ctx := context.Background()
	if err := s.Set(ctx, "project:p2", []byte("data")); err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("project:p2"))
	path := filepath.Join(s.Dir(), hash[:2], hash[2:]+".json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected record at %s: %v", path, err)
	}

	if err := os.WriteFile(path, []byte("{torn"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := s.Get(ctx, "project:p2"); ok || err != nil {
		t.Errorf("corrupt record = %v, %v; want missing", ok, err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestKeyers(t *testing.T) {
	k := NewDefaultKeyer()
	if k.ProjectKey("p1") != "project:p1" || k.LayoutKey("p1") != "layout:p1" {
		t.Errorf("DefaultKeyer = %s, %s", k.ProjectKey("p1"), k.LayoutKey("p1"))
	}

	scoped := NewScopedKeyer(k, "ws:acme:")
	if got := scoped.ProjectKey("p1"); got != "ws:acme:project:p1" {
		t.Errorf("ScopedKeyer ProjectKey = %s", got)
	}
	if got := NewScopedKeyer(nil, "x:").LayoutKey("p1"); got != "x:layout:p1" {
		t.Errorf("ScopedKeyer with nil inner = %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrUnavailable)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrUnavailable.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("wrapped error should unwrap to the sentinel")
	}
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := RetryDelay
	RetryDelay = time.Millisecond
	defer func() { RetryDelay = old }()
	ctx := context.Background()

	calls := 0
	if err := RetryWithBackoff(ctx, func() error { calls++; return nil }); err != nil || calls != 1 {
		t.Errorf("success: err=%v calls=%d", err, calls)
	}

	calls = 0
	err := RetryWithBackoff(ctx, func() error { calls++; return ErrNotFound })
	if err != ErrNotFound || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrUnavailable)
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("retry once: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error { calls++; return Retryable(ErrUnavailable) })
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrUnavailable)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
