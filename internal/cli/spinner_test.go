package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsLabel(t *testing.T) {
	var out syncBuffer
	s := startSpinner(context.Background(), &out, "Connecting to redis")
	time.Sleep(3 * spinnerInterval)
	if d := s.stop(); d <= 0 {
		t.Errorf("stop() = %v, want positive", d)
	}
	if !strings.Contains(out.String(), "Connecting to redis") {
		t.Errorf("output = %q, want label", out.String())
	}
	if !strings.HasSuffix(out.String(), "\r") {
		t.Error("stop should clear the line")
	}
}

func TestSpinnerStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinner(ctx, &syncBuffer{}, "waiting")
	cancel()

	select {
	case <-s.exited:
	case <-time.After(time.Second):
		t.Fatal("spinner did not exit after cancel")
	}
	s.stop()
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := startSpinner(context.Background(), &syncBuffer{}, "waiting")
	s.stop()
	s.stop()
}
