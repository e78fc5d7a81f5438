// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the registered hooks without depending on a
// metrics backend. The API server registers a Prometheus implementation at
// startup; everything else runs with the no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEngineHooks(&myEngineHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	err := store.Set(ctx, key, data)
//	observability.Store().OnFlush(ctx, len(data), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the editing engine.
type EngineHooks interface {
	// OnChangeBatch records one applied node change batch.
	OnChangeBatch(ctx context.Context, changes, moved, removed int)

	// OnAttach records the answer to a drop-to-group confirmation.
	OnAttach(ctx context.Context, accepted bool)

	// OnCommand records a dispatched command and its rejection reason,
	// which is empty when the command was applied.
	OnCommand(ctx context.Context, command, reason string)

	// OnLayout records a group auto-layout pass that moved containers.
	OnLayout(ctx context.Context, graphID string)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from project persistence.
type StoreHooks interface {
	// OnLoad records a project load. migrated and fellBack mirror the
	// decode report.
	OnLoad(ctx context.Context, migrated, fellBack bool, duration time.Duration, err error)

	// OnFlush records a project write.
	OnFlush(ctx context.Context, size int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnChangeBatch(context.Context, int, int, int) {}
func (NoopEngineHooks) OnAttach(context.Context, bool)               {}
func (NoopEngineHooks) OnCommand(context.Context, string, string)    {}
func (NoopEngineHooks) OnLayout(context.Context, string)             {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnLoad(context.Context, bool, bool, time.Duration, error) {}
func (NoopStoreHooks) OnFlush(context.Context, int, time.Duration, error)       {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
// This should be called once at application startup.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	storeHooks = NoopStoreHooks{}
}
