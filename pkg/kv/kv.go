// Package kv is the key/value persistence medium behind an editor session.
//
// A [Store] holds opaque byte values under string keys. The engine stores one
// project record per project, and optionally an editor layout record next to
// it; [Keyer] derives both keys from a project id.
//
// This package ships three stores:
//   - [FileStore]: one file per key in a hashed fan-out directory, for the CLI
//   - [MemoryStore]: a map guarded by a mutex, for tests and ephemeral servers
//   - [NullStore]: discards writes, for dry runs
//
// Network and embedded database backends live in the badgerkv, rediskv,
// mongokv and postgreskv subpackages. They report transient failures wrapped
// with [Retryable] so callers can use [RetryWithBackoff].
package kv

import "context"

// Store is a key/value persistence medium.
//
// Get reports a missing key as (nil, false, nil); a non-nil error always
// means the medium itself failed.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer derives storage keys for a project.
type Keyer interface {
	// ProjectKey is the key of the project record.
	ProjectKey(projectID string) string
	// LayoutKey is the key of the detached editor layout record.
	LayoutKey(projectID string) string
}

// DefaultKeyer produces "project:<id>" and "layout:<id>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ProjectKey implements Keyer.
func (DefaultKeyer) ProjectKey(projectID string) string { return "project:" + projectID }

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(projectID string) string { return "layout:" + projectID }
