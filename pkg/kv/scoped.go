package kv

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This is useful when one backend serves several workspaces that need
// separate namespaces.
//
// Example usage:
//
//	// Workspace-specific keys
//	ws := NewScopedKeyer(NewDefaultKeyer(), "ws:acme:")
//	ws.ProjectKey("p1") // "ws:acme:project:p1"
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ProjectKey generates a prefixed project key.
func (k *ScopedKeyer) ProjectKey(projectID string) string {
	return k.prefix + k.inner.ProjectKey(projectID)
}

// LayoutKey generates a prefixed layout key.
func (k *ScopedKeyer) LayoutKey(projectID string) string {
	return k.prefix + k.inner.LayoutKey(projectID)
}
