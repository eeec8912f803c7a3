package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// The serve mode uses it so different workspaces or users get separate
// cache namespaces.
//
// Example usage:
//
//	// Workspace-specific keys
//	wsKeyer := NewScopedKeyer(NewDefaultKeyer(), "ws:abc123:")
//
//	// Shared keys for public volumes
//	globalKeyer := NewDefaultKeyer()
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

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// PlanKey generates a prefixed key for plan caching.
func (k *ScopedKeyer) PlanKey(graphHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(graphHash, opts)
}

// ExportKey generates a prefixed key for export caching.
func (k *ScopedKeyer) ExportKey(graphHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(graphHash, opts)
}

// VolumeKey generates a prefixed key for volume manifest caching.
func (k *ScopedKeyer) VolumeKey(name, version string) string {
	return k.prefix + k.inner.VolumeKey(name, version)
}
