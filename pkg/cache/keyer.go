package cache

// Keyer generates cache keys for the things channelkit caches. The default
// implementation hashes option structs so any option change invalidates the
// entry; ScopedKeyer layers a tenant prefix on top for the serve mode.
type Keyer interface {
	// HTTPKey keys a platform API response by namespace and request key.
	HTTPKey(namespace, key string) string

	// PlanKey keys a dry-run plan by descriptor content hash and options.
	PlanKey(graphHash string, opts PlanKeyOpts) string

	// ExportKey keys a rendered graph export by descriptor content hash
	// and options.
	ExportKey(graphHash string, opts ExportKeyOpts) string

	// VolumeKey keys a volume manifest by name and version.
	VolumeKey(name, version string) string
}

// PlanKeyOpts captures everything that changes a plan's content.
type PlanKeyOpts struct {
	Seed int64 `json:"seed"`
}

// ExportKeyOpts captures everything that changes an export's content.
type ExportKeyOpts struct {
	Format string `json:"format"`
	Ports  bool   `json:"ports"`
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// PlanKey generates a key for plan caching.
func (k *DefaultKeyer) PlanKey(graphHash string, opts PlanKeyOpts) string {
	return hashKey("plan:"+graphHash, opts)
}

// ExportKey generates a key for export caching.
func (k *DefaultKeyer) ExportKey(graphHash string, opts ExportKeyOpts) string {
	return hashKey("export:"+graphHash, opts)
}

// VolumeKey generates a key for volume manifest caching.
func (k *DefaultKeyer) VolumeKey(name, version string) string {
	return "volume:" + name + ":" + version
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
