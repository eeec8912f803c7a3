package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := t.Context()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := t.Context()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "volume:toybox-assets:v3", []byte(`{"files":[]}`), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, "volume:toybox-assets:v3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit || !bytes.Equal(data, []byte(`{"files":[]}`)) {
		t.Errorf("Get = (%q, %v)", data, hit)
	}

	if err := c.Delete(ctx, "volume:toybox-assets:v3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "volume:toybox-assets:v3"); hit {
		t.Error("hit after Delete")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := t.Context()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCacheZeroTTLStoresForever(t *testing.T) {
	ctx := t.Context()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "key"); !hit {
		t.Error("zero-ttl entry should not expire")
	}
}

func TestFileCacheMissingKey(t *testing.T) {
	ctx := t.Context()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "never-set"); hit || err != nil {
		t.Errorf("Get = (_, %v, %v)", hit, err)
	}
	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("platform", "GET /api/volumes"); got != "http:platform:GET /api/volumes" {
		t.Errorf("HTTPKey unexpected: %s", got)
	}
	if got := k.VolumeKey("toybox-assets", "v3"); got != "volume:toybox-assets:v3" {
		t.Errorf("VolumeKey unexpected: %s", got)
	}

	// Option changes must change the key
	pk1 := k.PlanKey("hash123", PlanKeyOpts{Seed: 1})
	pk2 := k.PlanKey("hash123", PlanKeyOpts{Seed: 2})
	if pk1 == pk2 {
		t.Error("Different PlanKeyOpts should produce different keys")
	}

	ek1 := k.ExportKey("hash123", ExportKeyOpts{Format: "svg"})
	ek2 := k.ExportKey("hash123", ExportKeyOpts{Format: "png"})
	if ek1 == ek2 {
		t.Error("Different ExportKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "ws:123:")

	if got := scoped.HTTPKey("platform", "key"); got != "ws:123:http:platform:key" {
		t.Errorf("ScopedKeyer HTTPKey unexpected: %s", got)
	}
	pk := scoped.PlanKey("hash", PlanKeyOpts{})
	if len(pk) < 7 || pk[:7] != "ws:123:" {
		t.Errorf("ScopedKeyer PlanKey should be prefixed: %s", pk)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Falls back to DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	if got := scoped.VolumeKey("v", "1"); got != "prefix:volume:v:1" {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestOpen(t *testing.T) {
	c, err := Open(BackendFile, t.TempDir(), "")
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	c.Close()

	c, err = Open(BackendOff, "", "")
	if err != nil {
		t.Fatalf("Open off: %v", err)
	}
	if _, ok := c.(*NullCache); !ok {
		t.Errorf("Open(off) = %T", c)
	}

	if _, err := Open("memcached", "", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
