package httputil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	type manifest struct {
		Name    string   `json:"name"`
		Objects []string `json:"objects"`
	}

	in := manifest{Name: "toybox-assets", Objects: []string{"cube.blend", "skittle.blend"}}
	if err := c.Set("volumes:toybox-assets", in); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out manifest
	ok, err := c.Get("volumes:toybox-assets", &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if out.Name != in.Name || len(out.Objects) != 2 {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestCacheMiss(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	var v string
	ok, err := c.Get("absent", &v)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCache(dir, time.Minute)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	if err := c.Set("key", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Age the entry past its TTL by backdating the file.
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("ReadDir: %v (%d entries)", err, len(entries))
	}
	old := time.Now().Add(-2 * time.Minute)
	if err := os.Chtimes(filepath.Join(dir, entries[0].Name()), old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	var v string
	ok, err := c.Get("key", &v)
	if ok {
		t.Error("expected stale entry to miss")
	}
	if !errors.Is(err, ErrExpired) {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

func TestCacheNamespace(t *testing.T) {
	c, err := NewCache(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	jobs := c.Namespace("jobs:")
	if err := jobs.Set("abc", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Same logical key through the parent must not collide.
	var v int
	if ok, _ := c.Get("abc", &v); ok {
		t.Error("unprefixed key should miss")
	}
	if ok, _ := c.Get("jobs:abc", &v); !ok || v != 1 {
		t.Errorf("prefixed key should hit, got ok=%v v=%d", v == 1, v)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent errors)", calls)
	}
}

func TestRetryRetriesRetryable(t *testing.T) {
	calls := 0
	err := Retry(t.Context(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	transient := errors.New("still down")
	err := Retry(t.Context(), 2, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: transient}
	})
	if !errors.Is(err, transient) {
		t.Errorf("err = %v, want wrapped %v", err, transient)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
