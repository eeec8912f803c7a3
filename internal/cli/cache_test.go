package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWalkCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "ab"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"ab/one.json": "12345",
		"two.json":    "123",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	count, size := walkCache(dir)
	if count != 2 || size != 8 {
		t.Errorf("walkCache = (%d, %d), want (2, 8)", count, size)
	}
}

func TestWalkCacheMissingDir(t *testing.T) {
	count, size := walkCache(filepath.Join(t.TempDir(), "nope"))
	if count != 0 || size != 0 {
		t.Errorf("walkCache = (%d, %d), want zeroes", count, size)
	}
}
