package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

const testManifest = `version: 2
name: toybox
description: Falling toys in a container.
default_graph: default
`

const testGraph = `version: 2
description: Skittles dropped into the scene.
nodes:
  - name: Skittles
    type: toybox.SkittleGenerator
  - name: Drop Objects
    type: toybox.RandomPlacement
    inputs:
      Object Generators:
        - link: Skittles.Object Generator
  - name: Render
    type: toybox.Render
    inputs:
      Objects of Interest:
        link: Drop Objects.Objects of Interest
`

const testNodes = `package: toybox
nodes:
  - type: SkittleGenerator
    outputs:
      - name: Object Generator
  - type: RandomPlacement
    inputs:
      - name: Object Generators
        required: true
      - name: Number of Objects
        default: 50
    outputs:
      - name: Objects of Interest
  - type: Render
    inputs:
      - name: Objects of Interest
        required: true
`

// writeTestBundle lays out a minimal valid channel on disk.
func writeTestBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"channel.yml":         testManifest,
		"graphs/default.yaml": testGraph,
		"nodes/toybox.yaml":   testNodes,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestValidateBundleClean(t *testing.T) {
	dir := writeTestBundle(t)
	c := New(io.Discard, LogInfo)
	if err := validateBundle(c, dir); err != nil {
		t.Errorf("validateBundle: %v", err)
	}
}

func TestValidateBundleReportsFindings(t *testing.T) {
	dir := writeTestBundle(t)
	bad := "version: 2\nnodes:\n  - name: Ghost\n    type: toybox.Missing\n"
	if err := os.WriteFile(filepath.Join(dir, "graphs", "broken.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := validateBundle(c, dir); err == nil {
		t.Error("expected findings for unknown node type")
	}
}

func TestValidateFile(t *testing.T) {
	dir := writeTestBundle(t)
	if err := validateFile(filepath.Join(dir, "graphs", "default.yaml")); err != nil {
		t.Errorf("validateFile: %v", err)
	}
}

func TestValidateFileRejectsCycle(t *testing.T) {
	dir := t.TempDir()
	cyclic := "version: 2\nnodes:\n" +
		"  - name: A\n    type: t.A\n    inputs:\n      In:\n        link: B.Out\n" +
		"  - name: B\n    type: t.B\n    inputs:\n      In:\n        link: A.Out\n"
	path := filepath.Join(dir, "loop.yaml")
	if err := os.WriteFile(path, []byte(cyclic), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := validateFile(path); err == nil {
		t.Error("expected cycle finding")
	}
}

func TestValidateCommandMissingPath(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.validateCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope")})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing path")
	}
}
