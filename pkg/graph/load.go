package graph

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
)

// file is the top-level shape of a graph descriptor file.
type file struct {
	Version     int     `yaml:"version"`
	Description string  `yaml:"description"`
	Nodes       []*Node `yaml:"nodes"`
}

// Load parses a graph descriptor from r. The name is recorded on the
// resulting graph; use the filename stem when loading from disk.
//
// Load checks the schema version and YAML well-formedness only. Run
// Validate for reference and cycle checks.
func Load(r io.Reader, name string) (*Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "graph %q: empty descriptor", name)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "graph %q: cannot parse descriptor", name)
	}
	if f.Version != SchemaVersion {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"graph %q: unsupported schema version %d (want %d)", name, f.Version, SchemaVersion)
	}
	if len(f.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "graph %q: descriptor has no nodes", name)
	}

	g := &Graph{
		Version:     f.Version,
		Name:        name,
		Description: f.Description,
		Nodes:       f.Nodes,
	}
	g.reindex()
	return g, nil
}

// LoadFile parses the graph descriptor at path. The graph name is the
// filename without its extension.
func LoadFile(path string) (*Graph, error) {
	if err := errors.ValidateGraphFilename(filepath.Base(path)); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph descriptor %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot open %s", path)
	}
	defer f.Close()

	return Load(f, Stem(path))
}

// LoadDir parses every *.yaml and *.yml descriptor directly under dir,
// sorted by name. Subdirectories are ignored. A directory with no
// descriptors yields an empty slice, not an error; a descriptor that fails
// to parse aborts the load.
func LoadDir(dir string) ([]*Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graphs directory %s not found", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot read %s", dir)
	}

	var graphs []*Graph
	for _, entry := range entries {
		if entry.IsDir() || errors.ValidateGraphFilename(entry.Name()) != nil {
			continue
		}
		g, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	sort.Slice(graphs, func(i, j int) bool { return graphs[i].Name < graphs[j].Name })
	return graphs, nil
}

// Stem returns the graph name for a descriptor path: the basename without
// its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Marshal encodes the graph back to canonical descriptor YAML. Node and
// input order follow the in-memory declaration order, and links are
// normalized to the shorthand form.
func Marshal(g *Graph) ([]byte, error) {
	f := file{
		Version:     g.Version,
		Description: g.Description,
		Nodes:       g.Nodes,
	}
	out, err := yaml.Marshal(&f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "graph %q: cannot encode descriptor", g.Name)
	}
	return out, nil
}
