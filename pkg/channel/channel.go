// Package channel loads and lints channel bundles: the directory layout a
// synthetic-data channel ships as.
//
// A bundle looks like:
//
//	channel.yml      manifest (name, default graph, volumes, docs)
//	graphs/          graph descriptors, one YAML file each
//	nodes/           node type manifests, one YAML file per package
//	README.md        optional docs referenced from the manifest
//
// Load reads the whole bundle into memory; Lint runs every check the
// validate command reports.
package channel

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
	"github.com/channelkit/channelkit/pkg/schema"
)

// ManifestFile is the manifest filename at the bundle root.
const ManifestFile = "channel.yml"

// Directory names within a bundle.
const (
	GraphsDir = "graphs"
	NodesDir  = "nodes"
)

// Manifest is the parsed channel.yml.
type Manifest struct {
	// Version is the manifest schema version, matching the graph
	// descriptor schema.
	Version int `yaml:"version"`
	// Name identifies the channel on the platform.
	Name string `yaml:"name"`
	// Description is an optional free-form summary.
	Description string `yaml:"description,omitempty"`
	// DefaultGraph names the graph (by stem) used when run is invoked
	// without --graph.
	DefaultGraph string `yaml:"default_graph"`
	// Docs lists bundle-relative documentation paths.
	Docs []string `yaml:"docs,omitempty"`
	// Volumes lists the platform volumes the channel's nodes read
	// assets from.
	Volumes []string `yaml:"volumes,omitempty"`
}

// Bundle is a fully loaded channel: manifest, descriptors, and node type
// registry, with the bundle root retained for lint checks on referenced
// files.
type Bundle struct {
	Dir      string
	Manifest Manifest
	Graphs   []*graph.Graph
	Registry *schema.Registry
}

// Load reads the bundle rooted at dir. It fails on a missing or malformed
// manifest and on descriptors or node manifests that do not parse; semantic
// problems (bad wiring, missing defaults) are left to Lint so one broken
// graph does not hide the others' findings.
func Load(dir string) (*Bundle, error) {
	m, err := loadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	graphs, err := graph.LoadDir(filepath.Join(dir, GraphsDir))
	if err != nil {
		return nil, err
	}

	reg, err := schema.LoadDir(filepath.Join(dir, NodesDir))
	if err != nil {
		return nil, err
	}

	return &Bundle{Dir: dir, Manifest: m, Graphs: graphs, Registry: reg}, nil
}

func loadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "no %s found; is this a channel directory?", ManifestFile)
		}
		return Manifest{}, errors.Wrap(errors.ErrCodeInternal, err, "cannot read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errors.Wrap(errors.ErrCodeInvalidManifest, err, "cannot parse %s", ManifestFile)
	}
	if m.Version != graph.SchemaVersion {
		return Manifest{}, errors.New(errors.ErrCodeUnsupported,
			"%s: unsupported manifest version %d (want %d)", ManifestFile, m.Version, graph.SchemaVersion)
	}
	if m.Name == "" {
		return Manifest{}, errors.New(errors.ErrCodeInvalidManifest, "%s: missing channel name", ManifestFile)
	}
	return m, nil
}

// Graph returns the named descriptor and true, or nil and false.
func (b *Bundle) Graph(name string) (*graph.Graph, bool) {
	for _, g := range b.Graphs {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// DefaultGraph returns the manifest's default descriptor.
func (b *Bundle) DefaultGraph() (*graph.Graph, error) {
	if b.Manifest.DefaultGraph == "" {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: no default_graph set", ManifestFile)
	}
	g, ok := b.Graph(b.Manifest.DefaultGraph)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound,
			"default graph %q not found under %s/", b.Manifest.DefaultGraph, GraphsDir)
	}
	return g, nil
}

// Lint runs every bundle check and returns all findings:
//
//   - the default graph exists
//   - every descriptor passes structural validation
//   - every descriptor passes schema validation against nodes/
//   - every docs entry names an existing file inside the bundle
//   - every volume name is well formed
//
// An empty result means the bundle is clean.
func (b *Bundle) Lint() []error {
	var findings []error

	if _, err := b.DefaultGraph(); err != nil {
		findings = append(findings, err)
	}

	for _, g := range b.Graphs {
		findings = append(findings, graph.Validate(g)...)
		findings = append(findings, b.Registry.ValidateGraph(g)...)
	}

	for _, doc := range b.Manifest.Docs {
		if err := errors.ValidatePath(doc); err != nil {
			findings = append(findings, err)
			continue
		}
		if _, err := os.Stat(filepath.Join(b.Dir, doc)); err != nil {
			findings = append(findings, errors.New(errors.ErrCodeFileNotFound,
				"%s: docs entry %q does not exist", ManifestFile, doc))
		}
	}

	for _, vol := range b.Manifest.Volumes {
		if err := errors.ValidateVolumeName(vol); err != nil {
			findings = append(findings, err)
		}
	}

	return findings
}
