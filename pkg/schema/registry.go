package schema

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
)

// manifest is the top-level shape of a nodes/ manifest file.
type manifest struct {
	Package string     `yaml:"package"`
	Nodes   []*NodeDef `yaml:"nodes"`
}

// Registry indexes node type definitions by their fully qualified names.
// Build one with NewRegistry and Register, or load a channel's nodes/
// directory with LoadDir.
type Registry struct {
	defs map[string]*NodeDef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]*NodeDef{}}
}

// Register adds a definition, rejecting duplicates and malformed types.
func (r *Registry) Register(def *NodeDef) error {
	if err := def.validate(); err != nil {
		return err
	}
	qt := def.QualifiedType()
	if _, exists := r.defs[qt]; exists {
		return errors.New(errors.ErrCodeInvalidManifest, "node type %s registered twice", qt)
	}
	r.defs[qt] = def
	return nil
}

// Lookup returns the definition for a fully qualified type name.
func (r *Registry) Lookup(qualifiedType string) (*NodeDef, bool) {
	def, ok := r.defs[qualifiedType]
	return def, ok
}

// Types returns all registered qualified type names, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for qt := range r.defs {
		types = append(types, qt)
	}
	sort.Strings(types)
	return types
}

// Len returns the number of registered node types.
func (r *Registry) Len() int { return len(r.defs) }

// Load parses one manifest from r and registers its definitions.
func (r *Registry) Load(src io.Reader, name string) error {
	dec := yaml.NewDecoder(src)
	dec.KnownFields(true)

	var m manifest
	if err := dec.Decode(&m); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %s: cannot parse", name)
	}
	if m.Package == "" {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest %s: missing package", name)
	}
	if len(m.Nodes) == 0 {
		return errors.New(errors.ErrCodeInvalidManifest, "manifest %s: no node definitions", name)
	}
	for _, def := range m.Nodes {
		def.Package = m.Package
		if err := r.Register(def); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest %s", name)
		}
	}
	return nil
}

// LoadDir loads every *.yaml and *.yml manifest directly under dir into a
// fresh registry. A missing directory is an error; an empty one yields an
// empty registry, which validates only graphs that reference no types.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "nodes directory %s not found", dir)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot read %s", dir)
	}

	reg := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "cannot open %s", entry.Name())
		}
		err = reg.Load(f, entry.Name())
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ValidateGraph checks a descriptor against the registered node types:
// every instance's type must exist, every bound input must be a declared
// port, required inputs must be bound, choice-restricted scalars must be
// legal, and every link must name a declared output of its source type.
// Structural checks (duplicates, cycles) are graph.Validate's job; run
// both for a full picture.
func (r *Registry) ValidateGraph(g *graph.Graph) []error {
	var findings []error

	for _, n := range g.Nodes {
		def, ok := r.Lookup(n.Type)
		if !ok {
			findings = append(findings, errors.New(errors.ErrCodeUnknownNodeType,
				"graph %q: node %q has unknown type %q", g.Name, n.Name, n.Type))
			continue
		}
		for _, portName := range n.InputNames() {
			port, ok := def.Input(portName)
			if !ok {
				findings = append(findings, errors.New(errors.ErrCodeUnknownPort,
					"graph %q: node %q: type %s has no input %q", g.Name, n.Name, n.Type, portName))
				continue
			}
			v, _ := n.Input(portName)
			if err := checkChoices(port, v); err != nil {
				findings = append(findings, errors.Wrap(errors.ErrCodeInvalidValue, err,
					"graph %q: node %q input %q", g.Name, n.Name, portName))
			}
		}
		for _, port := range def.Inputs {
			if !port.Required {
				continue
			}
			if _, bound := n.Input(port.Name); !bound {
				findings = append(findings, errors.New(errors.ErrCodeInvalidGraph,
					"graph %q: node %q: required input %q not bound", g.Name, n.Name, port.Name))
			}
		}
	}

	for _, w := range g.Wires() {
		src, ok := g.Node(w.Source.Node)
		if !ok {
			continue // unresolved instance is a structural finding
		}
		def, ok := r.Lookup(src.Type)
		if !ok {
			continue // unknown type already reported above
		}
		if _, ok := def.Output(w.Source.Port); !ok {
			findings = append(findings, errors.New(errors.ErrCodeUnknownPort,
				"graph %q: node %q input %q links to %s, but type %s has no output %q",
				g.Name, w.To, w.Input, w.Source, src.Type, w.Source.Port))
		}
	}

	return findings
}

// checkChoices enforces a port's choice list on scalar values and scalar
// list elements. Links and randomization specs are left to the
// interpreter, except choice specs whose options must all be legal.
func checkChoices(port *Port, v graph.Value) error {
	if len(port.Choices) == 0 {
		return nil
	}
	switch v.Kind() {
	case graph.KindScalar:
		s, _ := v.AsScalar()
		if !containsChoice(port.Choices, s) {
			return errors.New(errors.ErrCodeInvalidValue, "value %v not in choices %v", s, port.Choices)
		}
	case graph.KindList:
		list, _ := v.AsList()
		for _, elem := range list {
			if err := checkChoices(port, elem); err != nil {
				return err
			}
		}
	case graph.KindRandom:
		spec, _ := v.AsRandom()
		if spec.Distribution != graph.DistChoice {
			return nil
		}
		for _, c := range spec.Choices {
			if !containsChoice(port.Choices, c) {
				return errors.New(errors.ErrCodeInvalidValue, "random choice %v not in choices %v", c, port.Choices)
			}
		}
	}
	return nil
}

func containsChoice(choices []any, v any) bool {
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}
