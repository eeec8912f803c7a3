package graph

import (
	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
)

// SchemaVersion is the descriptor schema version this package reads and
// writes. Older descriptors without a version field are treated as version 1
// and rejected.
const SchemaVersion = 2

// Graph is a parsed graph descriptor: an ordered list of node instances
// whose inputs wire them into a pipeline. The structure mirrors the YAML
// file; semantic checks live in Validate.
type Graph struct {
	// Version is the descriptor schema version.
	Version int
	// Name identifies the graph within its channel, normally the filename
	// stem (graphs/default.yaml -> "default").
	Name string
	// Description is an optional free-form summary shown by listings.
	Description string
	// Nodes holds the instances in file order.
	Nodes []*Node

	byName map[string]*Node
}

// Node returns the instance with the given name and true, or nil and false.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// reindex rebuilds the name lookup. Called after decoding; duplicate names
// keep the first occurrence so Validate can still report the duplicate.
func (g *Graph) reindex() {
	g.byName = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, exists := g.byName[n.Name]; !exists {
			g.byName[n.Name] = n
		}
	}
}

// Wire is one resolved link occurrence: the consuming instance and input
// port on one side, the producing instance and output port on the other.
type Wire struct {
	To     string // consuming instance
	Input  string // input port on the consumer
	Source Link   // producing instance and output port
}

// Wires returns every link in the graph in file order, including links
// nested inside list values.
func (g *Graph) Wires() []Wire {
	var wires []Wire
	for _, n := range g.Nodes {
		for _, port := range n.InputNames() {
			v, _ := n.Input(port)
			for _, link := range v.Links() {
				wires = append(wires, Wire{To: n.Name, Input: port, Source: link})
			}
		}
	}
	return wires
}

// Node is one node instance in a graph descriptor. Inputs preserve the
// declaration order from the YAML file so listings and exports are stable.
type Node struct {
	// Name is the instance name, unique within the graph.
	Name string
	// Type is the fully qualified node type, e.g. "toybox.RandomPlacement".
	Type string

	inputs map[string]Value
	order  []string
}

// NewNode creates a node instance with no inputs.
func NewNode(name, typ string) *Node {
	return &Node{Name: name, Type: typ, inputs: map[string]Value{}}
}

// Input returns the value bound to the input port and true, or the zero
// value and false when the port is not set.
func (n *Node) Input(port string) (Value, bool) {
	v, ok := n.inputs[port]
	return v, ok
}

// SetInput binds a value to an input port, appending to the declaration
// order if the port is new.
func (n *Node) SetInput(port string, v Value) {
	if n.inputs == nil {
		n.inputs = map[string]Value{}
	}
	if _, exists := n.inputs[port]; !exists {
		n.order = append(n.order, port)
	}
	n.inputs[port] = v
}

// InputNames returns the input port names in declaration order.
func (n *Node) InputNames() []string { return n.order }

// yamlNode is the plain wire shape of a node instance. Inputs decode
// through a yaml.Node so declaration order survives.
type yamlNode struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Inputs yaml.Node `yaml:"inputs"`
}

// UnmarshalYAML decodes a node instance, preserving input order.
func (n *Node) UnmarshalYAML(node *yaml.Node) error {
	var raw yamlNode
	if err := node.Decode(&raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "invalid node at line %d", node.Line)
	}
	n.Name = raw.Name
	n.Type = raw.Type
	n.inputs = map[string]Value{}
	n.order = nil

	if raw.Inputs.Kind == 0 || raw.Inputs.Tag == "!!null" {
		return nil
	}
	if raw.Inputs.Kind != yaml.MappingNode {
		return errors.New(errors.ErrCodeInvalidGraph,
			"node %q: inputs must be a mapping (line %d)", raw.Name, raw.Inputs.Line)
	}
	for i := 0; i < len(raw.Inputs.Content); i += 2 {
		key, payload := raw.Inputs.Content[i], raw.Inputs.Content[i+1]
		if _, dup := n.inputs[key.Value]; dup {
			return errors.New(errors.ErrCodeInvalidGraph,
				"node %q: duplicate input %q (line %d)", raw.Name, key.Value, key.Line)
		}
		var v Value
		if err := v.UnmarshalYAML(payload); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidValue, err,
				"node %q: input %q", raw.Name, key.Value)
		}
		n.SetInput(key.Value, v)
	}
	return nil
}

// MarshalYAML re-encodes the node with inputs in declaration order.
func (n *Node) MarshalYAML() (any, error) {
	inputs := &yaml.Node{Kind: yaml.MappingNode}
	for _, port := range n.order {
		var key, val yaml.Node
		key.SetString(port)
		if err := val.Encode(n.inputs[port]); err != nil {
			return nil, err
		}
		inputs.Content = append(inputs.Content, &key, &val)
	}

	out := &yaml.Node{Kind: yaml.MappingNode}
	appendPair := func(k string, v *yaml.Node) {
		var key yaml.Node
		key.SetString(k)
		out.Content = append(out.Content, &key, v)
	}
	var name, typ yaml.Node
	name.SetString(n.Name)
	typ.SetString(n.Type)
	appendPair("name", &name)
	appendPair("type", &typ)
	if len(n.order) > 0 {
		appendPair("inputs", inputs)
	}
	return out, nil
}
