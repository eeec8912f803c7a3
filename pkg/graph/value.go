package graph

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/channelkit/channelkit/pkg/errors"
)

// Kind identifies which variant a [Value] holds.
type Kind int

const (
	// KindScalar is a literal string, integer, float, or boolean.
	KindScalar Kind = iota
	// KindList is an ordered sequence of values. Ports carry lists on the
	// platform, so a scalar input is equivalent to a one-element list.
	KindList
	// KindLink references another node instance's output port.
	KindLink
	// KindRandom is a randomization spec sampled per interpretation.
	KindRandom
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindLink:
		return "link"
	case KindRandom:
		return "random"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Link references the output port of another node instance in the same
// graph. Instance names cannot contain dots, so the shorthand string form
// "Instance.Port Name" splits at the first dot.
type Link struct {
	Node string `json:"node" yaml:"node"`
	Port string `json:"port" yaml:"port"`
}

// String returns the canonical shorthand form.
func (l Link) String() string { return l.Node + "." + l.Port }

// ParseLink parses the shorthand "Instance.Port" form.
func ParseLink(s string) (Link, error) {
	node, port, ok := strings.Cut(s, ".")
	if !ok || node == "" || port == "" {
		return Link{}, errors.New(errors.ErrCodeUnresolvedRef, "malformed link %q (want \"Instance.Port\")", s)
	}
	return Link{Node: node, Port: port}, nil
}

// Supported randomization distributions.
const (
	DistUniform = "uniform"
	DistNormal  = "normal"
	DistChoice  = "choice"
)

// RandomSpec declares a value to be drawn fresh for every interpretation of
// the graph. Which fields are meaningful depends on Distribution:
//
//   - uniform: Low and High bound the sample
//   - normal: Mean and StdDev parameterize the sample
//   - choice: one element of Choices is picked
type RandomSpec struct {
	Distribution string  `json:"distribution" yaml:"distribution"`
	Low          float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High         float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Mean         float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev       float64 `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	Choices      []any   `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// Validate checks the spec's internal consistency.
func (r *RandomSpec) Validate() error {
	switch r.Distribution {
	case DistUniform:
		if r.Low > r.High {
			return errors.New(errors.ErrCodeInvalidValue, "uniform spec: low %v exceeds high %v", r.Low, r.High)
		}
	case DistNormal:
		if r.StdDev < 0 {
			return errors.New(errors.ErrCodeInvalidValue, "normal spec: negative stddev %v", r.StdDev)
		}
	case DistChoice:
		if len(r.Choices) == 0 {
			return errors.New(errors.ErrCodeInvalidValue, "choice spec: empty choices list")
		}
	default:
		return errors.New(errors.ErrCodeInvalidValue, "unknown distribution %q", r.Distribution)
	}
	return nil
}

// Value is one parameter value in a graph descriptor: a scalar literal, a
// list, a link to another node's output, or a randomization spec.
//
// The zero Value is the scalar nil, which Validate rejects; values normally
// come from YAML decoding.
type Value struct {
	kind   Kind
	scalar any
	list   []Value
	link   Link
	random *RandomSpec
}

// Scalar creates a literal value.
func Scalar(v any) Value { return Value{kind: KindScalar, scalar: v} }

// List creates a list value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// LinkTo creates a link value referencing another node's output port.
func LinkTo(node, port string) Value {
	return Value{kind: KindLink, link: Link{Node: node, Port: port}}
}

// Random creates a randomization value.
func Random(spec RandomSpec) Value { return Value{kind: KindRandom, random: &spec} }

// Kind returns which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// AsScalar returns the literal and true if the value is a scalar.
func (v Value) AsScalar() (any, bool) {
	if v.kind != KindScalar {
		return nil, false
	}
	return v.scalar, true
}

// AsList returns the elements and true if the value is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsLink returns the link and true if the value is a link.
func (v Value) AsLink() (Link, bool) {
	if v.kind != KindLink {
		return Link{}, false
	}
	return v.link, true
}

// AsRandom returns the spec and true if the value is a randomization spec.
func (v Value) AsRandom() (*RandomSpec, bool) {
	if v.kind != KindRandom {
		return nil, false
	}
	return v.random, true
}

// Links returns every link reachable from this value, including links
// nested inside lists. The result is nil for purely literal values.
func (v Value) Links() []Link {
	switch v.kind {
	case KindLink:
		return []Link{v.link}
	case KindList:
		var links []Link
		for _, elem := range v.list {
			links = append(links, elem.Links()...)
		}
		return links
	}
	return nil
}

// UnmarshalYAML decodes the value union from its YAML forms:
//
//	42                          # scalar
//	[1, 2]                      # list
//	link: Drop Objects.Objects  # link shorthand
//	link: {node: ..., port: ...}
//	random: {distribution: uniform, low: 0.4, high: 0.7}
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var scalar any
		if err := node.Decode(&scalar); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidValue, err, "invalid scalar at line %d", node.Line)
		}
		*v = Value{kind: KindScalar, scalar: scalar}
		return nil

	case yaml.SequenceNode:
		list := make([]Value, 0, len(node.Content))
		for _, elem := range node.Content {
			var ev Value
			if err := ev.UnmarshalYAML(elem); err != nil {
				return err
			}
			list = append(list, ev)
		}
		*v = Value{kind: KindList, list: list}
		return nil

	case yaml.MappingNode:
		return v.unmarshalMapping(node)
	}

	return errors.New(errors.ErrCodeInvalidValue, "unsupported YAML node at line %d", node.Line)
}

func (v *Value) unmarshalMapping(node *yaml.Node) error {
	if len(node.Content) != 2 {
		return errors.New(errors.ErrCodeInvalidValue,
			"value mapping at line %d must have exactly one of: link, random", node.Line)
	}
	key, payload := node.Content[0], node.Content[1]

	switch key.Value {
	case "link":
		link, err := decodeLink(payload)
		if err != nil {
			return err
		}
		*v = Value{kind: KindLink, link: link}
		return nil

	case "random":
		var spec RandomSpec
		if err := payload.Decode(&spec); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidValue, err, "invalid random spec at line %d", payload.Line)
		}
		if err := spec.Validate(); err != nil {
			return err
		}
		*v = Value{kind: KindRandom, random: &spec}
		return nil
	}

	return errors.New(errors.ErrCodeInvalidValue, "unknown value key %q at line %d", key.Value, key.Line)
}

func decodeLink(node *yaml.Node) (Link, error) {
	if node.Kind == yaml.ScalarNode {
		return ParseLink(node.Value)
	}
	var link Link
	if err := node.Decode(&link); err != nil {
		return Link{}, errors.Wrap(errors.ErrCodeUnresolvedRef, err, "invalid link at line %d", node.Line)
	}
	if link.Node == "" || link.Port == "" {
		return Link{}, errors.New(errors.ErrCodeUnresolvedRef, "link at line %d missing node or port", node.Line)
	}
	return link, nil
}

// MarshalYAML re-encodes the value in its canonical YAML form. Links use the
// shorthand string; round-tripping a descriptor through Load and Marshal
// normalizes both link spellings to the shorthand.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindScalar:
		return v.scalar, nil
	case KindList:
		return v.list, nil
	case KindLink:
		return map[string]string{"link": v.link.String()}, nil
	case KindRandom:
		return map[string]*RandomSpec{"random": v.random}, nil
	}
	return nil, errors.New(errors.ErrCodeInternal, "unknown value kind %d", int(v.kind))
}
