// Package plan builds dry-run execution plans for graph descriptors. A
// plan resolves what the platform interpreter would see without executing
// any node: instances grouped into dependency stages, literal inputs,
// defaults filled in from the node type registry, link provenance, and
// randomization specs sampled from a fixed seed so a plan is reproducible.
package plan

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/graph"
	"github.com/channelkit/channelkit/pkg/schema"
)

// Options configures plan building.
type Options struct {
	// Seed feeds the sampler for randomization specs. The same seed on
	// the same descriptor yields the same plan.
	Seed int64
}

// Plan is the resolved dry run of one graph descriptor.
type Plan struct {
	Graph  string  `json:"graph"`
	Seed   int64   `json:"seed"`
	Stages []Stage `json:"stages"`
}

// Stage groups steps that only depend on earlier stages, so they are
// mutually independent.
type Stage struct {
	Index int    `json:"index"`
	Steps []Step `json:"steps"`
}

// Step is one node instance with its fully resolved inputs in declaration
// order, defaults last.
type Step struct {
	Node   string    `json:"node"`
	Type   string    `json:"type"`
	Inputs []Binding `json:"inputs,omitempty"`
}

// Binding resolves one input port.
type Binding struct {
	Port string `json:"port"`
	// Kind is "literal", "list", "link", "sampled", or "default".
	Kind string `json:"kind"`
	// Value holds the literal, sampled, or default value. Lists resolve
	// to []any with links rendered in shorthand.
	Value any `json:"value,omitempty"`
	// Source is the producing "Instance.Port" for links.
	Source string `json:"source,omitempty"`
	// Spec echoes the randomization spec a sampled value came from.
	Spec *graph.RandomSpec `json:"spec,omitempty"`
}

// Binding kinds.
const (
	KindLiteral = "literal"
	KindList    = "list"
	KindLink    = "link"
	KindSampled = "sampled"
	KindDefault = "default"
)

// Build resolves the descriptor into a plan. The registry supplies input
// defaults; pass an empty registry to plan without schema information.
// The descriptor must already be valid: Build fails on cycles and
// unresolved links but does not repeat the full lint.
func Build(g *graph.Graph, reg *schema.Registry, opts Options) (*Plan, error) {
	d, err := graph.Build(g)
	if err != nil {
		return nil, err
	}
	stages, err := d.Stages()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphCycle, err, "graph %q", g.Name)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	p := &Plan{Graph: g.Name, Seed: opts.Seed}

	for i, stage := range stages {
		st := Stage{Index: i}
		for _, id := range stage {
			n, _ := g.Node(id)
			step, err := resolveStep(n, reg, rng)
			if err != nil {
				return nil, err
			}
			st.Steps = append(st.Steps, step)
		}
		p.Stages = append(p.Stages, st)
	}
	return p, nil
}

func resolveStep(n *graph.Node, reg *schema.Registry, rng *rand.Rand) (Step, error) {
	step := Step{Node: n.Name, Type: n.Type}

	for _, port := range n.InputNames() {
		v, _ := n.Input(port)
		b, err := resolveValue(port, v, rng)
		if err != nil {
			return Step{}, errors.Wrap(errors.ErrCodeInvalidValue, err, "node %q input %q", n.Name, port)
		}
		step.Inputs = append(step.Inputs, b)
	}

	// Unbound declared inputs fall back to their schema defaults, after
	// the explicit bindings so the declared wiring reads first.
	if def, ok := reg.Lookup(n.Type); ok {
		for _, port := range def.Inputs {
			if _, bound := n.Input(port.Name); bound || port.Default == nil {
				continue
			}
			step.Inputs = append(step.Inputs, Binding{
				Port:  port.Name,
				Kind:  KindDefault,
				Value: port.Default,
			})
		}
	}
	return step, nil
}

func resolveValue(port string, v graph.Value, rng *rand.Rand) (Binding, error) {
	switch v.Kind() {
	case graph.KindScalar:
		s, _ := v.AsScalar()
		return Binding{Port: port, Kind: KindLiteral, Value: s}, nil

	case graph.KindList:
		list, _ := v.AsList()
		out := make([]any, 0, len(list))
		for _, elem := range list {
			eb, err := resolveValue(port, elem, rng)
			if err != nil {
				return Binding{}, err
			}
			if eb.Kind == KindLink {
				out = append(out, "link:"+eb.Source)
			} else {
				out = append(out, eb.Value)
			}
		}
		return Binding{Port: port, Kind: KindList, Value: out}, nil

	case graph.KindLink:
		link, _ := v.AsLink()
		return Binding{Port: port, Kind: KindLink, Source: link.String()}, nil

	case graph.KindRandom:
		spec, _ := v.AsRandom()
		sampled, err := Sample(spec, rng)
		if err != nil {
			return Binding{}, err
		}
		return Binding{Port: port, Kind: KindSampled, Value: sampled, Spec: spec}, nil
	}
	return Binding{}, errors.New(errors.ErrCodeInternal, "unknown value kind %v", v.Kind())
}

// Sample draws one value from a randomization spec using the given source.
func Sample(spec *graph.RandomSpec, rng *rand.Rand) (any, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Distribution {
	case graph.DistUniform:
		return spec.Low + rng.Float64()*(spec.High-spec.Low), nil
	case graph.DistNormal:
		return spec.Mean + rng.NormFloat64()*spec.StdDev, nil
	case graph.DistChoice:
		return spec.Choices[rng.Intn(len(spec.Choices))], nil
	}
	return nil, errors.New(errors.ErrCodeInvalidValue, "unknown distribution %q", spec.Distribution)
}

// Steps returns all steps across stages in execution order.
func (p *Plan) Steps() []Step {
	var steps []Step
	for _, st := range p.Stages {
		steps = append(steps, st.Steps...)
	}
	return steps
}

// String renders the plan as indented text for terminal output.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plan for graph %q (seed %d)\n", p.Graph, p.Seed)
	for _, st := range p.Stages {
		fmt.Fprintf(&b, "stage %d:\n", st.Index)
		for _, step := range st.Steps {
			fmt.Fprintf(&b, "  %s (%s)\n", step.Node, step.Type)
			for _, in := range step.Inputs {
				switch in.Kind {
				case KindLink:
					fmt.Fprintf(&b, "    %s <- %s\n", in.Port, in.Source)
				case KindSampled:
					fmt.Fprintf(&b, "    %s = %v (sampled %s)\n", in.Port, in.Value, in.Spec.Distribution)
				case KindDefault:
					fmt.Fprintf(&b, "    %s = %v (default)\n", in.Port, in.Value)
				default:
					fmt.Fprintf(&b, "    %s = %v\n", in.Port, in.Value)
				}
			}
		}
	}
	return b.String()
}
