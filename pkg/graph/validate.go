package graph

import (
	"github.com/channelkit/channelkit/pkg/dag"
	"github.com/channelkit/channelkit/pkg/errors"
)

// Validate performs the structural checks on a descriptor: instance name
// and type identifier format, duplicate instances, link resolution, and
// acyclicity. It returns every finding rather than stopping at the first,
// so lint output can show the whole picture at once.
//
// Port existence against node type definitions is a schema concern and
// lives in pkg/schema.
func Validate(g *Graph) []error {
	var findings []error

	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := errors.ValidateInstanceName(n.Name); err != nil {
			findings = append(findings, errors.Wrap(errors.ErrCodeInvalidGraph, err,
				"graph %q: node %q", g.Name, n.Name))
		}
		if err := errors.ValidateNodeType(n.Type); err != nil {
			findings = append(findings, errors.Wrap(errors.ErrCodeUnknownNodeType, err,
				"graph %q: node %q", g.Name, n.Name))
		}
		if seen[n.Name] {
			findings = append(findings, errors.New(errors.ErrCodeInvalidGraph,
				"graph %q: duplicate node instance %q", g.Name, n.Name))
		}
		seen[n.Name] = true
	}

	for _, w := range g.Wires() {
		if _, ok := g.Node(w.Source.Node); !ok {
			findings = append(findings, errors.New(errors.ErrCodeUnresolvedRef,
				"graph %q: node %q input %q links to unknown instance %q",
				g.Name, w.To, w.Input, w.Source.Node))
		}
		if w.Source.Node == w.To {
			findings = append(findings, errors.New(errors.ErrCodeGraphCycle,
				"graph %q: node %q input %q links to itself", g.Name, w.To, w.Input))
		}
	}

	// Structural errors would make the wiring graph ambiguous, so only
	// run cycle detection on an otherwise clean descriptor.
	if len(findings) == 0 {
		if _, err := Build(g); err != nil {
			findings = append(findings, err)
		}
	}
	return findings
}

// Build constructs the dependency DAG from the descriptor's links. Each
// node instance becomes a vertex carrying its type in the metadata; each
// link becomes a producer-to-consumer edge carrying the two port names.
// Returns an error with code GRAPH_CYCLE when the links form a cycle.
func Build(g *Graph) (*dag.DAG, error) {
	d := dag.New(dag.Metadata{"graph": g.Name})

	for _, n := range g.Nodes {
		err := d.AddNode(dag.Node{ID: n.Name, Meta: dag.Metadata{"type": n.Type}})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "graph %q: node %q", g.Name, n.Name)
		}
	}
	for _, w := range g.Wires() {
		err := d.AddEdge(dag.Edge{
			From: w.Source.Node,
			To:   w.To,
			Meta: dag.Metadata{"output": w.Source.Port, "input": w.Input},
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnresolvedRef, err,
				"graph %q: node %q input %q", g.Name, w.To, w.Input)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGraphCycle, err, "graph %q", g.Name)
	}
	return d, nil
}
