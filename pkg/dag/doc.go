// Package dag implements the directed acyclic graph underlying graph
// descriptors: node instances wired by output links.
//
// The descriptor layer (pkg/graph) builds a DAG from the links in a graph
// file and uses it for reference validation, cycle detection, and the
// deterministic ordering the dry-run planner needs. Nodes are identified by
// their instance names; edges point from producer to consumer.
//
// # Usage
//
//	g := dag.New(nil)
//	_ = g.AddNode(dag.Node{ID: "Skittles Generator"})
//	_ = g.AddNode(dag.Node{ID: "Drop Objects"})
//	_ = g.AddEdge(dag.Edge{From: "Skittles Generator", To: "Drop Objects"})
//
//	order, err := g.TopoSort()
//	if err != nil {
//	    // dag.ErrGraphHasCycle
//	}
package dag
