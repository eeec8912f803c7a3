package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist in the graph.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrSelfEdge is returned by [DAG.AddEdge] when an edge would connect
	// a node to itself. A node cannot consume its own output.
	ErrSelfEdge = errors.New("self-referential edge not allowed")

	// ErrGraphHasCycle is returned by [DAG.Validate] and [DAG.TopoSort]
	// when a cycle is detected. This indicates the graph is not a valid
	// DAG. Cycles are detected using depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph.
// The descriptor layer uses it to carry node types and port names through
// ordering without this package depending on descriptor types. Metadata maps
// are never nil after AddNode.
type Metadata map[string]any

// Node represents a vertex in the wiring graph. Each node corresponds to one
// node instance in a graph descriptor; the ID is the instance name.
//
// The zero value is not usable - ID must be set before adding to a DAG.
type Node struct {
	ID   string   // Unique identifier (the node instance name)
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge represents a directed data dependency between two nodes: the target
// consumes an output of the source.
type Edge struct {
	From string   // Producing node ID
	To   string   // Consuming node ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed acyclic graph of node instances wired by their output
// links. It supports the ordering queries the planner and validator need:
// roots, leaves, topological sort, and stage grouping.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	order    []string            // node IDs in insertion order
	outgoing map[string][]string // nodeID -> consumer IDs
	incoming map[string][]string // nodeID -> producer IDs
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
// The metadata parameter can be nil, in which case an empty map is created.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
// The returned map is never nil and can be safely modified.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists. The node's Meta field is
// automatically initialized to an empty map if nil.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	d.nodes[node.ID] = node
	d.order = append(d.order, node.ID)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist,
// ErrUnknownTargetNode if the To node doesn't exist, or ErrSelfEdge if
// both endpoints are the same node. The edge's Meta field is automatically
// initialized to an empty map if nil.
//
// AddEdge does not check for cycles - use Validate or TopoSort after
// building the graph. Multiple edges between the same nodes are allowed
// (two links between the same pair of instances on different ports).
func (d *DAG) AddEdge(e Edge) error {
	if e.From == e.To {
		return ErrSelfEdge
	}
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes in insertion order.
// The returned slice contains pointers to the actual node structs, so
// modifications affect the graph.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in the graph.
// The order matches insertion order. Modifications to the returned
// slice or its edge structs do not affect the graph.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Consumers returns the IDs of nodes that consume this node's outputs.
// Returns nil if the node has no consumers or doesn't exist. The returned
// slice should not be modified - use it as a read-only view.
func (d *DAG) Consumers(id string) []string { return d.outgoing[id] }

// Producers returns the IDs of nodes whose outputs this node consumes.
// Returns nil if the node has no producers or doesn't exist. The returned
// slice should not be modified - use it as a read-only view.
func (d *DAG) Producers(id string) []string { return d.incoming[id] }

// OutDegree returns the number of outgoing edges from the node.
// Returns 0 if the node doesn't exist.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
// Returns 0 if the node doesn't exist.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Node returns the node with the given ID and true, or nil and false if not
// found. The returned node pointer refers to the actual node in the graph.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Roots returns nodes with no incoming edges, in insertion order.
// These are the nodes the interpreter can start with - typically object
// generators and scene sources. Returns nil for an empty graph.
func (d *DAG) Roots() []*Node {
	var roots []*Node
	for _, id := range d.order {
		if len(d.incoming[id]) == 0 {
			roots = append(roots, d.nodes[id])
		}
	}
	return roots
}

// Leaves returns nodes with no outgoing edges, in insertion order.
// These are terminal nodes whose outputs nothing consumes - typically
// sinks like a render node. Returns nil for an empty graph.
func (d *DAG) Leaves() []*Node {
	var leaves []*Node
	for _, id := range d.order {
		if len(d.outgoing[id]) == 0 {
			leaves = append(leaves, d.nodes[id])
		}
	}
	return leaves
}

// Validate checks that the graph is acyclic and returns nil if valid.
// Returns ErrGraphHasCycle if a cycle is detected.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func (d *DAG) Validate() error {
	return d.detectCycles()
}

// TopoSort returns all node IDs in a topological order: every producer
// appears before its consumers. Ties are broken by insertion order, so the
// result is deterministic for a given descriptor.
// Returns ErrGraphHasCycle if the graph contains a cycle.
func (d *DAG) TopoSort() ([]string, error) {
	sorted := make([]string, 0, len(d.order))
	for _, stage := range d.stages() {
		sorted = append(sorted, stage...)
	}
	if len(sorted) != len(d.order) {
		return nil, ErrGraphHasCycle
	}
	return sorted, nil
}

// Stages groups node IDs into execution stages: every node in stage i
// depends only on nodes in stages < i, so nodes within one stage are
// mutually independent. Stage order and in-stage order are deterministic
// (insertion order within each stage).
// Returns ErrGraphHasCycle if the graph contains a cycle.
func (d *DAG) Stages() ([][]string, error) {
	stages := d.stages()
	total := 0
	for _, s := range stages {
		total += len(s)
	}
	if total != len(d.order) {
		return nil, ErrGraphHasCycle
	}
	return stages, nil
}

// stages performs Kahn's algorithm layer by layer. Nodes trapped in cycles
// never reach in-degree zero and are simply absent from the result; callers
// compare counts to detect that.
func (d *DAG) stages() [][]string {
	indeg := make(map[string]int, len(d.nodes))
	pos := make(map[string]int, len(d.order))
	for i, id := range d.order {
		indeg[id] = len(d.incoming[id])
		pos[id] = i
	}

	var frontier []string
	for _, id := range d.order {
		if indeg[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	var stages [][]string
	for len(frontier) > 0 {
		stages = append(stages, frontier)
		var next []string
		for _, id := range frontier {
			for _, consumer := range d.outgoing[id] {
				indeg[consumer]--
				if indeg[consumer] == 0 {
					next = append(next, consumer)
				}
			}
		}
		// Keep in-stage order stable regardless of edge insertion order.
		slices.SortFunc(next, func(a, b string) int {
			return pos[a] - pos[b]
		})
		frontier = next
	}
	return stages
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, consumer := range d.outgoing[id] {
			switch color[consumer] {
			case white:
				dfs(consumer)
			case gray:
				hasCycle = true
				return
			}
		}
		color[id] = black
	}

	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
