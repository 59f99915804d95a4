// Package buildgraph implements the build DAG: operations and sentinels as
// nodes, Artifacts as edge payloads, coalescing of equivalent sub-paths, and
// automatic insertion of kind-conversion nodes. It is the data-flow graph
// that pkg/orchestrator walks.
package buildgraph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fontgraph/build/pkg/artifact"
	"github.com/fontgraph/build/pkg/bgerr"
	"github.com/fontgraph/build/pkg/operation"
)

// NodeID identifies a node within a Graph. IDs are stable for the lifetime
// of the graph and are assigned in construction order.
type NodeID int64

// NodeKind distinguishes the Source/Sink sentinels from operation nodes.
type NodeKind int

const (
	NodeSource NodeKind = iota
	NodeSink
	NodeOperation
)

// Node is either an Operation instance or a Source/Sink sentinel.
type Node struct {
	ID    NodeID
	Kind  NodeKind
	Op    operation.Operation
	Label string // sink target name, set only for NodeSink
}

// Edge carries the Artifact produced by its source node at OutputSlot,
// consumed by its destination node. OutputSlot also serves as the
// destination's input-slot index when the edge is a cross-target
// dependency link added by AddDependency.
type Edge struct {
	From       NodeID
	To         NodeID
	Output     *artifact.Artifact
	OutputSlot int
}

// Graph is the build DAG.
type Graph struct {
	nodes []*Node
	edges []*Edge

	outEdges map[NodeID][]*Edge
	inEdges  map[NodeID][]*Edge

	sourceID NodeID

	// targetNodes maps a declared target name to the node that produces it
	// (the node whose outgoing edge feeds that target's Sink), supporting
	// late cross-target dependency binding.
	targetNodes map[string]NodeID
}

// New creates a graph with its single Source sentinel already in place.
func New() *Graph {
	g := &Graph{
		outEdges:    make(map[NodeID][]*Edge),
		inEdges:     make(map[NodeID][]*Edge),
		targetNodes: make(map[string]NodeID),
	}
	src := g.addNode(NodeSource, operation.NewSource(), "")
	g.sourceID = src
	return g
}

// SourceID returns the unique Source sentinel's node ID.
func (g *Graph) SourceID() NodeID { return g.sourceID }

// Nodes returns all nodes in construction order. Callers must not mutate the result.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node returns the node with the given ID, or nil if it doesn't exist.
func (g *Graph) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// OutEdges returns the outgoing edges of a node, in insertion order.
func (g *Graph) OutEdges(id NodeID) []*Edge { return g.outEdges[id] }

// InEdges returns the incoming edges of a node, in insertion order.
func (g *Graph) InEdges(id NodeID) []*Edge { return g.inEdges[id] }

// Sinks returns the nodes with no outgoing edges — the graph's externals in
// the consuming direction, which is where orchestration starts.
func (g *Graph) Sinks() []NodeID {
	var out []NodeID
	for _, n := range g.nodes {
		if len(g.outEdges[n.ID]) == 0 {
			out = append(out, n.ID)
		}
	}
	return out
}

// TargetNode looks up the node that produces a declared target, as recorded
// by the AddPath call that built it.
func (g *Graph) TargetNode(targetName string) (NodeID, bool) {
	id, ok := g.targetNodes[targetName]
	return id, ok
}

func (g *Graph) addNode(kind NodeKind, op operation.Operation, label string) NodeID {
	id := NodeID(len(g.nodes))
	n := &Node{ID: id, Kind: kind, Op: op, Label: label}
	g.nodes = append(g.nodes, n)
	return id
}

func (g *Graph) addEdge(from, to NodeID, output *artifact.Artifact, slot int) *Edge {
	e := &Edge{From: from, To: to, Output: output, OutputSlot: slot}
	g.edges = append(g.edges, e)
	g.outEdges[from] = append(g.outEdges[from], e)
	g.inEdges[to] = append(g.inEdges[to], e)
	return e
}

func (g *Graph) removeEdge(target *Edge) {
	g.outEdges[target.From] = removeEdgePtr(g.outEdges[target.From], target)
	g.inEdges[target.To] = removeEdgePtr(g.inEdges[target.To], target)
	for i, e := range g.edges {
		if e == target {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
}

func removeEdgePtr(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// outputKindOf returns the declared kind of a node's first output slot, or
// Any if it has none.
func (g *Graph) outputKindOf(id NodeID) operation.DataKind {
	n := g.Node(id)
	if n == nil || n.Op == nil {
		return operation.Any
	}
	kinds := n.Op.OutputKinds()
	if len(kinds) == 0 {
		return operation.Any
	}
	return kinds[0]
}

// newPlaceholder creates a construction-time Artifact appropriate to a
// declared DataKind: a temp file for Path, empty bytes for Bytes and for
// any other kind.
func newPlaceholder(kind operation.DataKind) *artifact.Artifact {
	if kind == operation.Path {
		return artifact.NewTemporaryFile()
	}
	return artifact.NewBytes(nil)
}

// EnsureDirectories creates the parent directory of every NamedFile
// artifact on an edge, best-effort, before execution begins.
func (g *Graph) EnsureDirectories() error {
	seen := make(map[string]bool)
	for _, e := range g.edges {
		path, ok := e.Output.NamedFilePath()
		if !ok {
			continue
		}
		dir := filepath.Dir(path)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return bgerr.Wrapf(err, bgerr.Other, "ensure directory %s", dir)
		}
	}
	return nil
}

// ReleaseArtifacts releases every edge Artifact's temp-file reference. The
// orchestrator calls this once a run completes, implementing invariant I4.
func (g *Graph) ReleaseArtifacts() {
	released := make(map[*artifact.Artifact]bool)
	for _, e := range g.edges {
		if released[e.Output] {
			continue
		}
		released[e.Output] = true
		e.Output.Release()
	}
}

// String implements a compact human summary, useful in logs.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{nodes=%d edges=%d targets=%d}", len(g.nodes), len(g.edges), len(g.targetNodes))
}
