package buildgraph

import "gonum.org/v1/gonum/graph"

// gonumNode is the minimal graph.Node adapter over a NodeID.
type gonumNode int64

func (n gonumNode) ID() int64 { return int64(n) }

// nodeIter is a minimal graph.Nodes iterator over a fixed slice of IDs.
type nodeIter struct {
	ids []int64
	idx int
}

func newNodeIter(ids []int64) *nodeIter { return &nodeIter{ids: ids, idx: -1} }

func (it *nodeIter) Next() bool {
	if it.idx+1 >= len(it.ids) {
		return false
	}
	it.idx++
	return true
}

func (it *nodeIter) Node() graph.Node { return gonumNode(it.ids[it.idx]) }

func (it *nodeIter) Reset() { it.idx = -1 }

func (it *nodeIter) Len() int {
	if it.idx+1 >= len(it.ids) {
		return 0
	}
	return len(it.ids) - (it.idx + 1)
}

// simpleEdge is the minimal graph.Edge adapter used by directedView.Edge.
type simpleEdge struct{ from, to graph.Node }

func (e simpleEdge) From() graph.Node         { return e.from }
func (e simpleEdge) To() graph.Node           { return e.to }
func (e simpleEdge) ReversedEdge() graph.Edge { return simpleEdge{from: e.to, to: e.from} }

// directedView exposes a Graph as a gonum graph.Directed without requiring
// Graph itself to implement the interface (Graph already has its own Node
// method with a different signature). This lets the acyclicity guard below
// reuse gonum's graph algorithms unmodified.
type directedView struct{ g *Graph }

func (v directedView) Node(id int64) graph.Node {
	if v.g.Node(NodeID(id)) == nil {
		return nil
	}
	return gonumNode(id)
}

func (v directedView) Nodes() graph.Nodes {
	ids := make([]int64, len(v.g.nodes))
	for i, n := range v.g.nodes {
		ids[i] = int64(n.ID)
	}
	return newNodeIter(ids)
}

func (v directedView) From(id int64) graph.Nodes {
	edges := v.g.OutEdges(NodeID(id))
	seen := make(map[int64]bool, len(edges))
	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		to := int64(e.To)
		if !seen[to] {
			seen[to] = true
			ids = append(ids, to)
		}
	}
	return newNodeIter(ids)
}

func (v directedView) To(id int64) graph.Nodes {
	edges := v.g.InEdges(NodeID(id))
	seen := make(map[int64]bool, len(edges))
	ids := make([]int64, 0, len(edges))
	for _, e := range edges {
		from := int64(e.From)
		if !seen[from] {
			seen[from] = true
			ids = append(ids, from)
		}
	}
	return newNodeIter(ids)
}

func (v directedView) HasEdgeFromTo(uid, vid int64) bool {
	for _, e := range v.g.OutEdges(NodeID(uid)) {
		if int64(e.To) == vid {
			return true
		}
	}
	return false
}

func (v directedView) HasEdgeBetween(xid, yid int64) bool {
	return v.HasEdgeFromTo(xid, yid) || v.HasEdgeFromTo(yid, xid)
}

func (v directedView) Edge(uid, vid int64) graph.Edge {
	if !v.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simpleEdge{from: gonumNode(uid), to: gonumNode(vid)}
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
type tarjanSCC struct {
	g       graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

func newTarjanSCC(g graph.Directed) *tarjanSCC {
	return &tarjanSCC{
		g:       g,
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
	}
}

func (t *tarjanSCC) findSCCs() [][]int64 {
	nodes := t.g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

func (t *tarjanSCC) strongConnect(nodeID int64) {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	successors := t.g.From(nodeID)
	for successors.Next() {
		successorID := successors.Node().ID()

		if _, visited := t.indices[successorID]; !visited {
			t.strongConnect(successorID)
			t.lowLink[nodeID] = min64(t.lowLink[nodeID], t.lowLink[successorID])
		} else if t.onStack[successorID] {
			t.lowLink[nodeID] = min64(t.lowLink[nodeID], t.indices[successorID])
		}
	}

	if t.lowLink[nodeID] == t.indices[nodeID] {
		var scc []int64
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == nodeID {
				break
			}
		}
		if len(scc) > 1 {
			t.sccs = append(t.sccs, scc)
		}
	}
}

func min64(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// DetectCycles runs an O(V+E) acyclicity check over the graph and returns
// one slice of NodeIDs per non-trivial strongly connected component found.
// An empty result means the graph is acyclic. This is a defensive check,
// since the engine otherwise assumes (and never repairs) an acyclic graph.
func (g *Graph) DetectCycles() [][]NodeID {
	finder := newTarjanSCC(directedView{g: g})
	raw := finder.findSCCs()
	if len(raw) == 0 {
		return nil
	}
	out := make([][]NodeID, len(raw))
	for i, scc := range raw {
		ids := make([]NodeID, len(scc))
		for j, id := range scc {
			ids[j] = NodeID(id)
		}
		out[i] = ids
	}
	return out
}
