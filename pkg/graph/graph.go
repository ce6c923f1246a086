// Package graph implements the CSR base view over the indexed edge
// container: offsets.out/offsets.in plus the two sorted indices, answering
// "edges of node N in direction D" in O(1).
package graph

import (
	"chcore/pkg/chmodel"
	"chcore/pkg/container"
)

// Graph combines a node table with an indexed edge container and the two
// CSR offset arrays derived from it.
type Graph struct {
	nodes []chmodel.Node
	store *container.Store
	out   *container.Index
	in    *container.Index

	outOffsets []uint32 // len NumNodes()+1
	inOffsets  []uint32
}

// Init builds a Graph from scratch: takes ownership of nodes and edges,
// builds both sorted indices over the full edge range, and computes both
// offset arrays. Runs in O(|E| log |E|).
func Init(nodes []chmodel.Node, edges []chmodel.Edge) *Graph {
	g := &Graph{nodes: nodes}
	g.store = container.NewStore(edges)
	g.out = container.NewIndex(g.store)
	g.in = container.NewIndex(g.store)
	g.out.ResetSorted(chmodel.OutLess)
	g.in.ResetSorted(chmodel.InLess)
	g.computeOffsets()
	return g
}

// Update re-sorts both indices in their current id range (without
// reinstating entries removed by EraseIf) and recomputes both offset
// arrays. Called after any bulk mutation of the indices. Runs in
// O(|E| log |E|).
func (g *Graph) Update() {
	g.out.SyncSorted(chmodel.OutLess)
	g.in.SyncSorted(chmodel.InLess)
	g.computeOffsets()
}

// computeOffsets derives offsets[d][n] by counting entries per endpoint and
// prefix-summing, then relies on g.out/g.in already being sorted by the
// matching key for the CSR contract (node_edges returns a contiguous range)
// to hold.
func (g *Graph) computeOffsets() {
	n := uint32(len(g.nodes))

	outCounts := make([]uint32, n+1)
	for i := 0; i < g.out.Len(); i++ {
		outCounts[g.out.EdgeAt(i).Src+1]++
	}
	for i := uint32(1); i <= n; i++ {
		outCounts[i] += outCounts[i-1]
	}
	g.outOffsets = outCounts

	inCounts := make([]uint32, n+1)
	for i := 0; i < g.in.Len(); i++ {
		inCounts[g.in.EdgeAt(i).Tgt+1]++
	}
	for i := uint32(1); i <= n; i++ {
		inCounts[i] += inCounts[i-1]
	}
	g.inOffsets = inCounts
}

// NodeEdges returns the edges incident to n in the given direction, in
// current sort order. O(1) beyond the slice bounds lookup.
func (g *Graph) NodeEdges(n chmodel.NodeID, dir chmodel.Direction) []chmodel.EdgeID {
	if dir == chmodel.Out {
		return g.out.Ids()[g.outOffsets[n]:g.outOffsets[n+1]]
	}
	return g.in.Ids()[g.inOffsets[n]:g.inOffsets[n+1]]
}

// NrEdges returns the number of edges incident to n in direction dir.
func (g *Graph) NrEdges(n chmodel.NodeID, dir chmodel.Direction) int {
	if dir == chmodel.Out {
		return int(g.outOffsets[n+1] - g.outOffsets[n])
	}
	return int(g.inOffsets[n+1] - g.inOffsets[n])
}

// Node returns a copy of node n's record.
func (g *Graph) Node(n chmodel.NodeID) chmodel.Node {
	return g.nodes[n]
}

// NodePtr returns a mutable pointer to node n's record, e.g. to set its level.
func (g *Graph) NodePtr(n chmodel.NodeID) *chmodel.Node {
	return &g.nodes[n]
}

// Edge returns a mutable pointer to the edge with the given id.
func (g *Graph) Edge(id chmodel.EdgeID) *chmodel.Edge {
	return g.store.Edge(id)
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumStoredEdges returns the size of the edge id space, |store|. This
// includes edges logically removed from the active indices but still
// retained by id (see the lifecycle rules in the data model).
func (g *Graph) NumStoredEdges() int {
	return g.store.Len()
}

// NumActiveEdges returns the number of edges currently present in the
// outgoing index (equivalently, the incoming index — both hold the same id
// set at all times, differing only in order).
func (g *Graph) NumActiveEdges() int {
	return g.out.Len()
}

// PushEdge appends a new edge to the store with a fresh id and adds that id
// to both indices, without resorting. Callers must follow with Update
// before relying on sortedness or offsets.
func (g *Graph) PushEdge(e chmodel.Edge) chmodel.EdgeID {
	id := g.store.Push(e)
	g.out.Push(id)
	g.in.Push(id)
	return id
}

// EraseEdgesIf removes entries matching pred from both sort indices. The
// underlying edge records remain retrievable by id via Edge.
func (g *Graph) EraseEdgesIf(pred func(*chmodel.Edge) bool) {
	g.out.EraseIf(pred)
	g.in.EraseIf(pred)
}

// ResetFull reinstates the full [0, |store|) id range on both indices and
// re-sorts — the operation behind RebuildCompleteGraph.
func (g *Graph) ResetFull() {
	g.out.ResetSorted(chmodel.OutLess)
	g.in.ResetSorted(chmodel.InLess)
	g.computeOffsets()
}

// Nodes returns the node table directly; callers must not retain it past
// structural changes to the graph (none occur to the node slice itself
// after Init — only Level fields are mutated in place).
func (g *Graph) Nodes() []chmodel.Node {
	return g.nodes
}
