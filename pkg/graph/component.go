package graph

import "chcore/pkg/chmodel"

// UnionFind implements a disjoint-set data structure with path halving and
// union by rank, used to find the largest weakly connected component of the
// ingested graph before contraction.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient — max rank ~30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already the same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the node ids belonging to the largest weakly
// connected component, treating the directed graph as undirected. Nodes
// unreachable by any edge in either direction are singleton components and
// will not be selected unless the whole graph is empty of edges.
func LargestComponent(g *Graph) []chmodel.NodeID {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(uint32(n))
	for u := 0; u < n; u++ {
		for _, id := range g.NodeEdges(chmodel.NodeID(u), chmodel.Out) {
			e := g.Edge(id)
			uf.Union(uint32(u), uint32(e.Tgt))
		}
	}

	bestRoot, bestSize := uint32(0), uint32(0)
	for i := 0; i < n; i++ {
		root := uf.Find(uint32(i))
		if uf.size[root] > bestSize {
			bestRoot, bestSize = root, uf.size[root]
		}
	}

	nodes := make([]chmodel.NodeID, 0, bestSize)
	for i := 0; i < n; i++ {
		if uf.Find(uint32(i)) == bestRoot {
			nodes = append(nodes, chmodel.NodeID(i))
		}
	}
	return nodes
}

// FilterToComponent builds a fresh graph containing only the given nodes
// and the edges whose endpoints both survive, with node ids remapped to a
// dense [0, len(nodes)) range. Used as an ingest-time cleanup step before
// contraction: disconnected islands otherwise break witness search and
// bloat the uncontracted core.
func FilterToComponent(g *Graph, nodes []chmodel.NodeID) *Graph {
	if len(nodes) == 0 {
		return Init(nil, nil)
	}

	oldToNew := make(map[chmodel.NodeID]chmodel.NodeID, len(nodes))
	newNodes := make([]chmodel.Node, len(nodes))
	for newIdx, oldIdx := range nodes {
		oldToNew[oldIdx] = chmodel.NodeID(newIdx)
		rec := g.Node(oldIdx)
		rec.ID = chmodel.NodeID(newIdx)
		newNodes[newIdx] = rec
	}

	var newEdges []chmodel.Edge
	for _, oldU := range nodes {
		for _, id := range g.NodeEdges(oldU, chmodel.Out) {
			e := g.Edge(id)
			if newV, ok := oldToNew[e.Tgt]; ok {
				newEdges = append(newEdges, chmodel.Edge{
					Src:        oldToNew[oldU],
					Tgt:        newV,
					Dist:       e.Dist,
					RoadType:   e.RoadType,
					Speed:      e.Speed,
					ChildEdge1: chmodel.NoEdge,
					ChildEdge2: chmodel.NoEdge,
					CenterNode: chmodel.NoNode,
				})
			}
		}
	}

	return Init(newNodes, newEdges)
}
