// Package ch implements the shortcut-insertion core (SCGraph), the
// round-based contraction driver that feeds it, and the flat export
// projection consumed by the file writers.
package ch

import (
	"sort"

	"chcore/pkg/chmodel"
	"chcore/pkg/cherr"
	"chcore/pkg/graph"
)

// SCGraph is the contraction-round mutator: a base Graph plus the rolling
// next_level counter assigned during Restructure.
type SCGraph struct {
	*graph.Graph
	nextLevel uint32
}

// NewSCGraph wraps a base Graph for contraction. next_level starts at 0.
func NewSCGraph(g *graph.Graph) *SCGraph {
	return &SCGraph{Graph: g}
}

// NextLevel returns the level that will be assigned to the next contracted
// batch of nodes.
func (g *SCGraph) NextLevel() uint32 {
	return g.nextLevel
}

// Restructure applies one contraction round, in the order specified by the
// shortcut-insertion core: level assignment, candidate filtering, dedup,
// replacement, logical removal, append, reindex.
func (g *SCGraph) Restructure(deleted []chmodel.NodeID, toDelete []bool, newShortcuts []chmodel.Edge) {
	// 1. Level assignment: every node contracted this round gets the same
	// level (they form an independent set, so no retained edge connects
	// two of them — see the isUp invariant).
	level := g.nextLevel
	for _, n := range deleted {
		g.NodePtr(n).Level = level
	}
	g.nextLevel++

	// 2. Candidate filtering.
	var valid []chmodel.Edge
	for i := range newShortcuts {
		c := &newShortcuts[i]
		cherr.Assert(!toDelete[c.Src] && !toDelete[c.Tgt],
			"candidate shortcut (%d,%d) has an endpoint in this round's contracted set", c.Src, c.Tgt)
		if !toDelete[c.CenterNode] {
			continue
		}
		valid = append(valid, *c)
	}

	// 3. Candidate deduplication: keep the shortest per (src, tgt).
	bestByEndpoint := make(map[[2]chmodel.NodeID]chmodel.Edge, len(valid))
	for _, c := range valid {
		key := [2]chmodel.NodeID{c.Src, c.Tgt}
		if cur, ok := bestByEndpoint[key]; !ok || c.Dist < cur.Dist {
			bestByEndpoint[key] = c
		}
	}

	// 4. Replacement of existing shortcuts. Anything not handled here
	// (not discarded, not replaced-in-place) proceeds to step 6 as a fresh
	// append.
	var toAppend []chmodel.Edge
	for _, c := range bestByEndpoint {
		handled := g.replaceIfShorter(c)
		if !handled {
			toAppend = append(toAppend, c)
		}
	}

	// 5. Logical removal of edges touching contracted nodes from both
	// sort indices. Edge records are retained by id for export.
	g.EraseEdgesIf(func(e *chmodel.Edge) bool {
		return toDelete[e.Src] || toDelete[e.Tgt]
	})

	// 6. Append surviving new shortcuts with fresh ids.
	for _, c := range toAppend {
		g.PushEdge(c)
	}

	// 7. Reindex: re-sort both indices over their current id set and
	// recompute both offset arrays.
	g.Update()
}

// replaceIfShorter implements step 4 for a single candidate: locate the
// existing edge(s) sharing c's endpoints in the (still previous-round-sorted)
// outgoing index, and either discard c, replace an existing shortcut in
// place, or leave it for a fresh append. Returns true iff c was consumed
// (replaced in place, or discarded because nothing shorter could be
// installed).
func (g *SCGraph) replaceIfShorter(c chmodel.Edge) bool {
	ids := g.outRangeForEndpoints(c.Src, c.Tgt)
	if len(ids) == 0 {
		return false // nothing to replace against; falls through to append
	}

	cherr.Assert(len(ids) <= 2,
		"more than one original plus one shortcut share endpoints (%d,%d)", c.Src, c.Tgt)

	for _, id := range ids {
		existing := g.Edge(id)
		if existing.Dist <= c.Dist {
			return true // discard c: nothing shorter to install
		}
	}

	for _, id := range ids {
		existing := g.Edge(id)
		if existing.IsShortcut() {
			// Replace in place: id is preserved, content becomes c's.
			replacement := c
			replacement.ID = existing.ID
			*existing = replacement
			return true
		}
	}

	// Only a strictly-longer original is present. Originals are never
	// replaced, so c is not consumed here — it proceeds to step 6 and is
	// appended as a separate shortcut, coexisting with the original.
	return false
}

// outRangeForEndpoints returns the (at most two) ids in the outgoing index
// that currently have exactly (src, tgt) as their endpoints. The outgoing
// index is sorted by (src, tgt) at the start of a round (the previous
// round's step 7 left it that way), so this is a binary search.
func (g *SCGraph) outRangeForEndpoints(src, tgt chmodel.NodeID) []chmodel.EdgeID {
	ids := g.NodeEdges(src, chmodel.Out)
	lo := sort.Search(len(ids), func(i int) bool {
		return g.Edge(ids[i]).Tgt >= tgt
	})
	hi := sort.Search(len(ids), func(i int) bool {
		return g.Edge(ids[i]).Tgt > tgt
	})
	return ids[lo:hi]
}

// RebuildCompleteGraph discards the shrunken indices and reinstalls the
// full [0, |E|) index on both sides, then reindexes. Called after
// contraction finishes, to restore a view of every edge ever seen
// (originals plus all accepted shortcuts) for export.
func (g *SCGraph) RebuildCompleteGraph() {
	g.ResetFull()
}

// IsUp returns true iff traversing edge in the given direction moves to a
// strictly higher-level node. Equal levels is a malformed-graph assertion
// failure: per the design note, this path is documented as unreachable and
// rejected explicitly rather than silently defaulted.
func IsUp(g *graph.Graph, e *chmodel.Edge, dir chmodel.Direction) bool {
	s := g.Node(e.Src).Level
	t := g.Node(e.Tgt).Level
	switch {
	case s < t:
		return dir == chmodel.Out
	case s > t:
		return dir == chmodel.In
	default:
		cherr.Assert(false, "isUp: edge (%d,%d) has equal endpoint levels %d", e.Src, e.Tgt, s)
		panic("unreachable")
	}
}

// ExportData is the flat (nodes, node_levels, edges) triple produced by the
// export projection, keyed by id, ready for a file writer.
type ExportData struct {
	Nodes      []chmodel.Node
	NodeLevels []uint32
	Edges      []chmodel.Edge
}

// Export flattens the working graph into ExportData. Edges are copied from
// the store by id, so the result holds every edge record ever stored
// (originals plus all accepted shortcuts), whether or not it is still in
// the active indices.
func Export(g *graph.Graph) ExportData {
	nodes := g.Nodes()
	levels := make([]uint32, len(nodes))
	for i, n := range nodes {
		levels[i] = n.Level
	}

	n := g.NumStoredEdges()
	edges := make([]chmodel.Edge, n)
	for id := 0; id < n; id++ {
		edges[id] = *g.Edge(chmodel.EdgeID(id))
	}

	return ExportData{Nodes: nodes, NodeLevels: levels, Edges: edges}
}
