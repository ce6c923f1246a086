package ch

import (
	"chcore/pkg/chmodel"
	"chcore/pkg/graph"
)

const (
	maxSettled = 500 // max nodes settled during one witness search
	maxHops    = 5    // max hops from source
)

const maxUint32 = ^uint32(0)

// witnessHeapItem is an entry in the witness search min-heap.
type witnessHeapItem struct {
	node chmodel.NodeID
	dist uint32
	hops int
}

// witnessHeap is a concrete-typed binary min-heap for witness search.
type witnessHeap struct {
	items []witnessHeapItem
}

func (h *witnessHeap) Len() int { return len(h.items) }

func (h *witnessHeap) Push(node chmodel.NodeID, dist uint32, hops int) {
	h.items = append(h.items, witnessHeapItem{node, dist, hops})
	h.siftUp(len(h.items) - 1)
}

func (h *witnessHeap) Pop() witnessHeapItem {
	top := h.items[0]
	n := len(h.items) - 1
	h.items[0] = h.items[n]
	h.items = h.items[:n]
	if n > 0 {
		h.siftDown(0)
	}
	return top
}

func (h *witnessHeap) siftUp(i int) {
	item := h.items[i]
	for i > 0 {
		parent := (i - 1) / 2
		if item.dist >= h.items[parent].dist {
			break
		}
		h.items[i] = h.items[parent]
		i = parent
	}
	h.items[i] = item
}

func (h *witnessHeap) siftDown(i int) {
	n := len(h.items)
	item := h.items[i]
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if right := child + 1; right < n && h.items[right].dist < h.items[child].dist {
			child = right
		}
		if item.dist <= h.items[child].dist {
			break
		}
		h.items[i] = h.items[child]
		i = child
	}
	h.items[i] = item
}

func (h *witnessHeap) Reset() {
	h.items = h.items[:0]
}

// witnessState holds reusable state for batch witness searches, avoiding
// per-call allocation via a touched-list reset pattern.
type witnessState struct {
	dist    []uint32
	touched []chmodel.NodeID
	heap    witnessHeap
}

func newWitnessState(numNodes int) *witnessState {
	dist := make([]uint32, numNodes)
	for i := range dist {
		dist[i] = maxUint32
	}
	return &witnessState{
		dist: dist,
		heap: witnessHeap{items: make([]witnessHeapItem, 0, 256)},
	}
}

func (ws *witnessState) reset() {
	for _, n := range ws.touched {
		ws.dist[n] = maxUint32
	}
	ws.touched = ws.touched[:0]
	ws.heap.Reset()
}

// batchWitnessSearch runs a single Dijkstra from source, skipping excluded
// nodes and the contracted node itself, up to maxWeight and maxHops. The
// caller checks ws.dist[target] afterwards for each outgoing candidate.
//
// This replaces a per-(in,out)-pair witness search with one search per
// incoming neighbor: O(|in|) searches instead of O(|in|*|out|).
func batchWitnessSearch(ws *witnessState, g *graph.Graph, source, excluded chmodel.NodeID, maxWeight uint32, isExcluded func(chmodel.NodeID) bool) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.heap.Push(source, 0, 0)

	settled := 0

	for ws.heap.Len() > 0 {
		cur := ws.heap.Pop()

		if cur.dist > ws.dist[cur.node] {
			continue // stale entry
		}

		settled++
		if settled >= maxSettled {
			break
		}
		if cur.dist > maxWeight || cur.hops >= maxHops {
			continue
		}

		for _, id := range g.NodeEdges(cur.node, chmodel.Out) {
			e := g.Edge(id)
			if e.Tgt == excluded || isExcluded(e.Tgt) {
				continue
			}

			newDist := cur.dist + e.Dist
			if newDist > maxWeight {
				continue
			}

			if newDist < ws.dist[e.Tgt] {
				if ws.dist[e.Tgt] == maxUint32 {
					ws.touched = append(ws.touched, e.Tgt)
				}
				ws.dist[e.Tgt] = newDist
				ws.heap.Push(e.Tgt, newDist, cur.hops+1)
			}
		}
	}
}

// findShortcuts determines which shortcut candidates are needed when
// contracting node, given the graph's currently active edges. isExcluded
// additionally treats nodes chosen earlier in the same round as removed,
// even though their own Restructure call hasn't run yet.
func findShortcuts(ws *witnessState, g *graph.Graph, node chmodel.NodeID, isExcluded func(chmodel.NodeID) bool) []chmodel.Edge {
	var incoming, outgoing []*chmodel.Edge

	for _, id := range g.NodeEdges(node, chmodel.In) {
		e := g.Edge(id)
		if !isExcluded(e.Src) {
			incoming = append(incoming, e)
		}
	}
	for _, id := range g.NodeEdges(node, chmodel.Out) {
		e := g.Edge(id)
		if !isExcluded(e.Tgt) {
			outgoing = append(outgoing, e)
		}
	}

	if len(incoming) == 0 || len(outgoing) == 0 {
		return nil
	}

	var shortcuts []chmodel.Edge

	for _, in := range incoming {
		var maxOut uint32
		for _, out := range outgoing {
			if out.Tgt != in.Src && out.Dist > maxOut {
				maxOut = out.Dist
			}
		}
		if maxOut == 0 {
			continue // every outgoing edge loops back to in.Src
		}

		maxWeight := in.Dist + maxOut
		batchWitnessSearch(ws, g, in.Src, node, maxWeight, isExcluded)

		for _, out := range outgoing {
			if out.Tgt == in.Src {
				continue
			}
			scDist := in.Dist + out.Dist
			if ws.dist[out.Tgt] > scDist {
				shortcuts = append(shortcuts, chmodel.Edge{
					Src:        in.Src,
					Tgt:        out.Tgt,
					Dist:       scDist,
					ChildEdge1: in.ID,
					ChildEdge2: out.ID,
					CenterNode: node,
				})
			}
		}
	}

	return shortcuts
}
