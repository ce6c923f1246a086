package ch

import (
	"container/heap"
	"log"

	"chcore/pkg/chmodel"
	"chcore/pkg/graph"
)

// maxShortcutsPerNode bounds the shortcuts a single contraction may create.
// A node that would exceed it is left for the next round's lazy re-priority
// pass; if it still exceeds the limit when it is the first candidate of a
// round, contraction stops and it joins the uncontracted core along with everyone
// still in the queue.
const maxShortcutsPerNode = 1000

// pqEntry is a node's contraction priority (lower contracts first).
type pqEntry struct {
	node     chmodel.NodeID
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *priorityQueue) Push(x any) {
	e := x.(*pqEntry)
	e.index = len(*pq)
	*pq = append(*pq, e)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return e
}

// computePriority is the edge-difference heuristic used to order
// contraction: nodes whose removal would add few shortcuts relative to the
// edges it removes contract first.
func computePriority(g *graph.Graph, node chmodel.NodeID) int {
	activeIn := g.NrEdges(node, chmodel.In)
	activeOut := g.NrEdges(node, chmodel.Out)
	return activeIn*activeOut - (activeIn + activeOut)
}

func newPriorityQueue(g *graph.Graph) *priorityQueue {
	n := g.NumNodes()
	pq := make(priorityQueue, n)
	for i := 0; i < n; i++ {
		node := chmodel.NodeID(i)
		pq[i] = &pqEntry{node: node, priority: computePriority(g, node), index: i}
	}
	heap.Init(&pq)
	return &pq
}

// Contract runs Contraction Hierarchies preprocessing to completion,
// round by round: each round selects an independent set of nodes via a
// lazy-updated priority queue, runs batch witness search to find the
// shortcuts their removal requires, and hands both to SCGraph.Restructure.
func Contract(base *graph.Graph) *SCGraph {
	scg := NewSCGraph(base)
	n := scg.NumNodes()
	if n == 0 {
		return scg
	}

	pq := newPriorityQueue(scg.Graph)
	ws := newWitnessState(n)

	var totalShortcuts, totalContracted, round int

	for pq.Len() > 0 {
		batch, shortcuts, stop := selectRound(scg.Graph, pq, ws)
		if stop {
			break
		}
		if len(batch) == 0 {
			continue
		}

		toDelete := make([]bool, n)
		for _, node := range batch {
			toDelete[node] = true
		}
		scg.Restructure(batch, toDelete, shortcuts)

		round++
		totalContracted += len(batch)
		totalShortcuts += len(shortcuts)
		if round%1000 == 0 || pq.Len() == 0 {
			log.Printf("round %d: contracted %d/%d nodes, %d shortcuts so far", round, totalContracted, n, totalShortcuts)
		}
	}

	remaining := finalizeCore(scg, pq)
	log.Printf("contraction complete: %d rounds, %d shortcuts, %d core nodes", round, totalShortcuts, remaining)

	return scg
}

// selectRound pops nodes off pq to build one independent-set contraction
// round: a node is accepted only if its freshly recomputed priority is no
// worse than the round's first accepted node (lazy update) and it shares no
// active edge with any node already accepted this round. stop is true if
// the next candidate would exceed maxShortcutsPerNode and no batch could be
// formed — the caller should treat everything left in pq as the core.
func selectRound(g *graph.Graph, pq *priorityQueue, ws *witnessState) (batch []chmodel.NodeID, shortcuts []chmodel.Edge, stop bool) {
	adjacentToBatch := make(map[chmodel.NodeID]bool)
	excludedThisRound := make(map[chmodel.NodeID]bool)
	isExcluded := func(n chmodel.NodeID) bool {
		return g.Node(n).Contracted() || excludedThisRound[n]
	}

	haveMin := false
	var minPriority int

	for pq.Len() > 0 {
		entry := heap.Pop(pq).(*pqEntry)
		node := entry.node

		if g.Node(node).Contracted() {
			continue
		}
		if adjacentToBatch[node] {
			heap.Push(pq, entry)
			break
		}

		fresh := computePriority(g, node)
		if fresh > entry.priority {
			entry.priority = fresh
			heap.Push(pq, entry)
			continue
		}
		if haveMin && fresh > minPriority {
			heap.Push(pq, entry)
			break
		}

		nodeShortcuts := findShortcuts(ws, g, node, isExcluded)
		if len(nodeShortcuts) > maxShortcutsPerNode {
			heap.Push(pq, entry)
			if len(batch) == 0 {
				stop = true
			}
			break
		}

		batch = append(batch, node)
		excludedThisRound[node] = true
		shortcuts = append(shortcuts, nodeShortcuts...)
		if !haveMin {
			minPriority = fresh
			haveMin = true
		}

		for _, id := range g.NodeEdges(node, chmodel.Out) {
			adjacentToBatch[g.Edge(id).Tgt] = true
		}
		for _, id := range g.NodeEdges(node, chmodel.In) {
			adjacentToBatch[g.Edge(id).Src] = true
		}
	}

	return batch, shortcuts, stop
}

// finalizeCore assigns every node still in the queue the same final level,
// making them the uncontracted core: they get no shortcuts, just a level so
// isUp and the spatial block writer can place them. Returns the core size.
func finalizeCore(scg *SCGraph, pq *priorityQueue) int {
	var remaining []chmodel.NodeID
	for pq.Len() > 0 {
		e := heap.Pop(pq).(*pqEntry)
		if !scg.Node(e.node).Contracted() {
			remaining = append(remaining, e.node)
		}
	}
	if len(remaining) == 0 {
		return 0
	}

	n := scg.NumNodes()
	toDelete := make([]bool, n)
	for _, node := range remaining {
		toDelete[node] = true
	}
	scg.Restructure(remaining, toDelete, nil)
	return len(remaining)
}
