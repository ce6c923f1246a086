package graph

import (
	"testing"

	"chcore/pkg/chmodel"
)

func TestLargestComponentPicksBiggestIsland(t *testing.T) {
	// Component 1: 0<->1<->2 (3 nodes). Component 2: 3<->4 (2 nodes).
	g := Init(abNodes(5), []chmodel.Edge{
		edge(0, 1, 1), edge(1, 0, 1),
		edge(1, 2, 1), edge(2, 1, 1),
		edge(3, 4, 1), edge(4, 3, 1),
	})

	largest := LargestComponent(g)
	if len(largest) != 3 {
		t.Fatalf("len(largest) = %d, want 3", len(largest))
	}

	seen := make(map[chmodel.NodeID]bool)
	for _, n := range largest {
		seen[n] = true
	}
	for _, want := range []chmodel.NodeID{0, 1, 2} {
		if !seen[want] {
			t.Errorf("largest component missing node %d", want)
		}
	}
}

func TestFilterToComponentRemapsDensely(t *testing.T) {
	g := Init(abNodes(4), []chmodel.Edge{
		edge(1, 2, 5),
		edge(2, 1, 5),
		edge(0, 3, 9), // dropped: not in kept set
	})

	kept := []chmodel.NodeID{1, 2}
	filtered := FilterToComponent(g, kept)

	if filtered.NumNodes() != 2 {
		t.Fatalf("NumNodes() = %d, want 2", filtered.NumNodes())
	}
	if filtered.NumActiveEdges() != 2 {
		t.Fatalf("NumActiveEdges() = %d, want 2 (edge touching a dropped node must be excluded)", filtered.NumActiveEdges())
	}
	for i := 0; i < filtered.NumNodes(); i++ {
		if filtered.Node(chmodel.NodeID(i)).ID != chmodel.NodeID(i) {
			t.Errorf("remapped node %d has ID %d, want dense id matching position", i, filtered.Node(chmodel.NodeID(i)).ID)
		}
	}
}
