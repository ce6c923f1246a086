package graph

import (
	"testing"

	"chcore/pkg/chmodel"
)

func abNodes(n int) []chmodel.Node {
	nodes := make([]chmodel.Node, n)
	for i := range nodes {
		nodes[i] = chmodel.Node{ID: chmodel.NodeID(i), Level: chmodel.NoLevel}
	}
	return nodes
}

func edge(src, tgt chmodel.NodeID, dist uint32) chmodel.Edge {
	return chmodel.Edge{Src: src, Tgt: tgt, Dist: dist, ChildEdge1: chmodel.NoEdge, ChildEdge2: chmodel.NoEdge, CenterNode: chmodel.NoNode}
}

func TestInitOffsetsAndNodeEdges(t *testing.T) {
	// A -> B -> C, A -> C
	g := Init(abNodes(3), []chmodel.Edge{
		edge(0, 1, 1),
		edge(1, 2, 2),
		edge(0, 2, 3),
	})

	out := g.NodeEdges(0, chmodel.Out)
	if len(out) != 2 {
		t.Fatalf("NodeEdges(A,Out) len = %d, want 2", len(out))
	}
	for _, id := range out {
		if g.Edge(id).Src != 0 {
			t.Errorf("edge %d has src %d, want 0", id, g.Edge(id).Src)
		}
	}

	in := g.NodeEdges(2, chmodel.In)
	if len(in) != 2 {
		t.Fatalf("NodeEdges(C,In) len = %d, want 2", len(in))
	}

	if g.NrEdges(1, chmodel.Out) != 1 {
		t.Errorf("NrEdges(B,Out) = %d, want 1", g.NrEdges(1, chmodel.Out))
	}
}

func TestUpdatePreservesErasedMembership(t *testing.T) {
	g := Init(abNodes(3), []chmodel.Edge{edge(0, 1, 1), edge(1, 2, 2)})

	g.EraseEdgesIf(func(e *chmodel.Edge) bool { return e.Src == 1 })
	g.Update()

	if g.NumActiveEdges() != 1 {
		t.Fatalf("NumActiveEdges() = %d, want 1 after erase+Update", g.NumActiveEdges())
	}
	if g.NumStoredEdges() != 2 {
		t.Fatalf("NumStoredEdges() = %d, want 2 (erase must not shrink the store)", g.NumStoredEdges())
	}
	if g.NrEdges(1, chmodel.Out) != 0 {
		t.Error("Update must not reinstate an id removed by EraseEdgesIf")
	}
}

func TestResetFullReinstatesEverything(t *testing.T) {
	g := Init(abNodes(3), []chmodel.Edge{edge(0, 1, 1), edge(1, 2, 2)})
	g.EraseEdgesIf(func(e *chmodel.Edge) bool { return true })
	g.Update()
	if g.NumActiveEdges() != 0 {
		t.Fatalf("NumActiveEdges() = %d, want 0", g.NumActiveEdges())
	}

	g.ResetFull()
	if g.NumActiveEdges() != 2 {
		t.Fatalf("NumActiveEdges() = %d, want 2 after ResetFull", g.NumActiveEdges())
	}
}

func TestPushEdgeThenUpdateSorts(t *testing.T) {
	g := Init(abNodes(3), []chmodel.Edge{edge(1, 2, 2)})
	g.PushEdge(edge(0, 1, 1))
	g.Update()

	out := g.NodeEdges(0, chmodel.Out)
	if len(out) != 1 || g.Edge(out[0]).Tgt != 1 {
		t.Fatal("pushed edge should be visible and correctly offset after Update")
	}
}
