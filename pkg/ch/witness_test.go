package ch

import (
	"testing"

	"chcore/pkg/chmodel"
	"chcore/pkg/graph"
)

func noneExcluded(chmodel.NodeID) bool { return false }

func TestFindShortcutsAddsWhenNoWitness(t *testing.T) {
	const a, b, c = 0, 1, 2
	g := graph.Init([]chmodel.Node{node(a), node(b), node(c)}, []chmodel.Edge{
		plainEdge(a, b, 1),
		plainEdge(b, c, 1),
	})
	ws := newWitnessState(3)

	shortcuts := findShortcuts(ws, g, b, noneExcluded)
	if len(shortcuts) != 1 {
		t.Fatalf("len(shortcuts) = %d, want 1", len(shortcuts))
	}
	sc := shortcuts[0]
	if sc.Src != a || sc.Tgt != c || sc.Dist != 2 || sc.CenterNode != b {
		t.Errorf("shortcut = %+v, want A->C dist 2 center B", sc)
	}
}

func TestFindShortcutsSkipsWhenWitnessExists(t *testing.T) {
	const a, b, c = 0, 1, 2
	g := graph.Init([]chmodel.Node{node(a), node(b), node(c)}, []chmodel.Edge{
		plainEdge(a, b, 1),
		plainEdge(b, c, 1),
		plainEdge(a, c, 1), // direct witness, shorter than the 2-hop path through b
	})
	ws := newWitnessState(3)

	shortcuts := findShortcuts(ws, g, b, noneExcluded)
	if len(shortcuts) != 0 {
		t.Fatalf("len(shortcuts) = %d, want 0 (a cheaper witness path exists)", len(shortcuts))
	}
}

func TestFindShortcutsNoneWhenNoIncomingOrOutgoing(t *testing.T) {
	const a, b = 0, 1
	g := graph.Init([]chmodel.Node{node(a), node(b)}, []chmodel.Edge{plainEdge(a, b, 1)})
	ws := newWitnessState(2)

	if got := findShortcuts(ws, g, a, noneExcluded); got != nil {
		t.Errorf("contracting a node with no incoming edges should need no shortcuts, got %v", got)
	}
}

func TestFindShortcutsRespectsExcluded(t *testing.T) {
	const a, b, c = 0, 1, 2
	g := graph.Init([]chmodel.Node{node(a), node(b), node(c)}, []chmodel.Edge{
		plainEdge(a, b, 1),
		plainEdge(b, c, 1),
	})
	ws := newWitnessState(3)

	isExcluded := func(n chmodel.NodeID) bool { return n == a }
	if got := findShortcuts(ws, g, b, isExcluded); got != nil {
		t.Errorf("an excluded incoming neighbor should not produce a shortcut, got %v", got)
	}
}
