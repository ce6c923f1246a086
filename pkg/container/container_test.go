package container

import (
	"testing"

	"chcore/pkg/chmodel"
)

func edges(pairs ...[2]chmodel.NodeID) []chmodel.Edge {
	out := make([]chmodel.Edge, len(pairs))
	for i, p := range pairs {
		out[i] = chmodel.Edge{Src: p[0], Tgt: p[1]}
	}
	return out
}

func TestStoreAssignsSequentialIds(t *testing.T) {
	s := NewStore(edges([2]chmodel.NodeID{1, 2}, [2]chmodel.NodeID{3, 4}))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.Edge(0).ID != 0 || s.Edge(1).ID != 1 {
		t.Fatal("NewStore must assign ids in slice order")
	}

	id := s.Push(chmodel.Edge{Src: 5, Tgt: 6})
	if id != 2 || s.Len() != 3 {
		t.Fatalf("Push id = %d, len = %d, want 2, 3", id, s.Len())
	}
}

func TestIndexResetSortedSortsByKey(t *testing.T) {
	s := NewStore(edges(
		[2]chmodel.NodeID{2, 0},
		[2]chmodel.NodeID{1, 5},
		[2]chmodel.NodeID{1, 2},
	))
	ix := NewIndex(s)
	ix.ResetSorted(chmodel.OutLess)

	if ix.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ix.Len())
	}
	for i := 0; i+1 < ix.Len(); i++ {
		if !chmodel.OutLess(ix.EdgeAt(i), ix.EdgeAt(i+1)) {
			t.Errorf("index not sorted at position %d", i)
		}
	}
}

func TestIndexSyncSortedKeepsMembership(t *testing.T) {
	s := NewStore(edges([2]chmodel.NodeID{3, 1}, [2]chmodel.NodeID{1, 2}))
	ix := NewIndex(s)
	ix.ResetSorted(chmodel.OutLess)

	ix.EraseIf(func(e *chmodel.Edge) bool { return e.Src == 1 })
	if ix.Len() != 1 {
		t.Fatalf("after EraseIf, Len() = %d, want 1", ix.Len())
	}

	ix.SyncSorted(chmodel.OutLess)
	if ix.Len() != 1 || ix.EdgeAt(0).Src != 3 {
		t.Fatal("SyncSorted must not reinstate ids removed by EraseIf")
	}
}

func TestIndexResetSortedReinstatesFullRange(t *testing.T) {
	s := NewStore(edges([2]chmodel.NodeID{3, 1}, [2]chmodel.NodeID{1, 2}))
	ix := NewIndex(s)
	ix.ResetSorted(chmodel.OutLess)
	ix.EraseIf(func(e *chmodel.Edge) bool { return true })
	if ix.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after erasing everything", ix.Len())
	}

	ix.ResetSorted(chmodel.OutLess)
	if ix.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 after ResetSorted", ix.Len())
	}
}

func TestIndexPushDoesNotAutoSort(t *testing.T) {
	s := NewStore(edges([2]chmodel.NodeID{5, 1}))
	ix := NewIndex(s)
	ix.ResetSorted(chmodel.OutLess)

	id := s.Push(chmodel.Edge{Src: 0, Tgt: 9})
	ix.Push(id)

	if ix.EdgeAt(ix.Len() - 1).Src != 0 {
		t.Fatal("Push appends at the end without sorting")
	}
	ix.SyncSorted(chmodel.OutLess)
	if ix.EdgeAt(0).Src != 0 {
		t.Fatal("after SyncSorted, the pushed low-key edge should sort first")
	}
}

func TestEditingThroughStorePointerIsVisibleViaIndex(t *testing.T) {
	s := NewStore(edges([2]chmodel.NodeID{1, 2}))
	ix := NewIndex(s)
	ix.ResetSorted(chmodel.OutLess)

	s.Edge(0).Dist = 42
	if ix.EdgeAt(0).Dist != 42 {
		t.Fatal("Index must dereference the same backing store, not a copy")
	}
}
