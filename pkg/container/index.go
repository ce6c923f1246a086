package container

import (
	"sort"

	"chcore/pkg/chmodel"
)

// Less orders two edges for a sort index, e.g. chmodel.OutLess or
// chmodel.InLess.
type Less func(a, b *chmodel.Edge) bool

// Index is a permutation of edge ids over a shared Store. It can be
// re-sorted, reset to the full id range, or pruned without ever reordering
// the backing store.
type Index struct {
	store *Store
	ids   []chmodel.EdgeID
}

// NewIndex creates an empty index over store.
func NewIndex(store *Store) *Index {
	return &Index{store: store}
}

// SyncSorted permutes the current set of ids into key order. It does not
// change which ids are present — use ResetSorted to reinstate the full
// [0, store.Len) range first if that's needed.
func (ix *Index) SyncSorted(key Less) {
	sort.Slice(ix.ids, func(i, j int) bool {
		return key(ix.store.Edge(ix.ids[i]), ix.store.Edge(ix.ids[j]))
	})
}

// ResetSorted sets the index to the full [0, store.Len) id range and sorts
// it by key.
func (ix *Index) ResetSorted(key Less) {
	n := ix.store.Len()
	ix.ids = make([]chmodel.EdgeID, n)
	for i := range ix.ids {
		ix.ids[i] = chmodel.EdgeID(i)
	}
	ix.SyncSorted(key)
}

// EraseIf removes every id whose edge matches pred. The underlying edge
// records are untouched; they remain reachable by id through the store.
func (ix *Index) EraseIf(pred func(*chmodel.Edge) bool) {
	kept := ix.ids[:0]
	for _, id := range ix.ids {
		if !pred(ix.store.Edge(id)) {
			kept = append(kept, id)
		}
	}
	ix.ids = kept
}

// Push appends id to the index without re-sorting. The caller is
// responsible for calling SyncSorted (directly or via Graph.Update) before
// relying on sortedness again.
func (ix *Index) Push(id chmodel.EdgeID) {
	ix.ids = append(ix.ids, id)
}

// Len returns the number of ids currently in the index.
func (ix *Index) Len() int {
	return len(ix.ids)
}

// EdgeAt dereferences the edge at position i in the current index order.
func (ix *Index) EdgeAt(i int) *chmodel.Edge {
	return ix.store.Edge(ix.ids[i])
}

// IDAt returns the edge id at position i in the current index order.
func (ix *Index) IDAt(i int) chmodel.EdgeID {
	return ix.ids[i]
}

// Ids returns the index's id slice directly. Callers must not retain it
// across a mutating call (ResetSorted, EraseIf, Push).
func (ix *Index) Ids() []chmodel.EdgeID {
	return ix.ids
}
