// Package container implements the indexed edge container: an append-only
// edge store plus independently-sortable permutation indices over it.
// Dereferencing an index in sorted order never moves the backing array, so
// edge ids handed out by the store stay valid for the lifetime of the
// process, including across in-place content replacement.
package container

import "chcore/pkg/chmodel"

// Store is the append-only backing array of edge records, addressed by
// dense monotone EdgeID.
type Store struct {
	edges []chmodel.Edge
}

// NewStore creates a Store pre-loaded with edges, assigning ids [0, len)
// in slice order. Used at ingest time; subsequent edges are appended via Push.
func NewStore(edges []chmodel.Edge) *Store {
	s := &Store{edges: edges}
	for i := range s.edges {
		s.edges[i].ID = chmodel.EdgeID(i)
	}
	return s
}

// Push appends e to the store, assigning it the next monotone id, and
// returns that id.
func (s *Store) Push(e chmodel.Edge) chmodel.EdgeID {
	id := chmodel.EdgeID(len(s.edges))
	e.ID = id
	s.edges = append(s.edges, e)
	return id
}

// Edge returns a pointer to the edge with the given id. The pointer remains
// valid until the next Push grows the backing array past its capacity, so
// callers must not hold it across a Push.
func (s *Store) Edge(id chmodel.EdgeID) *chmodel.Edge {
	return &s.edges[id]
}

// Len returns the number of edges ever pushed, i.e. the current id space
// [0, Len).
func (s *Store) Len() int {
	return len(s.edges)
}
