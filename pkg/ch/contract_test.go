package ch

import (
	"testing"

	"chcore/pkg/chmodel"
	"chcore/pkg/graph"
)

func TestContractEmptyGraph(t *testing.T) {
	g := graph.Init(nil, nil)
	scg := Contract(g)
	if scg.NumNodes() != 0 {
		t.Fatalf("NumNodes() = %d, want 0", scg.NumNodes())
	}
}

func TestContractAssignsEveryNodeALevel(t *testing.T) {
	// A chain of five nodes: 0-1-2-3-4, bidirectional.
	const n = 5
	nodes := make([]chmodel.Node, n)
	for i := range nodes {
		nodes[i] = chmodel.Node{ID: chmodel.NodeID(i), Level: chmodel.NoLevel}
	}
	var edges []chmodel.Edge
	for i := 0; i < n-1; i++ {
		edges = append(edges, plainEdge(chmodel.NodeID(i), chmodel.NodeID(i+1), 1))
		edges = append(edges, plainEdge(chmodel.NodeID(i+1), chmodel.NodeID(i), 1))
	}

	scg := Contract(graph.Init(nodes, edges))

	for i := 0; i < n; i++ {
		if !scg.Node(chmodel.NodeID(i)).Contracted() {
			t.Errorf("node %d was never contracted", i)
		}
	}
}

func TestContractThenExportRoundTripsNodeCount(t *testing.T) {
	const n = 6
	nodes := make([]chmodel.Node, n)
	for i := range nodes {
		nodes[i] = chmodel.Node{ID: chmodel.NodeID(i), Level: chmodel.NoLevel}
	}
	var edges []chmodel.Edge
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		edges = append(edges, plainEdge(chmodel.NodeID(i), chmodel.NodeID(j), 1))
		edges = append(edges, plainEdge(chmodel.NodeID(j), chmodel.NodeID(i), 1))
	}

	scg := Contract(graph.Init(nodes, edges))
	scg.RebuildCompleteGraph()
	data := Export(scg.Graph)

	if len(data.Nodes) != n {
		t.Fatalf("len(data.Nodes) = %d, want %d", len(data.Nodes), n)
	}
	if len(data.Edges) < len(edges) {
		t.Fatalf("len(data.Edges) = %d, want at least %d original edges retained", len(data.Edges), len(edges))
	}
}
