package scc

import (
	"testing"

	"github.com/LdDl/mapextract/internal/model"
)

func cycleEdges(from, to model.EdgeBasedNodeID) []model.EdgeBasedEdge {
	var edges []model.EdgeBasedEdge
	for i := from; i < to; i++ {
		edges = append(edges, model.EdgeBasedEdge{Source: i, Target: i + 1})
	}
	edges = append(edges, model.EdgeBasedEdge{Source: to, Target: from})
	return edges
}

// S6: 20 edge-based nodes in one strongly connected component, 5 in a
// disjoint one; with small_component_size=10 the first is not tiny and
// the second is.
func TestLabelTwoComponentsSizesAndTiny(t *testing.T) {
	nodes := make([]model.EdgeBasedNode, 25)
	var edges []model.EdgeBasedEdge
	edges = append(edges, cycleEdges(0, 19)...)  // component A: ids 0..19
	edges = append(edges, cycleEdges(20, 24)...) // component B: ids 20..24

	Label(nodes, edges, nil, 10)

	for i := 0; i < 20; i++ {
		if nodes[i].Tiny {
			t.Fatalf("node %d: expected not tiny (component size 20 >= threshold 10)", i)
		}
	}
	for i := 20; i < 25; i++ {
		if !nodes[i].Tiny {
			t.Fatalf("node %d: expected tiny (component size 5 < threshold 10)", i)
		}
	}
	for i := 1; i < 20; i++ {
		if nodes[i].ComponentID != nodes[0].ComponentID {
			t.Fatalf("node %d: expected same component id as node 0 within component A", i)
		}
	}
	for i := 21; i < 25; i++ {
		if nodes[i].ComponentID != nodes[20].ComponentID {
			t.Fatalf("node %d: expected same component id as node 20 within component B", i)
		}
	}
	if nodes[0].ComponentID == nodes[20].ComponentID {
		t.Fatal("expected components A and B to get distinct ids")
	}
	if nodes[0].ComponentID == 0 {
		t.Fatal("expected component ids to be 1-based, never 0")
	}
}

// A node-based edge's forward/reverse EdgeBasedNode pair must land in
// the same component even with zero turn edges between them, since
// C10's graph adds a symmetric edge for every segment pair.
func TestLabelForwardReverseShareComponentViaSegment(t *testing.T) {
	nodes := make([]model.EdgeBasedNode, 4)
	// nodes 0,1 isolated (no turns at all); node 2,3 likewise, but 0<->1
	// and 2<->3 are each other's reverse twin.
	segments := []model.EdgeBasedNodeSegment{
		{ForwardID: 0, ReverseID: 1},
		{ForwardID: 2, ReverseID: 3},
	}
	Label(nodes, nil, segments, 1)

	if nodes[0].ComponentID != nodes[1].ComponentID {
		t.Fatal("expected forward/reverse twins 0,1 to share a component")
	}
	if nodes[2].ComponentID != nodes[3].ComponentID {
		t.Fatal("expected forward/reverse twins 2,3 to share a component")
	}
	if nodes[0].ComponentID == nodes[2].ComponentID {
		t.Fatal("expected the two disjoint segment pairs to land in different components")
	}
}

func TestLabelDefaultThresholdAppliesWhenZero(t *testing.T) {
	nodes := make([]model.EdgeBasedNode, 3)
	edges := cycleEdges(0, 2)
	Label(nodes, edges, nil, 0)
	if !nodes[0].Tiny {
		t.Fatal("a 3-node component should be tiny under the default threshold of 1000")
	}
}
