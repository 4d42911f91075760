package segregated

import (
	"testing"

	"github.com/LdDl/mapextract/internal/model"
)

func findEdge(g *model.NodeBasedGraph, u, v model.InternalNodeID) *model.NodeBasedEdge {
	for i := range g.Adjacency[u] {
		if g.Adjacency[u][i].Target == v {
			return &g.Adjacency[u][i]
		}
	}
	return nil
}

// S5: two parallel one-way carriageways named "Main St" (node indices
// 0,1,2,6 and 3,4,5,7) joined by two short crossover links at 1->4 and
// 2->5, each endpoint of which has two other incident edges; both
// crossovers should be marked segregated, the long carriageway edges
// should not.
func TestDetectDualCarriageway(t *testing.T) {
	g := model.NewNodeBasedGraph(8)
	g.Annotations = []model.EdgeAnnotation{
		{NameID: 1, ClassMask: 1}, // Main St, motorway
		{NameID: 0, ClassMask: 1}, // unnamed crossover, motorway
	}
	g.AddEdge(0, model.NodeBasedEdge{Target: 1, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(1, model.NodeBasedEdge{Target: 2, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(3, model.NodeBasedEdge{Target: 4, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(4, model.NodeBasedEdge{Target: 5, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(2, model.NodeBasedEdge{Target: 6, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(5, model.NodeBasedEdge{Target: 7, AnnotationID: 0, LengthMeters: 1000})
	g.AddEdge(1, model.NodeBasedEdge{Target: 4, AnnotationID: 1, LengthMeters: 8})
	g.AddEdge(2, model.NodeBasedEdge{Target: 5, AnnotationID: 1, LengthMeters: 8})

	classNames := []string{"motorway", "trunk", "primary", "secondary"}
	Detect(g, classNames)

	if e := findEdge(g, 1, 4); e == nil || !e.Segregated {
		t.Fatal("expected first crossover to be marked segregated")
	}
	if e := findEdge(g, 2, 5); e == nil || !e.Segregated {
		t.Fatal("expected second crossover to be marked segregated")
	}
	if e := findEdge(g, 0, 1); e == nil || e.Segregated {
		t.Fatal("expected long carriageway segment not to be marked segregated")
	}
}

func TestDetectRequiresMinimumNeighborhoodSize(t *testing.T) {
	g := model.NewNodeBasedGraph(2)
	g.Annotations = []model.EdgeAnnotation{{NameID: 0, ClassMask: 1}}
	g.AddEdge(0, model.NodeBasedEdge{Target: 1, AnnotationID: 0, LengthMeters: 5})
	Detect(g, []string{"motorway"})
	if e := findEdge(g, 0, 1); e.Segregated {
		t.Fatal("an edge with no other incident edges must never be segregated")
	}
}
