package edgegraph

import (
	"testing"

	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/profile"
)

func allowAllAdapter() profile.Adapter {
	return profile.NewStaticAdapter()
}

// buildCross constructs a four-leg crossing at node 2 (internal id 1),
// the S3 scenario generalized so each leg is its own way id — as real
// OSM restriction-bearing junctions are, since a from-way that merely
// threads straight through the via node can't be disambiguated from its
// own reverse direction. Coordinates place legs due west/east/south/north
// of the junction so turn angles are well-defined.
func buildCross() *model.NodeBasedGraph {
	g := model.NewNodeBasedGraph(5)
	// node order: 0=west leg, 1=junction, 2=east leg, 3=south leg, 4=north leg
	g.Coords[0] = model.FromDegrees(-0.001, 0)
	g.Coords[1] = model.FromDegrees(0, 0)
	g.Coords[2] = model.FromDegrees(0.001, 0)
	g.Coords[3] = model.FromDegrees(0, -0.001)
	g.Coords[4] = model.FromDegrees(0, 0.001)

	ann := g.InternAnnotation(model.EdgeAnnotation{ClassMask: 1})

	g.AddEdge(0, model.NodeBasedEdge{Target: 1, AnnotationID: ann, Weight: 1, SourceWayID: 1})
	g.AddEdge(1, model.NodeBasedEdge{Target: 0, AnnotationID: ann, Weight: 1, SourceWayID: 1})

	g.AddEdge(2, model.NodeBasedEdge{Target: 1, AnnotationID: ann, Weight: 1, SourceWayID: 2})
	g.AddEdge(1, model.NodeBasedEdge{Target: 2, AnnotationID: ann, Weight: 1, SourceWayID: 2})

	g.AddEdge(3, model.NodeBasedEdge{Target: 1, AnnotationID: ann, Weight: 1, SourceWayID: 3})
	g.AddEdge(1, model.NodeBasedEdge{Target: 3, AnnotationID: ann, Weight: 1, SourceWayID: 3})

	g.AddEdge(4, model.NodeBasedEdge{Target: 1, AnnotationID: ann, Weight: 1, SourceWayID: 4})
	g.AddEdge(1, model.NodeBasedEdge{Target: 4, AnnotationID: ann, Weight: 1, SourceWayID: 4})

	return g
}

// S3: at junction 2, 4 incoming directed edges each have 3 valid
// outgoing turns once the edge they arrived on (the exact reverse
// direction) is excluded as a U-turn: 4*3 = 12 EdgeBasedEdges.
func TestBuildEnumeratesTurnsAtJunction(t *testing.T) {
	g := buildCross()
	out, _, err := Build(g, nil, allowAllAdapter())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := len(out.Edges), 12; got != want {
		t.Fatalf("got %d edge-based edges, want %d", got, want)
	}
	if got, want := len(out.Nodes), 8; got != want {
		t.Fatalf("got %d edge-based nodes, want %d (one per directed node-based edge)", got, want)
	}
}

// S4: a no_right_turn restriction from the west leg onto the south leg at
// the junction drops exactly the one matching turn, leaving the other 11.
func TestBuildAppliesNoTurnRestriction(t *testing.T) {
	g := buildCross()
	restrictions := []model.TurnRestriction{
		{
			FromWay:    1,
			ToWay:      3,
			ViaNodes:   []model.NodeID{2},
			Kind:       model.RestrictionNo,
			RelationID: 100,
			ViaNode:    1, // internal id of the junction node
		},
	}
	out, resolved, err := Build(g, restrictions, allowAllAdapter())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := len(out.Edges), 11; got != want {
		t.Fatalf("got %d edge-based edges after restriction, want %d", got, want)
	}
	if resolved[0].FromEdge == model.InvalidEdgeID || resolved[0].ToEdge == model.InvalidEdgeID {
		t.Fatal("expected restriction's FromEdge/ToEdge to resolve")
	}
}

// only_straight_on-style restriction: only the designated to-way survives
// from the matching from-way, dropping the other two candidates.
func TestBuildAppliesOnlyTurnRestriction(t *testing.T) {
	g := buildCross()
	restrictions := []model.TurnRestriction{
		{
			FromWay:    1,
			ToWay:      3,
			ViaNodes:   []model.NodeID{2},
			Kind:       model.RestrictionOnly,
			RelationID: 101,
			ViaNode:    1,
		},
	}
	out, _, err := Build(g, restrictions, allowAllAdapter())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := len(out.Edges), 10; got != want {
		t.Fatalf("got %d edge-based edges, want %d (4*3 - 2 dropped alternatives from the restricted from-way)", got, want)
	}
}

func TestBuildProducesOneSegmentPerNodeBasedEdgePair(t *testing.T) {
	g := buildCross()
	out, _, err := Build(g, nil, allowAllAdapter())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := len(out.Segments), 4; got != want {
		t.Fatalf("got %d segments, want %d (one per undirected node-based edge)", got, want)
	}
	for _, seg := range out.Segments {
		if seg.ReverseID == model.InvalidEdgeBasedNodeID {
			t.Fatalf("expected every edge in this fixture to have a reverse twin, segment %+v did not", seg)
		}
	}
}
