package aggregate

import (
	"testing"

	"github.com/LdDl/mapextract/internal/model"
)

func coord(lon, lat float64) model.Coordinate {
	return model.FromDegrees(lon, lat)
}

func TestPrepareSingleWayFanOut(t *testing.T) {
	a := New()
	a.AppendNodes([]model.RawNode{
		{ID: 1, Coord: coord(0, 0)},
		{ID: 2, Coord: coord(0, 0.001)},
	})
	a.AppendWays([]WayInput{{
		ID:    10,
		Nodes: []model.NodeID{1, 2},
		Forward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50},
		Names: model.NameQuadruple{Name: "Test Rd"},
		StartpointEligible: true,
	}})

	res, err := a.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 1 {
		t.Fatalf("expected 1 directed edge, got %d", len(res.Edges))
	}
	e := res.Edges[0]
	if e.Source != 0 || e.Target != 1 {
		t.Fatalf("unexpected source/target: %+v", e)
	}
	if e.Weight <= 0 || e.Duration <= 0 {
		t.Fatalf("expected positive weight/duration, got %+v", e)
	}
}

func TestPrepareBidirectionalWay(t *testing.T) {
	a := New()
	a.AppendNodes([]model.RawNode{
		{ID: 1, Coord: coord(0, 0)},
		{ID: 2, Coord: coord(0, 0.001)},
	})
	a.AppendWays([]WayInput{{
		ID:    10,
		Nodes: []model.NodeID{1, 2},
		Forward:  model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50},
		Backward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50},
	}})
	res, err := a.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 2 {
		t.Fatalf("expected 2 directed edges, got %d", len(res.Edges))
	}
}

func TestPrepareDropsWayWithUnresolvedNode(t *testing.T) {
	a := New()
	a.AppendNodes([]model.RawNode{{ID: 1, Coord: coord(0, 0)}})
	a.AppendWays([]WayInput{{
		ID:       10,
		Nodes:    []model.NodeID{1, 999},
		Forward:  model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50},
	}})
	_, err := a.Prepare()
	if err == nil {
		t.Fatal("expected ProfileError since no edges survive")
	}
}

func TestPrepareDedupsParallelEdges(t *testing.T) {
	a := New()
	a.AppendNodes([]model.RawNode{
		{ID: 1, Coord: coord(0, 0)},
		{ID: 2, Coord: coord(0, 0.001)},
	})
	a.AppendWays([]WayInput{
		{ID: 10, Nodes: []model.NodeID{1, 2}, Forward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50}},
		{ID: 11, Nodes: []model.NodeID{1, 2}, Forward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 100}},
	})
	res, err := a.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 1 {
		t.Fatalf("expected duplicate (source,target) edges to merge, got %d", len(res.Edges))
	}
}

func TestPrepareLinksNodeRestriction(t *testing.T) {
	a := New()
	a.AppendNodes([]model.RawNode{
		{ID: 1, Coord: coord(0, 0)},
		{ID: 2, Coord: coord(0, 0.001)},
		{ID: 3, Coord: coord(0, 0.002)},
	})
	a.AppendWays([]WayInput{
		{ID: 10, Nodes: []model.NodeID{1, 2}, Forward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50}},
		{ID: 11, Nodes: []model.NodeID{2, 3}, Forward: model.DirectedWayAttributes{Enabled: true, SpeedKPH: 50}},
	})
	a.AppendRestrictions([]model.TurnRestriction{{
		FromWay: 10, ToWay: 11, ViaNodes: []model.NodeID{2}, Kind: model.RestrictionNo,
	}})
	res, err := a.Prepare()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Restrictions) != 1 {
		t.Fatalf("expected restriction to survive linking, got %d", len(res.Restrictions))
	}
	if res.Restrictions[0].ViaNode != 1 {
		t.Fatalf("expected via node 2 to resolve to internal id 1, got %d", res.Restrictions[0].ViaNode)
	}
}
