package restriction

import (
	"testing"

	"github.com/paulmach/osm"

	"github.com/LdDl/mapextract/internal/xerrors"
)

func noLeftTurnRelation() *osm.Relation {
	return &osm.Relation{
		ID:   osm.RelationID(1),
		Tags: osm.Tags{{Key: "type", Value: "restriction"}, {Key: "restriction", Value: "no_left_turn"}},
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "from"},
			{Type: osm.TypeNode, Ref: 2, Role: "via"},
			{Type: osm.TypeWay, Ref: 20, Role: "to"},
		},
	}
}

func TestParseNodeRestriction(t *testing.T) {
	p := NewParser(nil, false)
	tr, err := p.Parse(noLeftTurnRelation())
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		t.Fatal("expected a restriction")
	}
	if tr.IsWayRestriction {
		t.Fatal("expected a node restriction")
	}
	if len(tr.ViaNodes) != 1 || tr.ViaNodes[0] != 2 {
		t.Fatalf("unexpected via nodes: %v", tr.ViaNodes)
	}
	if tr.FromWay != 10 || tr.ToWay != 20 {
		t.Fatalf("unexpected from/to way: %v %v", tr.FromWay, tr.ToWay)
	}
}

func TestParseIgnoresNonRestrictionRelation(t *testing.T) {
	p := NewParser(nil, false)
	r := &osm.Relation{ID: 1, Tags: osm.Tags{{Key: "type", Value: "route"}}}
	tr, err := p.Parse(r)
	if err != nil || tr != nil {
		t.Fatalf("expected nil, nil; got %v, %v", tr, err)
	}
}

func TestParseMissingFromIsReferenceError(t *testing.T) {
	p := NewParser(nil, false)
	r := &osm.Relation{
		ID:   1,
		Tags: osm.Tags{{Key: "type", Value: "restriction"}, {Key: "restriction", Value: "no_left_turn"}},
		Members: osm.Members{
			{Type: osm.TypeNode, Ref: 2, Role: "via"},
			{Type: osm.TypeWay, Ref: 20, Role: "to"},
		},
	}
	_, err := p.Parse(r)
	if err == nil || !xerrors.As(err, xerrors.ReferenceError) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
}

func TestParseWayViaRestriction(t *testing.T) {
	p := NewParser(nil, false)
	r := &osm.Relation{
		ID:   1,
		Tags: osm.Tags{{Key: "type", Value: "restriction"}, {Key: "restriction", Value: "no_u_turn"}},
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "from"},
			{Type: osm.TypeWay, Ref: 15, Role: "via"},
			{Type: osm.TypeWay, Ref: 20, Role: "to"},
		},
	}
	tr, err := p.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.IsWayRestriction || len(tr.ViaWays) != 1 {
		t.Fatalf("expected way restriction with 1 via way, got %+v", tr)
	}
}

func TestParseAllowedFilter(t *testing.T) {
	p := NewParser([]string{"no_right_turn"}, false)
	tr, err := p.Parse(noLeftTurnRelation())
	if err != nil {
		t.Fatal(err)
	}
	if tr != nil {
		t.Fatal("expected no_left_turn to be filtered out by the allowed list")
	}
}

func TestParseConditional(t *testing.T) {
	p := NewParser(nil, true)
	r := &osm.Relation{
		ID: 1,
		Tags: osm.Tags{
			{Key: "type", Value: "restriction"},
			{Key: "restriction:conditional", Value: "no_left_turn @ (Mo-Fr 07:00-09:00)"},
		},
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "from"},
			{Type: osm.TypeNode, Ref: 2, Role: "via"},
			{Type: osm.TypeWay, Ref: 20, Role: "to"},
		},
	}
	tr, err := p.Parse(r)
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil || tr.Condition == nil {
		t.Fatal("expected a conditional restriction")
	}
}
