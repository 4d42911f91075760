package model

// RestrictionKind distinguishes "no_X" from "only_X" turn restrictions.
type RestrictionKind uint8

const (
	RestrictionNo RestrictionKind = iota
	RestrictionOnly
)

func (k RestrictionKind) String() string {
	if k == RestrictionOnly {
		return "only"
	}
	return "no"
}

// RestrictionCondition is an optional time condition attached to a
// restriction (opening_hours-style), only populated when the profile's
// parse_conditionals config flag is enabled (spec.md §9 "Supplemented
// features").
type RestrictionCondition struct {
	Raw string
}

// TurnRestriction is the tagged variant of spec.md §3: either a
// NodeRestriction (single via-node) or a WayRestriction (via-way
// sequence), held in one flat struct. ViaNodes has exactly one entry for
// a node restriction and is empty for a way restriction; IsWayRestriction
// tells the two apart.
type TurnRestriction struct {
	FromWay WayID
	ToWay   WayID
	// ViaNodes is the via-node sequence; length 1 for a NodeRestriction,
	// empty for a WayRestriction (the nodes shared between consecutive
	// via ways are not computed).
	ViaNodes []NodeID
	// ViaWays is populated only for a WayRestriction: the intermediate
	// way(s) strung between FromWay and ToWay.
	ViaWays           []WayID
	IsWayRestriction  bool
	Kind              RestrictionKind
	Condition         *RestrictionCondition
	RelationID        RelationID

	// Resolved fields, set to their Invalid sentinels by the parser. The
	// aggregator (C6) fills ViaNode for a node restriction and C7
	// renumbers it; the edge-based graph builder (C9) fills FromEdge and
	// ToEdge, and ViaNode for a way restriction.
	FromEdge EdgeID
	ToEdge   EdgeID
	ViaNode  InternalNodeID
}
