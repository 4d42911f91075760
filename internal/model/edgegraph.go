package model

// TravelMode is a small profile-defined mode tag (e.g. driving, walking)
// carried on an EdgeBasedNode; the turn function does not receive it.
type TravelMode uint8

// EdgeBasedNode represents one directed traversal of a node-based edge
// (spec.md §3).
type EdgeBasedNode struct {
	// GeometryRef indexes NodeBasedGraph.Compressed (or is -1 for a
	// directly-represented, uncompressed edge identified by U and V).
	GeometryRef int
	// U and V are the endpoints of the node-based edge this traversal
	// corresponds to, in traversal order.
	U                InternalNodeID
	V                InternalNodeID
	NameID           NameID
	ClassMask        uint32
	ComponentID      uint32
	Tiny             bool
	TravelMode       TravelMode
	LaneDescriptionID uint32
	Segregated       bool
}

// EdgeBasedEdge is a permitted turn from one edge-based node to another.
type EdgeBasedEdge struct {
	Source           EdgeBasedNodeID
	Target           EdgeBasedNodeID
	Weight           float64
	Duration         float64
	TurnWeightPenaltyIndex   int32
	TurnDurationPenaltyIndex int32
	Forward          bool
	Backward         bool
}

// EdgeBasedNodeSegment is the unit of spatial indexing: one node-based
// edge's pair of directed traversals plus its endpoint coordinate
// indices, spec.md §3.
type EdgeBasedNodeSegment struct {
	ForwardID   EdgeBasedNodeID
	ReverseID   EdgeBasedNodeID
	UIndex      InternalNodeID
	VIndex      InternalNodeID
	IsStartpoint bool
}
