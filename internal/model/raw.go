package model

// RawNode is the output of the profile adapter's ProcessNode, as produced
// by C4 and stored by C6 sorted by ID; consumed by C7 to resolve way
// geometry. Grounded on the teacher's Node type (node.go), generalized to
// drop the embedded osm.Node and to carry the profile-classified fields
// spec.md §3 names instead of the teacher's hardcoded highway/control
// fields.
type RawNode struct {
	ID NodeID

	Coord Coordinate

	// Barrier is set when the profile classified this node as a routing
	// barrier (e.g. a gate).
	Barrier bool
	// TrafficSignal is set when the profile classified this node as a
	// signal-controlled junction.
	TrafficSignal bool
	// Classes is the class-mask the profile assigned (bit i set means the
	// node participates in class i, see ExcludableClasses).
	Classes uint32

	// UseCount is not set or read by any stage; C7 decides which nodes
	// survive chain compression from in/out degree, barriers, signals and
	// restriction via-nodes.
	UseCount int

	// Metadata, only populated when config.UseMetadata is set (§9
	// "Supplemented features").
	Version   int
	Timestamp int64
}
