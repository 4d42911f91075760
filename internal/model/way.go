package model

// DirectedWayAttributes carries the per-direction speed/duration/flags a
// profile assigns to one travel direction of a way (spec.md §3 "RawWay").
type DirectedWayAttributes struct {
	Enabled  bool
	SpeedKPH float64
	Duration float64 // seconds, profile-supplied override; 0 means derive from speed
}

// RawWay is the output of the profile adapter's ProcessWay plus the
// geometry resolved from the location cache. Grounded on the teacher's
// WayData (way_raw.go), generalized: the teacher hardcodes highway
// classification inline, this type instead stores whatever class-mask and
// name-id the external profile assigned, per spec.md §3.
type RawWay struct {
	ID WayID

	// Nodes is the ordered list of node references (>= 2); invariant:
	// every NodeID must resolve in the node table, else the way is
	// dropped (spec.md §3 "Invariant").
	Nodes []NodeID

	Forward  DirectedWayAttributes
	Backward DirectedWayAttributes

	NameID    NameID
	ClassMask uint32

	Roundabout         bool
	StartpointEligible bool

	LaneDescriptionID uint32

	// Metadata, only populated when config.UseMetadata is set.
	Version   int
	Timestamp int64
}

// IsOneway reports whether only one direction is traversable.
func (w *RawWay) IsOneway() bool {
	return w.Forward.Enabled != w.Backward.Enabled
}
