// Package profile defines the profile adapter API of spec.md §6 — the
// boundary to the embedded scripting runtime that classifies ways/nodes,
// treated per spec.md §1 as "an opaque callback surface" out of scope for
// this module's internals. Only the interface and a concrete binding to
// it are in scope here.
package profile

import "github.com/paulmach/osm"

// ExtractionNode is the profile's classification of one OSM node.
type ExtractionNode struct {
	Barrier       bool
	TrafficSignal bool
	Classes       uint32
}

// DirectionAttrs is one direction's speed/duration/enabled flag, as
// returned for both the forward and backward direction of a way.
type DirectionAttrs struct {
	Enabled  bool
	SpeedKPH float64
	Duration float64
}

// NameQuadruple mirrors model.NameQuadruple without importing model, so
// the profile package has no dependency on the rest of the pipeline.
type NameQuadruple struct {
	Name, Destinations, Pronunciation, Ref string
}

// ExtractionWay is the profile's classification of one OSM way.
type ExtractionWay struct {
	Forward, Backward DirectionAttrs
	Names             NameQuadruple
	ClassMask         uint32
	Roundabout        bool
	StartpointEligible bool
	LaneDescriptionID uint32
}

// RelationContext describes the parent relations of a node/way being
// classified, built during Pass A by the relation indexer (C3) and handed
// to ProcessWay during Pass B (spec.md §4.1); ProcessNode takes none.
type RelationContext struct {
	Relations []RelationMembership
}

// RelationMembership is one relation referencing the entity being
// classified, with the role it was given.
type RelationMembership struct {
	RelationID int64
	Tags       map[string]string
	Role       string
}

// TurnFlags carries extra junction context into ProcessTurn: barrier and
// traffic-signal state at the via node (spec.md §4.5 step 1).
type TurnFlags struct {
	Barrier       bool
	TrafficSignal bool
}

// ProfileProperties is a free-form bag a profile can populate, persisted
// verbatim in the .properties artifact (spec.md §9 "Supplemented
// features").
type ProfileProperties map[string]interface{}

// Adapter is the profile adapter API of spec.md §6, consumed from the
// (out of scope) scripting runtime.
type Adapter interface {
	ProcessNode(tags map[string]string) (ExtractionNode, error)
	ProcessWay(tags map[string]string, ctx RelationContext) (ExtractionWay, bool, error)
	// ProcessTurn returns the penalty for turning from one edge onto
	// another at a junction. A negative weight means the turn itself is
	// forbidden by the profile (distinct from restriction relations,
	// e.g. a profile that bans all U-turns outright) and the caller must
	// not emit an edge-based edge for it.
	ProcessTurn(angleDegrees float64, fromClass, toClass uint32, flags TurnFlags) (weight, duration float64)

	Relations() []string
	Restrictions() []string
	ClassNames() []string
	ExcludableClasses() [][]string
	HasLocationDependentData() bool
	ProfileProperties() ProfileProperties
}

// TagMap converts osm.Tags into the plain map[string]string the Adapter
// API works with, keeping osm.* types out of the Adapter signature
// itself (it is meant to be implementable by a scripting runtime that
// has never heard of paulmach/osm).
func TagMap(tags osm.Tags) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Key] = t.Value
	}
	return m
}
