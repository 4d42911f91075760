// Package model holds the data types shared across the extraction pipeline:
// source-dump identifiers, the fixed-point coordinate type, raw entities,
// the node-based and edge-based graph representations, and turn
// restrictions. Packages downstream of ingestion (nodegraph, edgegraph,
// scc, spatial, serialize) all operate on these types rather than on
// paulmach/osm types directly, so the rest of the pipeline has no
// dependency on the OSM wire format.
package model

import "fmt"

// NodeID is the 64-bit signed node identifier from the source dump.
type NodeID int64

// WayID is the 64-bit signed way identifier from the source dump.
type WayID int64

// RelationID is the 64-bit signed relation identifier from the source dump.
type RelationID int64

// InternalNodeID is a dense 32-bit index assigned during build, into the
// junction node table.
type InternalNodeID uint32

// InvalidInternalNodeID marks an unresolved reference.
const InvalidInternalNodeID = InternalNodeID(^uint32(0))

// EdgeID is a dense 32-bit index identifying a directed node-based edge.
type EdgeID uint32

// InvalidEdgeID marks an unresolved edge reference.
const InvalidEdgeID = EdgeID(^uint32(0))

// EdgeBasedNodeID is a dense 32-bit index identifying one directed
// traversal of a node-based edge within the edge-based graph.
type EdgeBasedNodeID uint32

// InvalidEdgeBasedNodeID marks an unresolved edge-based node reference.
const InvalidEdgeBasedNodeID = EdgeBasedNodeID(^uint32(0))

// NameID indexes into a NameTable; zero means "no name".
type NameID uint32

// AnnotationID indexes into the node-based graph's shared annotation table.
type AnnotationID uint32

func (id NodeID) String() string     { return fmt.Sprintf("n%d", int64(id)) }
func (id WayID) String() string      { return fmt.Sprintf("w%d", int64(id)) }
func (id RelationID) String() string { return fmt.Sprintf("r%d", int64(id)) }
