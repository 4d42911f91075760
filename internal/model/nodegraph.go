package model

// GeometryPoint is one interior point of a compressed edge's folded
// geometry, recording the running weight/duration prefix sum at that
// point (spec.md §3 "CompressedEdge").
type GeometryPoint struct {
	Node               InternalNodeID
	CumulativeWeight   float64
	CumulativeDuration float64
}

// CompressedEdge is a directed edge between two junction nodes whose
// degree-2 interior nodes have been folded into its geometry.
type CompressedEdge struct {
	Target       InternalNodeID
	Weight       float64
	Duration     float64
	LengthMeters float64
	Geometry     []GeometryPoint
}

// EdgeAnnotation holds the attribute tuple shared by identical node-based
// edges (name, class-mask, lane description, roundabout); canonicalized
// so that edges with the same tuple share one entry (spec.md §3
// "NodeBasedGraph ... Annotations are shared by identical attribute
// tuples").
type EdgeAnnotation struct {
	NameID            NameID
	ClassMask         uint32
	LaneDescriptionID uint32
	Roundabout        bool
}

// NodeBasedEdge is one adjacency entry of the compressed node-based graph.
type NodeBasedEdge struct {
	Target         InternalNodeID
	Reversed       bool
	AnnotationID   AnnotationID
	GeometryRef    int // index into NodeBasedGraph.Compressed, or -1 for a direct (uncompressed) edge
	Weight         float64
	Duration       float64
	LengthMeters   float64
	StartpointOK   bool
	SourceWayID    WayID
	SourceWayFrom  NodeID
	SourceWayTo    NodeID
	// Segregated marks this edge as one half of a dual carriageway,
	// assigned by the segregated-edge detector (C8) after the graph is
	// built; excluded from turn-instruction generation downstream.
	Segregated bool
}

// NodeBasedGraph is the adjacency structure over junction nodes produced
// by C7, after chain compression.
type NodeBasedGraph struct {
	// Coords holds one coordinate per InternalNodeID; invariant (spec.md
	// §8 property 2): len(Coords) == max InternalNodeID + 1.
	Coords []Coordinate
	// SourceNodeIDs holds the original NodeID each junction came from,
	// parallel to Coords.
	SourceNodeIDs []NodeID
	// Barriers/TrafficSignals mark which junction nodes are barriers or
	// signal-controlled, by InternalNodeID.
	Barriers       map[InternalNodeID]bool
	TrafficSignals map[InternalNodeID]bool

	// Adjacency[u] lists every directed edge leaving junction u.
	Adjacency [][]NodeBasedEdge

	// Annotations is the shared, canonicalized attribute table; edges
	// reference it by AnnotationID rather than embedding the tuple.
	Annotations []EdgeAnnotation

	// Compressed holds the folded geometry chain for each compressed
	// edge; NodeBasedEdge.GeometryRef indexes into this slice.
	Compressed []CompressedEdge
}

// NewNodeBasedGraph allocates a graph with n junction node slots.
func NewNodeBasedGraph(n int) *NodeBasedGraph {
	return &NodeBasedGraph{
		Coords:         make([]Coordinate, n),
		SourceNodeIDs:  make([]NodeID, n),
		Barriers:       make(map[InternalNodeID]bool),
		TrafficSignals: make(map[InternalNodeID]bool),
		Adjacency:      make([][]NodeBasedEdge, n),
	}
}

// NumNodes returns the number of junction nodes.
func (g *NodeBasedGraph) NumNodes() int { return len(g.Coords) }

// InternAnnotation canonicalizes ann, returning an existing AnnotationID
// if an identical tuple was already interned.
func (g *NodeBasedGraph) InternAnnotation(ann EdgeAnnotation) AnnotationID {
	for i, existing := range g.Annotations {
		if existing == ann {
			return AnnotationID(i)
		}
	}
	g.Annotations = append(g.Annotations, ann)
	return AnnotationID(len(g.Annotations) - 1)
}

// AddEdge appends a directed edge from u.
func (g *NodeBasedGraph) AddEdge(u InternalNodeID, e NodeBasedEdge) {
	g.Adjacency[u] = append(g.Adjacency[u], e)
}

// Degree returns the number of edges leaving u.
func (g *NodeBasedGraph) Degree(u InternalNodeID) int { return len(g.Adjacency[u]) }
