// Package edgegraph implements the Edge-based graph factory (C9,
// spec.md §4.5): it allocates one EdgeBasedNode per directed node-based
// edge, then at every junction enumerates ordered pairs of
// incoming/outgoing edges, consults the profile's turn function, applies
// node and way restrictions, and emits an EdgeBasedEdge for every turn
// that survives. Grounded on the teacher's movement.go
// (movementBetweenLines' angle-difference classification into
// thru/right/left/u-turn), generalized from the teacher's fixed
// direction-letter movement codes into the continuous turn-angle input
// spec.md §4.5 step 1 hands the profile.
package edgegraph

import (
	"go.uber.org/zap"

	"github.com/LdDl/mapextract/internal/geo"
	"github.com/LdDl/mapextract/internal/logger"
	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/profile"
)

// Graph is C9's output: the edge-based graph plus the parallel arrays
// spec.md §4.5 describes as written to separate files.
type Graph struct {
	Nodes    []model.EdgeBasedNode
	Edges    []model.EdgeBasedEdge
	Segments []model.EdgeBasedNodeSegment
	// Weights holds each EdgeBasedNode's own traversal weight (the
	// node-based edge's Weight), parallel to Nodes; this is the ".enw"
	// array turn penalties are added on top of.
	Weights []float64

	// WeightPenalties/DurationPenalties are the deduped turn-penalty
	// value tables; EdgeBasedEdge.TurnWeightPenaltyIndex and
	// TurnDurationPenaltyIndex both index into these by the same
	// position (one distinct (weight,duration) pair per index).
	WeightPenalties   []float64
	DurationPenalties []float64
}

// uTurnAngleDegrees is the deflection beyond which a turn is treated as
// a U-turn and suppressed outright, matching the teacher's
// MOVEMENT_U_TURN classification in movement.go (angleDiff beyond
// 0.75*pi, i.e. 135 degrees).
const uTurnAngleDegrees = 135.0

type edgeLoc struct {
	U   model.InternalNodeID
	Idx int
}

// Build runs the C9 pipeline over g, applying restrictions (whose
// ViaNode for node restrictions is already renumbered into g's dense id
// space by C7). It returns the edge-based graph and the restriction list
// with FromEdge/ToEdge/ViaNode fully resolved where possible.
func Build(g *model.NodeBasedGraph, restrictions []model.TurnRestriction, adapter profile.Adapter) (*Graph, []model.TurnRestriction, error) {
	log := logger.Get()

	nodes, ebnID, weights := allocateNodes(g)
	incoming := buildIncoming(g)
	edgesByWay := buildEdgesByWay(g)

	resolved := make([]model.TurnRestriction, len(restrictions))
	copy(resolved, restrictions)

	byVia := make(map[model.InternalNodeID]map[model.WayID]*turnFilter)
	addFilter := func(via model.InternalNodeID, fromWay, toWay model.WayID, kind model.RestrictionKind) {
		m, ok := byVia[via]
		if !ok {
			m = make(map[model.WayID]*turnFilter)
			byVia[via] = m
		}
		f, ok := m[fromWay]
		if !ok {
			f = &turnFilter{blocked: make(map[model.WayID]bool)}
			m[fromWay] = f
		}
		if kind == model.RestrictionOnly {
			f.onlyTo = toWay
			f.hasOnly = true
		} else {
			f.blocked[toWay] = true
		}
	}

	for i := range resolved {
		r := &resolved[i]
		if r.IsWayRestriction {
			resolveWayRestriction(g, r, edgesByWay, ebnID, log)
			if r.ViaNode != model.InvalidInternalNodeID {
				addFilter(r.ViaNode, r.ViaWays[0], r.ToWay, r.Kind)
			}
			continue
		}
		if r.ViaNode == model.InvalidInternalNodeID {
			continue
		}
		resolveNodeRestriction(g, r, incoming, ebnID, log)
		addFilter(r.ViaNode, r.FromWay, r.ToWay, r.Kind)
	}

	penalties := newPenaltyInterner()
	var edges []model.EdgeBasedEdge

	for v := range incoming {
		filters := byVia[model.InternalNodeID(v)]
		flags := profile.TurnFlags{Barrier: g.Barriers[model.InternalNodeID(v)], TrafficSignal: g.TrafficSignals[model.InternalNodeID(v)]}

		for _, in := range incoming[v] {
			e1 := g.Adjacency[in.U][in.Idx]
			ann1 := g.Annotations[e1.AnnotationID]
			fromID := ebnID[in.U][in.Idx]

			var filter *turnFilter
			if filters != nil {
				filter = filters[e1.SourceWayID]
			}

			for outIdx, e2 := range g.Adjacency[v] {
				angle := geo.TurnAngleDegrees(g.Coords[in.U], g.Coords[model.InternalNodeID(v)], g.Coords[e2.Target])
				if angle >= uTurnAngleDegrees || angle <= -uTurnAngleDegrees {
					continue
				}
				if filter != nil {
					if filter.hasOnly && e2.SourceWayID != filter.onlyTo {
						continue
					}
					if filter.blocked[e2.SourceWayID] {
						continue
					}
				}

				ann2 := g.Annotations[e2.AnnotationID]
				turnWeight, turnDuration := adapter.ProcessTurn(angle, ann1.ClassMask, ann2.ClassMask, flags)
				if turnWeight < 0 {
					continue
				}

				toID := ebnID[v][outIdx]
				penIdx := penalties.intern(turnWeight, turnDuration)
				edges = append(edges, model.EdgeBasedEdge{
					Source:                   fromID,
					Target:                   toID,
					Weight:                   e2.Weight + turnWeight,
					Duration:                 e2.Duration + turnDuration,
					TurnWeightPenaltyIndex:   penIdx,
					TurnDurationPenaltyIndex: penIdx,
					Forward:                  true,
					Backward:                 true,
				})
			}
		}
	}

	segments := buildSegments(g, ebnID)

	return &Graph{
		Nodes:             nodes,
		Edges:             edges,
		Segments:          segments,
		Weights:           weights,
		WeightPenalties:   penalties.weights,
		DurationPenalties: penalties.durations,
	}, resolved, nil
}

// allocateNodes gives every directed node-based edge exactly one
// EdgeBasedNode (spec.md §4.5 "For each directed node-based edge e =
// (u,v), allocate one EdgeBasedNode"), and records where it landed so
// later lookups can find it by (u, adjacency-slot).
func allocateNodes(g *model.NodeBasedGraph) ([]model.EdgeBasedNode, [][]model.EdgeBasedNodeID, []float64) {
	var nodes []model.EdgeBasedNode
	var weights []float64
	ebnID := make([][]model.EdgeBasedNodeID, g.NumNodes())
	for u, edges := range g.Adjacency {
		ebnID[u] = make([]model.EdgeBasedNodeID, len(edges))
		for i, e := range edges {
			ann := g.Annotations[e.AnnotationID]
			id := model.EdgeBasedNodeID(len(nodes))
			nodes = append(nodes, model.EdgeBasedNode{
				GeometryRef:       e.GeometryRef,
				U:                 model.InternalNodeID(u),
				V:                 e.Target,
				NameID:            ann.NameID,
				ClassMask:         ann.ClassMask,
				TravelMode:        1,
				LaneDescriptionID: ann.LaneDescriptionID,
				Segregated:        e.Segregated,
			})
			weights = append(weights, e.Weight)
			ebnID[u][i] = id
		}
	}
	return nodes, ebnID, weights
}

func buildIncoming(g *model.NodeBasedGraph) [][]edgeLoc {
	incoming := make([][]edgeLoc, g.NumNodes())
	for u, edges := range g.Adjacency {
		for i, e := range edges {
			incoming[e.Target] = append(incoming[e.Target], edgeLoc{U: model.InternalNodeID(u), Idx: i})
		}
	}
	return incoming
}

func buildEdgesByWay(g *model.NodeBasedGraph) map[model.WayID][]edgeLoc {
	byWay := make(map[model.WayID][]edgeLoc)
	for u, edges := range g.Adjacency {
		for i, e := range edges {
			byWay[e.SourceWayID] = append(byWay[e.SourceWayID], edgeLoc{U: model.InternalNodeID(u), Idx: i})
		}
	}
	return byWay
}

// turnFilter is the per-(via node, incoming way) restriction state: a
// blocked set for no_X restrictions and, mutually, a single required
// destination way for only_X restrictions (spec.md §4.5 step 2).
type turnFilter struct {
	blocked map[model.WayID]bool
	onlyTo  model.WayID
	hasOnly bool
}

// resolveNodeRestriction finds the specific directed edges a node
// restriction's FromWay/ToWay refer to at its (already-renumbered)
// ViaNode, filling FromEdge/ToEdge for downstream serialization. Leaves
// them Invalid (with a warning) if the topology no longer matches, which
// can happen if compression folded the junction away unexpectedly.
func resolveNodeRestriction(g *model.NodeBasedGraph, r *model.TurnRestriction, incoming [][]edgeLoc, ebnID [][]model.EdgeBasedNodeID, log *zap.Logger) {
	via := r.ViaNode
	fromFound, toFound := false, false
	for _, in := range incoming[via] {
		if g.Adjacency[in.U][in.Idx].SourceWayID != r.FromWay {
			continue
		}
		r.FromEdge = model.EdgeID(ebnID[in.U][in.Idx])
		fromFound = true
		break
	}
	for i, e := range g.Adjacency[via] {
		if e.SourceWayID != r.ToWay {
			continue
		}
		r.ToEdge = model.EdgeID(ebnID[via][i])
		toFound = true
		break
	}
	if !fromFound || !toFound {
		log.Warn("turn restriction no longer matches graph topology", zap.Int64("relation_id", int64(r.RelationID)))
	}
}

// resolveWayRestriction locates the junction between the restriction's
// (sole-supported) via-way and its to-way, and the junction between its
// from-way and that via-way, confirming the chain is actually connected.
// Only single-via-way restrictions are resolved; longer via-sequences
// are left unfiltered (see DESIGN.md).
func resolveWayRestriction(g *model.NodeBasedGraph, r *model.TurnRestriction, edgesByWay map[model.WayID][]edgeLoc, ebnID [][]model.EdgeBasedNodeID, log *zap.Logger) {
	if len(r.ViaWays) != 1 {
		log.Warn("skipping multi-segment way restriction", zap.Int64("relation_id", int64(r.RelationID)))
		return
	}
	viaWay := r.ViaWays[0]
	for _, loc := range edgesByWay[viaWay] {
		a := loc.U
		e := g.Adjacency[a][loc.Idx]
		b := e.Target
		if !wayReachesNode(g, edgesByWay, r.FromWay, a) {
			continue
		}
		toLoc, ok := wayLeavesNode(edgesByWay, r.ToWay, b)
		if !ok {
			continue
		}
		r.ViaNode = b
		r.FromEdge = model.EdgeID(ebnID[a][loc.Idx])
		r.ToEdge = model.EdgeID(ebnID[b][toLoc.Idx])
		return
	}
	log.Warn("way restriction's via-way does not connect from-way to to-way in the compressed graph", zap.Int64("relation_id", int64(r.RelationID)))
}

func wayReachesNode(g *model.NodeBasedGraph, edgesByWay map[model.WayID][]edgeLoc, way model.WayID, target model.InternalNodeID) bool {
	for _, loc := range edgesByWay[way] {
		if g.Adjacency[loc.U][loc.Idx].Target == target {
			return true
		}
	}
	return false
}

func wayLeavesNode(edgesByWay map[model.WayID][]edgeLoc, way model.WayID, source model.InternalNodeID) (edgeLoc, bool) {
	for _, loc := range edgesByWay[way] {
		if loc.U == source {
			return loc, true
		}
	}
	return edgeLoc{}, false
}

// buildSegments pairs each node-based edge with its opposite-direction
// twin (if any) into one EdgeBasedNodeSegment, the spatial-indexing unit
// of C11. Each directed edge is consumed by at most one segment.
func buildSegments(g *model.NodeBasedGraph, ebnID [][]model.EdgeBasedNodeID) []model.EdgeBasedNodeSegment {
	visited := make([][]bool, g.NumNodes())
	for u := range g.Adjacency {
		visited[u] = make([]bool, len(g.Adjacency[u]))
	}

	var segments []model.EdgeBasedNodeSegment
	for u, edges := range g.Adjacency {
		for i, e := range edges {
			if visited[u][i] {
				continue
			}
			visited[u][i] = true

			reverseID := model.InvalidEdgeBasedNodeID
			startpoint := e.StartpointOK
			for j, back := range g.Adjacency[e.Target] {
				if visited[e.Target][j] || back.Target != model.InternalNodeID(u) {
					continue
				}
				visited[e.Target][j] = true
				reverseID = ebnID[e.Target][j]
				startpoint = startpoint || back.StartpointOK
				break
			}

			segments = append(segments, model.EdgeBasedNodeSegment{
				ForwardID:    ebnID[u][i],
				ReverseID:    reverseID,
				UIndex:       model.InternalNodeID(u),
				VIndex:       e.Target,
				IsStartpoint: startpoint,
			})
		}
	}
	return segments
}

// penaltyInterner dedups (weight, duration) turn-penalty pairs so
// EdgeBasedEdge stores a shared index instead of repeating the floats.
type penaltyInterner struct {
	weights   []float64
	durations []float64
	index     map[[2]float64]int32
}

func newPenaltyInterner() *penaltyInterner {
	return &penaltyInterner{index: make(map[[2]float64]int32)}
}

func (p *penaltyInterner) intern(weight, duration float64) int32 {
	key := [2]float64{weight, duration}
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := int32(len(p.weights))
	p.weights = append(p.weights, weight)
	p.durations = append(p.durations, duration)
	p.index[key] = idx
	return idx
}
