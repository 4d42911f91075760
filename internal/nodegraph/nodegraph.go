// Package nodegraph implements the Node-Based Graph builder (C7,
// spec.md §4.3): it turns C6's flat, deduped edge list into adjacency
// over junction nodes, then performs degree-2 chain compression,
// folding interior nodes into each surviving edge's geometry while
// preserving barriers, traffic signals, and restriction via-nodes as
// junctions. Grounded on the teacher's network.go/network_node.go
// adjacency-construction idiom, generalized from the teacher's
// macro/meso/microscopic split into the single compressed node-based
// graph spec.md §3/§4.3 describes.
package nodegraph

import (
	"github.com/LdDl/mapextract/internal/aggregate"
	"github.com/LdDl/mapextract/internal/model"
)

// Build constructs the compressed node-based graph from C6's Result.
// restrictionViaNodes is the set of (pre-compression) InternalNodeIds
// that a restriction anchors on — these never get folded away, since a
// compressed node can no longer be referenced by a restriction.
//
// Returns the compressed graph plus the restrictions with their ViaNode
// renumbered into the graph's new, post-compression dense id space (for
// node restrictions only — way restrictions are resolved later, in C9,
// against the compressed adjacency via SourceWayID since their junction
// set is only known once the turn sequence is walked).
func Build(res *aggregate.Result) (*model.NodeBasedGraph, []model.TurnRestriction, error) {
	n := len(res.Nodes)

	outAdj := make([][]model.NodeBasedEdge, n)
	for _, e := range res.Edges {
		outAdj[e.Source] = append(outAdj[e.Source], model.NodeBasedEdge{
			Target:        e.Target,
			AnnotationID:  0, // filled below once annotations are interned
			Weight:        e.Weight,
			Duration:      e.Duration,
			LengthMeters:  e.LengthMeters,
			StartpointOK:  e.StartpointOK,
			SourceWayID:   e.SourceWayID,
			SourceWayFrom: e.SourceWayFrom,
			SourceWayTo:   e.SourceWayTo,
		})
	}

	annTable := newAnnotationInterner()
	k := 0
	for u := range outAdj {
		for i := range outAdj[u] {
			e := res.Edges[k]
			ann := model.EdgeAnnotation{NameID: e.NameID, ClassMask: e.ClassMask, LaneDescriptionID: e.LaneDescriptionID, Roundabout: e.Roundabout}
			outAdj[u][i].AnnotationID = annTable.intern(ann)
			k++
		}
	}

	inDeg := make([]int, n)
	predEdge := make([]int, n) // outAdj slot of the node's first predecessor, -1 if it has none
	predFrom := make([]model.InternalNodeID, n)
	for i := range predEdge {
		predEdge[i] = -1
	}
	for u := range outAdj {
		for i, e := range outAdj[u] {
			inDeg[e.Target]++
			if inDeg[e.Target] == 1 {
				predEdge[e.Target] = i
				predFrom[e.Target] = model.InternalNodeID(u)
			}
		}
	}

	restrictionViaNodes := make(map[model.InternalNodeID]bool)
	for _, r := range res.Restrictions {
		if !r.IsWayRestriction && r.ViaNode != model.InvalidInternalNodeID {
			restrictionViaNodes[r.ViaNode] = true
		}
	}

	compressible := make([]bool, n)
	for v := 0; v < n; v++ {
		iv := model.InternalNodeID(v)
		if res.Nodes[v].Barrier || res.Nodes[v].TrafficSignal || restrictionViaNodes[iv] {
			continue
		}
		if inDeg[v] != 1 || len(outAdj[v]) != 1 {
			continue
		}
		in := outAdj[predFrom[iv]][predEdge[v]]
		out := outAdj[v][0]
		if in.AnnotationID != out.AnnotationID {
			continue
		}
		if predFrom[iv] == iv || out.Target == iv {
			continue // self-loop, never compress
		}
		compressible[v] = true
	}

	breakCycles(outAdj, compressible)

	newID := make([]model.InternalNodeID, n)
	var junctionOld []int
	for v := 0; v < n; v++ {
		if !compressible[v] {
			newID[v] = model.InternalNodeID(len(junctionOld))
			junctionOld = append(junctionOld, v)
		} else {
			newID[v] = model.InvalidInternalNodeID
		}
	}

	g := model.NewNodeBasedGraph(len(junctionOld))
	for newIdx, oldIdx := range junctionOld {
		g.Coords[newIdx] = res.Nodes[oldIdx].Coord
		g.SourceNodeIDs[newIdx] = res.Nodes[oldIdx].ID
		if res.Nodes[oldIdx].Barrier {
			g.Barriers[model.InternalNodeID(newIdx)] = true
		}
		if res.Nodes[oldIdx].TrafficSignal {
			g.TrafficSignals[model.InternalNodeID(newIdx)] = true
		}
	}
	g.Annotations = annTable.annotations

	for _, oldV := range junctionOld {
		for _, first := range outAdj[oldV] {
			chainWeight := first.Weight
			chainDuration := first.Duration
			chainLength := first.LengthMeters
			var geometry []model.GeometryPoint
			cur := first.Target
			last := first
			for compressible[cur] {
				geometry = append(geometry, model.GeometryPoint{
					Node:               cur,
					CumulativeWeight:   chainWeight,
					CumulativeDuration: chainDuration,
				})
				next := outAdj[cur][0]
				chainWeight += next.Weight
				chainDuration += next.Duration
				chainLength += next.LengthMeters
				last = next
				cur = next.Target
			}

			compIdx := -1
			if len(geometry) > 0 {
				compIdx = len(g.Compressed)
				g.Compressed = append(g.Compressed, model.CompressedEdge{
					Target:       newID[cur],
					Weight:       chainWeight,
					Duration:     chainDuration,
					LengthMeters: chainLength,
					Geometry:     geometry,
				})
			}
			g.AddEdge(newID[oldV], model.NodeBasedEdge{
				Target:        newID[cur],
				AnnotationID:  first.AnnotationID,
				GeometryRef:   compIdx,
				Weight:        chainWeight,
				Duration:      chainDuration,
				LengthMeters:  chainLength,
				StartpointOK:  first.StartpointOK && last.StartpointOK,
				SourceWayID:   first.SourceWayID,
				SourceWayFrom: first.SourceWayFrom,
				SourceWayTo:   last.SourceWayTo,
			})
		}
	}

	restrictions := make([]model.TurnRestriction, len(res.Restrictions))
	copy(restrictions, res.Restrictions)
	for i := range restrictions {
		if !restrictions[i].IsWayRestriction && restrictions[i].ViaNode != model.InvalidInternalNodeID {
			restrictions[i].ViaNode = newID[restrictions[i].ViaNode]
		}
	}

	return g, restrictions, nil
}

// breakCycles promotes one node per pure compressible cycle (a closed
// chain with no junction anywhere on it, e.g. a fully degree-2 loop) back
// to junction status, since a compressed edge must terminate somewhere.
// Grounded on the teacher's markPureCycles concept in
// osm_prepare_ways.go/osm_welldone.go, generalized from way-level cycle
// marking to node-level.
func breakCycles(outAdj [][]model.NodeBasedEdge, compressible []bool) {
	visited := make([]bool, len(compressible))
	for s := 0; s < len(compressible); s++ {
		if visited[s] || !compressible[s] {
			continue
		}
		var path []int
		inPath := make(map[int]int)
		cur := s
		for {
			if visited[cur] {
				break
			}
			if !compressible[cur] {
				break
			}
			if idx, seen := inPath[cur]; seen {
				compressible[path[idx]] = false
				break
			}
			inPath[cur] = len(path)
			path = append(path, cur)
			cur = int(outAdj[cur][0].Target)
		}
		for _, p := range path {
			visited[p] = true
		}
	}
}

// annotationInterner dedups EdgeAnnotation values by full equality,
// mirroring model.NodeBasedGraph.InternAnnotation but with an index for
// O(1) lookup instead of a linear scan, since C7 interns every edge in
// one pass up front rather than incrementally.
type annotationInterner struct {
	annotations []model.EdgeAnnotation
	index       map[model.EdgeAnnotation]model.AnnotationID
}

func newAnnotationInterner() *annotationInterner {
	return &annotationInterner{index: make(map[model.EdgeAnnotation]model.AnnotationID)}
}

func (a *annotationInterner) intern(ann model.EdgeAnnotation) model.AnnotationID {
	if id, ok := a.index[ann]; ok {
		return id
	}
	id := model.AnnotationID(len(a.annotations))
	a.annotations = append(a.annotations, ann)
	a.index[ann] = id
	return id
}
