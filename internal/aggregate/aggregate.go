// Package aggregate implements the Extraction aggregator (C6, spec.md
// §4.2, `PrepareData`): it accumulates classified nodes/ways/restrictions
// across buffers, then interns names, resolves node references, fans
// out directed edges per way, dedups/sorts them, and links restrictions
// to internal node ids. Grounded on the teacher's osm_prepare.go /
// osm_prepare_ways.go (`prepareWays`, `data.ways`/`data.waysMedium`
// staging), generalized from the teacher's meso/micro-scopic network
// build into the single node-based edge list spec.md §4.2 describes.
package aggregate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/LdDl/mapextract/internal/geo"
	"github.com/LdDl/mapextract/internal/logger"
	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/xerrors"
)

func wayField(id model.WayID) zap.Field { return zap.Int64("way_id", int64(id)) }
func restrictionField(id model.RelationID) zap.Field { return zap.Int64("relation_id", int64(id)) }

// WayInput is one classified way, still carrying its name quadruple
// un-interned (interning happens once, globally, in Prepare).
type WayInput struct {
	ID                 model.WayID
	Nodes              []model.NodeID
	Forward, Backward  model.DirectedWayAttributes
	Names              model.NameQuadruple
	ClassMask          uint32
	Roundabout         bool
	StartpointEligible bool
	LaneDescriptionID  uint32
	Version            int
	Timestamp          int64
}

// Edge is one directed node-based edge fanned out from a way segment,
// the flat input C7 turns into adjacency lists.
type Edge struct {
	Source, Target     model.InternalNodeID
	Weight, Duration   float64
	LengthMeters       float64
	NameID             model.NameID
	ClassMask          uint32
	LaneDescriptionID  uint32
	Roundabout         bool
	StartpointOK       bool
	SourceWayID        model.WayID
	SourceWayFrom, SourceWayTo model.NodeID
}

// Result is C6's output, handed to C7.
type Result struct {
	Nodes        []model.RawNode // sorted by id
	Names        *model.NameTable
	Ways         []model.RawWay
	Edges        []Edge // deduped, sorted by (Source, Target)
	Restrictions []model.TurnRestriction

	DroppedWays         int
	DroppedSegments      int
	DroppedRestrictions int
}

// Aggregator accumulates parsed buffers. Per spec.md §5 it is written
// only from the pipeline's single serial aggregate stage, so it takes no
// internal lock; AppendX calls must not race with each other or with
// Prepare.
type Aggregator struct {
	nodes        []model.RawNode
	ways         []WayInput
	restrictions []model.TurnRestriction
}

func New() *Aggregator { return &Aggregator{} }

func (a *Aggregator) AppendNodes(ns []model.RawNode)             { a.nodes = append(a.nodes, ns...) }
func (a *Aggregator) AppendWays(ws []WayInput)                   { a.ways = append(a.ways, ws...) }
func (a *Aggregator) AppendRestrictions(rs []model.TurnRestriction) {
	a.restrictions = append(a.restrictions, rs...)
}

func resolveNode(sorted []model.RawNode, id model.NodeID) (model.InternalNodeID, bool) {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].ID >= id })
	if i < len(sorted) && sorted[i].ID == id {
		return model.InternalNodeID(i), true
	}
	return model.InvalidInternalNodeID, false
}

// Prepare runs the C6 pipeline described in spec.md §4.2 over everything
// appended so far and returns the aggregated Result, or a *xerrors.Error
// of kind ProfileError if the edge list ends up empty.
func (a *Aggregator) Prepare() (*Result, error) {
	log := logger.Get()

	sort.Slice(a.nodes, func(i, j int) bool { return a.nodes[i].ID < a.nodes[j].ID })

	names := model.NewNameTable()
	rawWays := make([]model.RawWay, 0, len(a.ways))
	var edges []Edge
	droppedWays, droppedSegments := 0, 0

	for _, w := range a.ways {
		internalIDs := make([]model.InternalNodeID, len(w.Nodes))
		ok := true
		for i, nid := range w.Nodes {
			internal, found := resolveNode(a.nodes, nid)
			if !found {
				ok = false
				break
			}
			internalIDs[i] = internal
		}
		if !ok || len(w.Nodes) < 2 {
			droppedWays++
			log.Warn("dropping way with unresolved node reference", wayField(w.ID))
			continue
		}

		nameID := names.Intern(w.Names)
		rawWays = append(rawWays, model.RawWay{
			ID:                 w.ID,
			Nodes:              w.Nodes,
			Forward:            w.Forward,
			Backward:           w.Backward,
			NameID:             nameID,
			ClassMask:          w.ClassMask,
			Roundabout:         w.Roundabout,
			StartpointEligible: w.StartpointEligible,
			LaneDescriptionID:  w.LaneDescriptionID,
			Version:            w.Version,
			Timestamp:          w.Timestamp,
		})

		segLengths := make([]float64, len(w.Nodes)-1)
		total := 0.0
		for i := 0; i < len(w.Nodes)-1; i++ {
			d := geo.HaversineMeters(a.nodes[internalIDs[i]].Coord, a.nodes[internalIDs[i+1]].Coord)
			segLengths[i] = d
			total += d
		}
		if total == 0 {
			droppedSegments += len(segLengths)
			log.Warn("dropping degenerate zero-length way", wayField(w.ID))
			continue
		}

		emit := func(from, to int, attrs model.DirectedWayAttributes) {
			d := segLengths[minInt(from, to)]
			if d <= 0 {
				droppedSegments++
				return
			}
			speed := attrs.SpeedKPH
			if speed <= 0 {
				speed = 1
			}
			duration := attrs.Duration
			if duration <= 0 {
				duration = (d / 1000.0) / speed * 3600.0
			} else {
				duration = duration * (d / total)
			}
			edges = append(edges, Edge{
				Source:             internalIDs[from],
				Target:             internalIDs[to],
				Weight:             d / 1000.0 / speed,
				Duration:           duration,
				LengthMeters:       d,
				NameID:             nameID,
				ClassMask:          w.ClassMask,
				LaneDescriptionID:  w.LaneDescriptionID,
				Roundabout:         w.Roundabout,
				StartpointOK:       w.StartpointEligible,
				SourceWayID:        w.ID,
				SourceWayFrom:      w.Nodes[from],
				SourceWayTo:        w.Nodes[to],
			})
		}

		for i := 0; i < len(w.Nodes)-1; i++ {
			if w.Forward.Enabled {
				emit(i, i+1, w.Forward)
			}
			if w.Backward.Enabled {
				emit(i+1, i, w.Backward)
			}
		}
	}

	edges = dedupSortEdges(edges)

	restrictions := make([]model.TurnRestriction, 0, len(a.restrictions))
	droppedRestrictions := 0
	for _, r := range a.restrictions {
		if !r.IsWayRestriction {
			if len(r.ViaNodes) != 1 {
				droppedRestrictions++
				continue
			}
			via, found := resolveNode(a.nodes, r.ViaNodes[0])
			if !found {
				droppedRestrictions++
				log.Warn("dropping restriction with unresolved via node", restrictionField(r.RelationID))
				continue
			}
			r.ViaNode = via
		}
		restrictions = append(restrictions, r)
	}

	if len(edges) == 0 {
		return nil, xerrors.New(xerrors.ProfileError, "no edges remain after parsing")
	}

	return &Result{
		Nodes:               a.nodes,
		Names:               names,
		Ways:                rawWays,
		Edges:               edges,
		Restrictions:        restrictions,
		DroppedWays:         droppedWays,
		DroppedSegments:      droppedSegments,
		DroppedRestrictions: droppedRestrictions,
	}, nil
}

func dedupSortEdges(edges []Edge) []Edge {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	out := edges[:0:0]
	for _, e := range edges {
		if n := len(out); n > 0 && out[n-1].Source == e.Source && out[n-1].Target == e.Target {
			if e.Weight < out[n-1].Weight {
				out[n-1].Weight = e.Weight
			}
			if e.LengthMeters < out[n-1].LengthMeters {
				out[n-1].LengthMeters = e.LengthMeters
			}
			if e.Duration < out[n-1].Duration {
				out[n-1].Duration = e.Duration
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
