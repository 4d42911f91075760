// Package pipeline implements the staged dataflow of spec.md §4.1/§5: a
// relation-indexing Pass A followed by a four-stage Pass B (read,
// resolve locations, classify, aggregate), then the C7-C12 build chain
// that turns the aggregated result into a written artifact set.
// Grounded on the teacher's single-pass parser.go/osm_prepare.go
// sequencing, generalized from its hardcoded three-phase
// (nodes-then-ways-then-relations) walk into the explicit, ordered
// staged dataflow spec.md names, using `golang.org/x/sync/errgroup` the
// way internal/relindex already does for its own parallel-then-serial
// merge.
package pipeline

import (
	"context"
	"time"

	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LdDl/mapextract/internal/aggregate"
	"github.com/LdDl/mapextract/internal/config"
	"github.com/LdDl/mapextract/internal/edgegraph"
	"github.com/LdDl/mapextract/internal/logger"
	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/nodegraph"
	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/progress"
	"github.com/LdDl/mapextract/internal/relindex"
	"github.com/LdDl/mapextract/internal/restriction"
	"github.com/LdDl/mapextract/internal/scc"
	"github.com/LdDl/mapextract/internal/segregated"
	"github.com/LdDl/mapextract/internal/serialize"
	"github.com/LdDl/mapextract/internal/source"
	"github.com/LdDl/mapextract/internal/spatial"
)

// locationCache holds node coordinates as they are read, written only by
// the serial "resolve locations" stage (spec.md §5 "the location cache is
// written only in the serial location-resolution stage"). It is populated
// during Pass B only when cfg.UseLocationsCache is set and the active
// profile reports HasLocationDependentData (spec.md §4.1 step 2), and no
// stage reads it back; profile.Adapter
// has no coordinate parameter on ProcessWay today, so "resolving" a way's
// locations here means making them available to the pipeline (e.g. for
// the distance-based aggregation C6 already does from RawNode), not
// forwarding them into the adapter call itself.
type locationCache struct {
	coords map[model.NodeID]model.Coordinate
}

func newLocationCache() *locationCache {
	return &locationCache{coords: make(map[model.NodeID]model.Coordinate)}
}

func (c *locationCache) put(id model.NodeID, coord model.Coordinate) { c.coords[id] = coord }

// parsedBuffer is the output of the classify stage for one input buffer.
type parsedBuffer struct {
	nodes        []model.RawNode
	ways         []aggregate.WayInput
	restrictions []model.TurnRestriction
}

// Result bundles everything a caller needs after a successful Run.
type Result struct {
	NodeGraph *model.NodeBasedGraph
	Names     *model.NameTable
	EdgeGraph *edgegraph.Graph
	Spatial   *spatial.Index
	Restrictions []model.TurnRestriction
	AggregateStats aggregate.Result
}

// Run executes the full pipeline: Pass A, Pass B, then the C7-C12 build
// chain, and writes every artifact under cfg.OutputPrefix.
func Run(ctx context.Context, cfg *config.Config, src source.Source, adapter profile.Adapter) (*Result, error) {
	log := logger.Get()
	reporter := progress.New(log)

	reporter.Start("relations")
	wantedTypes := make(map[string]bool, len(adapter.Restrictions())+1)
	wantedTypes["restriction"] = true
	for _, r := range adapter.Relations() {
		wantedTypes[r] = true
	}
	workers := cfg.ResolvedThreads()
	relIdx, err := relindex.Build(ctx, src, wantedTypes, workers)
	if err != nil {
		return nil, err
	}
	reporter.Done("relations", relIdx.Len())

	reporter.Start("nodes/ways/restrictions")
	agg, err := runPassB(ctx, src, adapter, relIdx, cfg, workers)
	if err != nil {
		return nil, err
	}
	aggResult, err := agg.Prepare()
	if err != nil {
		return nil, err
	}
	reporter.Done("nodes/ways/restrictions", len(aggResult.Edges))

	reporter.Start("node-based graph")
	nbg, restrictions, err := nodegraph.Build(aggResult)
	if err != nil {
		return nil, err
	}
	reporter.Done("node-based graph", nbg.NumNodes())

	// Segregated-edge detection runs inline, before C9, since the edge-
	// based graph factory copies NodeBasedEdge.Segregated onto each
	// EdgeBasedNode.
	segregated.Detect(nbg, adapter.ClassNames())

	reporter.Start("edge-based graph")
	eg, restrictions, err := edgegraph.Build(nbg, restrictions, adapter)
	if err != nil {
		return nil, err
	}
	reporter.Done("edge-based graph", len(eg.Edges))

	// SCC labeling and R-tree construction run concurrently (spec.md §5
	// "the compressed-graph write runs concurrently with SCC labeling and
	// R-tree construction"); both read eg/nbg without mutating shared
	// state the other touches, so no further synchronization is needed.
	leafSize, fanout := cfg.SpatialLeafSize, cfg.SpatialFanout
	var idx *spatial.Index
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		scc.Label(eg.Nodes, eg.Edges, eg.Segments, cfg.SmallComponentSize)
		return nil
	})
	g.Go(func() error {
		var buildErr error
		idx, buildErr = spatial.Build(nbg.Coords, eg.Segments, leafSize, fanout)
		return buildErr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		NodeGraph:      nbg,
		Names:          aggResult.Names,
		EdgeGraph:      eg,
		Spatial:        idx,
		Restrictions:   restrictions,
		AggregateStats: *aggResult,
	}

	reporter.Start("write artifacts")
	err = serialize.WriteAll(cfg.OutputPrefix, serialize.Artifacts{
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		NodeGraph:    nbg,
		Names:        aggResult.Names,
		EdgeGraph:    eg,
		Spatial:      idx,
		Restrictions: restrictions,
		Properties:   adapter.ProfileProperties(),
	})
	if err != nil {
		return nil, err
	}
	reporter.Done("write artifacts", 0)

	return result, nil
}

func runPassB(ctx context.Context, src source.Source, adapter profile.Adapter, relIdx *relindex.Index, cfg *config.Config, workers int) (*aggregate.Aggregator, error) {
	if workers < 1 {
		workers = 1
	}
	bufs, errc := src.Stream(ctx, source.KindNode, source.KindWay, source.KindRelation)

	cache := newLocationCache()
	parser := restriction.NewParser(adapter.Restrictions(), cfg.ParseConditionals)

	futures := make(chan chan parsedBuffer, workers*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(futures)
		sem := make(chan struct{}, workers)
		for buf := range bufs {
			buf := buf
			fc := make(chan parsedBuffer, 1)
			select {
			case futures <- fc:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			// resolve-locations stage: populate the cache from this
			// buffer's nodes before handing the buffer to classify,
			// serial-in-order since this loop itself never parallelizes.
			if cfg.UseLocationsCache && adapter.HasLocationDependentData() {
				for _, e := range buf {
					if e.Kind == source.KindNode && e.Node != nil {
						cache.put(model.NodeID(e.Node.ID), model.FromDegrees(e.Node.Lon, e.Node.Lat))
					}
				}
			}
			g.Go(func() error {
				defer func() { <-sem }()
				fc <- classifyBuffer(buf, adapter, relIdx, parser, cfg.UseMetadata)
				close(fc)
				return nil
			})
		}
		return nil
	})

	agg := aggregate.New()
	g.Go(func() error {
		for fc := range futures {
			select {
			case pb := <-fc:
				agg.AppendNodes(pb.nodes)
				agg.AppendWays(pb.ways)
				agg.AppendRestrictions(pb.restrictions)
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return agg, nil
}

func classifyBuffer(buf []source.Entity, adapter profile.Adapter, relIdx *relindex.Index, parser *restriction.Parser, useMetadata bool) parsedBuffer {
	log := logger.Get()
	var pb parsedBuffer
	for _, e := range buf {
		switch e.Kind {
		case source.KindNode:
			pb.nodes = append(pb.nodes, classifyNode(e.Node, adapter, useMetadata))
		case source.KindWay:
			if w, ok := classifyWay(e.Way, adapter, relIdx, useMetadata); ok {
				pb.ways = append(pb.ways, w)
			}
		case source.KindRelation:
			r, err := parser.Parse(e.Relation)
			if err != nil {
				log.Warn("dropping malformed restriction relation", zap.Error(err))
				continue
			}
			if r != nil {
				pb.restrictions = append(pb.restrictions, *r)
			}
		}
	}
	return pb
}

func classifyNode(n *osm.Node, adapter profile.Adapter, useMetadata bool) model.RawNode {
	tags := profile.TagMap(n.Tags)
	res, err := adapter.ProcessNode(tags)
	rn := model.RawNode{
		ID:    model.NodeID(n.ID),
		Coord: model.FromDegrees(n.Lon, n.Lat),
	}
	if err != nil {
		return rn
	}
	rn.Barrier = res.Barrier
	rn.TrafficSignal = res.TrafficSignal
	rn.Classes = res.Classes
	if useMetadata {
		rn.Version = n.Version
		rn.Timestamp = n.Timestamp.Unix()
	}
	return rn
}

func classifyWay(w *osm.Way, adapter profile.Adapter, relIdx *relindex.Index, useMetadata bool) (aggregate.WayInput, bool) {
	tags := profile.TagMap(w.Tags)
	relCtx := relIdx.Context(source.KindWay, int64(w.ID))
	res, ok, err := adapter.ProcessWay(tags, relCtx)
	if err != nil || !ok {
		return aggregate.WayInput{}, false
	}
	nodes := make([]model.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodes[i] = model.NodeID(wn.ID)
	}
	wi := aggregate.WayInput{
		ID:                 model.WayID(w.ID),
		Nodes:              nodes,
		Forward:            toDirectedAttrs(res.Forward),
		Backward:           toDirectedAttrs(res.Backward),
		Names:              toNameQuadruple(res.Names),
		ClassMask:          res.ClassMask,
		Roundabout:         res.Roundabout,
		StartpointEligible: res.StartpointEligible,
		LaneDescriptionID:  res.LaneDescriptionID,
	}
	if useMetadata {
		wi.Version = w.Version
		wi.Timestamp = w.Timestamp.Unix()
	}
	return wi, true
}

func toDirectedAttrs(a profile.DirectionAttrs) model.DirectedWayAttributes {
	return model.DirectedWayAttributes{Enabled: a.Enabled, SpeedKPH: a.SpeedKPH, Duration: a.Duration}
}

func toNameQuadruple(n profile.NameQuadruple) model.NameQuadruple {
	return model.NameQuadruple{Name: n.Name, Destinations: n.Destinations, Pronunciation: n.Pronunciation, Ref: n.Ref}
}
