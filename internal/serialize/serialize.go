// Package serialize implements the Output serializer (C12, spec.md
// §4.8/§6): every artifact is written to a temp file and renamed into
// place (atomic commit), prefixed by a 64-bit fingerprint (magic +
// schema version) so a later run can detect a stale or corrupt file
// before trusting it. Grounded on the teacher's own binary-layout
// discipline in network_node_macroscopic.go/network_link.go (fixed-size
// records, explicit byte order) generalized from the teacher's
// in-process-only structures into the little-endian, fingerprinted,
// atomically-committed file formats spec.md §6 lists.
package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/LdDl/mapextract/internal/edgegraph"
	"github.com/LdDl/mapextract/internal/geo"
	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/spatial"
	"github.com/LdDl/mapextract/internal/xerrors"
)

// SchemaVersion is bumped whenever any artifact's on-disk layout changes.
const SchemaVersion uint16 = 1

const fingerprintMagic uint32 = 0x4D58504D // "MXPM"

func fingerprint(version uint16) uint64 {
	return uint64(fingerprintMagic)<<32 | uint64(version)<<16
}

var order = binary.LittleEndian

// atomicWrite writes to path+".tmp" via fn, fsyncs, then renames into
// place; on any failure the temp file is removed and nothing at path is
// touched (spec.md §4.8/§5 "partial output files are not committed").
func atomicWrite(path string, fn func(w *bufio.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return xerrors.Wrapf(xerrors.IOError, err, "creating %s", tmp)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.Wrapf(xerrors.IOError, err, "writing %s", path)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.Wrapf(xerrors.IOError, err, "flushing %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return xerrors.Wrapf(xerrors.IOError, err, "syncing %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return xerrors.Wrapf(xerrors.IOError, err, "closing %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return xerrors.Wrapf(xerrors.IOError, err, "committing %s", path)
	}
	return nil
}

func writeFingerprint(w io.Writer) error { return binary.Write(w, order, fingerprint(SchemaVersion)) }

func writeU32(w io.Writer, v uint32) error  { return binary.Write(w, order, v) }
func writeU64(w io.Writer, v uint64) error  { return binary.Write(w, order, v) }
func writeI32(w io.Writer, v int32) error   { return binary.Write(w, order, v) }
func writeI64(w io.Writer, v int64) error   { return binary.Write(w, order, v) }
func writeF64(w io.Writer, v float64) error { return binary.Write(w, order, v) }
func writeU8(w io.Writer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return binary.Write(w, order, b)
}
func writeBytesWithLen(w io.Writer, b []byte) error {
	if err := writeU64(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Artifacts bundles everything C12 needs to write the full output set
// for one extraction run.
type Artifacts struct {
	Timestamp string
	NodeGraph *model.NodeBasedGraph
	Names     *model.NameTable
	EdgeGraph *edgegraph.Graph
	Spatial   *spatial.Index
	Restrictions []model.TurnRestriction
	Properties   profile.ProfileProperties
}

// WriteAll writes every artifact in spec.md §6's table under the given
// output prefix (e.g. "/data/region" yields "/data/region.nbg_nodes" and
// so on). It stops at the first failure; whatever was already committed
// stays on disk (each file is independently fingerprinted, so a partial
// run is safe to inspect or retry over).
func WriteAll(prefix string, a Artifacts) error {
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		return xerrors.Wrap(xerrors.IOError, err, "creating output directory")
	}
	writers := []func() error{
		func() error { return WriteTimestamp(prefix, a.Timestamp) },
		func() error { return WriteNBGNodes(prefix, a.NodeGraph) },
		func() error { return WriteCNBG(prefix, a.NodeGraph) },
		func() error { return WriteGeometry(prefix, a.NodeGraph) },
		func() error { return WriteNames(prefix, a.Names) },
		func() error { return WriteEdgeBasedNodes(prefix, a.EdgeGraph) },
		func() error { return WriteEdgeBasedEdges(prefix, a.EdgeGraph) },
		func() error { return WriteEdgeBasedNodeWeights(prefix, a.EdgeGraph) },
		func() error { return WriteTurnPenalties(prefix, a.EdgeGraph) },
		func() error { return WriteCnbgToEbg(prefix, a.NodeGraph) },
		func() error { return WriteRestrictions(prefix, a.Restrictions) },
		func() error { return WriteProperties(prefix, a.Properties) },
		func() error { return WriteTurnLanes(prefix, a.EdgeGraph) },
		func() error { return WriteIntersectionData(prefix, a.NodeGraph) },
		func() error { return WriteSpatialIndex(prefix, a.NodeGraph, a.Spatial) },
	}
	for _, w := range writers {
		if err := w(); err != nil {
			return err
		}
	}
	return nil
}

// WriteTimestamp writes the ".timestamp" artifact: an ASCII string.
func WriteTimestamp(prefix, ts string) error {
	return atomicWrite(prefix+".timestamp", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		return writeBytesWithLen(w, []byte(ts))
	})
}

// WriteNBGNodes writes the ".nbg_nodes" artifact: coordinates plus
// source node-ids, one entry per junction node.
func WriteNBGNodes(prefix string, g *model.NodeBasedGraph) error {
	return atomicWrite(prefix+".nbg_nodes", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(g.NumNodes())); err != nil {
			return err
		}
		for i, c := range g.Coords {
			if err := writeI32(w, c.Lon); err != nil {
				return err
			}
			if err := writeI32(w, c.Lat); err != nil {
				return err
			}
			if err := writeI64(w, int64(g.SourceNodeIDs[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCNBG writes the ".cnbg" artifact: the simplified compressed
// node-based graph view spec.md §6 describes as a flat edge list plus
// coordinates (distinct from ".ebg_nodes"/".ebg", which carry the
// edge-based graph's full annotation set).
func WriteCNBG(prefix string, g *model.NodeBasedGraph) error {
	return atomicWrite(prefix+".cnbg", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		edgeCount := uint64(0)
		for _, edges := range g.Adjacency {
			edgeCount += uint64(len(edges))
		}
		if err := writeU64(w, edgeCount); err != nil {
			return err
		}
		if err := writeU64(w, uint64(g.NumNodes())); err != nil {
			return err
		}
		for u, edges := range g.Adjacency {
			for _, e := range edges {
				if err := writeU32(w, uint32(u)); err != nil {
					return err
				}
				if err := writeU32(w, uint32(e.Target)); err != nil {
					return err
				}
			}
		}
		for _, c := range g.Coords {
			if err := writeI32(w, c.Lon); err != nil {
				return err
			}
			if err := writeI32(w, c.Lat); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteGeometry writes the ".geometry" artifact: every compressed
// edge's folded interior points with their cumulative weight/duration.
func WriteGeometry(prefix string, g *model.NodeBasedGraph) error {
	return atomicWrite(prefix+".geometry", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(g.Compressed))); err != nil {
			return err
		}
		for _, ce := range g.Compressed {
			if err := writeU32(w, uint32(ce.Target)); err != nil {
				return err
			}
			if err := writeF64(w, ce.Weight); err != nil {
				return err
			}
			if err := writeF64(w, ce.Duration); err != nil {
				return err
			}
			if err := writeF64(w, ce.LengthMeters); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(ce.Geometry))); err != nil {
				return err
			}
			for _, pt := range ce.Geometry {
				if err := writeU32(w, uint32(pt.Node)); err != nil {
					return err
				}
				if err := writeF64(w, pt.CumulativeWeight); err != nil {
					return err
				}
				if err := writeF64(w, pt.CumulativeDuration); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteNames writes the ".names" artifact: the concatenated name blob
// plus its prefix-sum offset index.
func WriteNames(prefix string, names *model.NameTable) error {
	return atomicWrite(prefix+".names", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		offsets := names.Offsets()
		if err := writeU64(w, uint64(len(offsets))); err != nil {
			return err
		}
		for _, off := range offsets {
			if err := writeU32(w, off); err != nil {
				return err
			}
		}
		return writeBytesWithLen(w, names.Blob())
	})
}

// WriteEdgeBasedNodes writes the ".ebg_nodes" artifact: one annotation
// record per edge-based node.
func WriteEdgeBasedNodes(prefix string, eg *edgegraph.Graph) error {
	return atomicWrite(prefix+".ebg_nodes", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.Nodes))); err != nil {
			return err
		}
		for _, n := range eg.Nodes {
			if err := writeI32(w, int32(n.GeometryRef)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(n.U)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(n.V)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(n.NameID)); err != nil {
				return err
			}
			if err := writeU32(w, n.ClassMask); err != nil {
				return err
			}
			if err := writeU32(w, n.ComponentID); err != nil {
				return err
			}
			if err := writeU8(w, n.Tiny); err != nil {
				return err
			}
			if err := binary.Write(w, order, uint8(n.TravelMode)); err != nil {
				return err
			}
			if err := writeU32(w, n.LaneDescriptionID); err != nil {
				return err
			}
			if err := writeU8(w, n.Segregated); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEdgeBasedEdges writes the ".ebg" artifact: a u32 count followed
// by every allowed turn edge.
func WriteEdgeBasedEdges(prefix string, eg *edgegraph.Graph) error {
	return atomicWrite(prefix+".ebg", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(eg.Edges))); err != nil {
			return err
		}
		for _, e := range eg.Edges {
			if err := writeU32(w, uint32(e.Source)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(e.Target)); err != nil {
				return err
			}
			if err := writeF64(w, e.Weight); err != nil {
				return err
			}
			if err := writeF64(w, e.Duration); err != nil {
				return err
			}
			if err := writeI32(w, e.TurnWeightPenaltyIndex); err != nil {
				return err
			}
			if err := writeI32(w, e.TurnDurationPenaltyIndex); err != nil {
				return err
			}
			if err := writeU8(w, e.Forward); err != nil {
				return err
			}
			if err := writeU8(w, e.Backward); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEdgeBasedNodeWeights writes the ".enw" artifact: each edge-based
// node's own traversal weight, parallel to ".ebg_nodes".
func WriteEdgeBasedNodeWeights(prefix string, eg *edgegraph.Graph) error {
	return atomicWrite(prefix+".enw", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.Weights))); err != nil {
			return err
		}
		for _, wt := range eg.Weights {
			if err := writeF64(w, wt); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTurnPenalties writes the deduped ".turn_weight_penalties" and
// ".turn_duration_penalties" tables plus the shared
// ".turn_penalties_index" (one index per edge-based edge, since this
// pipeline always pairs a weight and duration penalty at the same
// index — see internal/edgegraph's penaltyInterner).
func WriteTurnPenalties(prefix string, eg *edgegraph.Graph) error {
	if err := atomicWrite(prefix+".turn_weight_penalties", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.WeightPenalties))); err != nil {
			return err
		}
		for _, v := range eg.WeightPenalties {
			if err := writeF64(w, v); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	if err := atomicWrite(prefix+".turn_duration_penalties", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.DurationPenalties))); err != nil {
			return err
		}
		for _, v := range eg.DurationPenalties {
			if err := writeF64(w, v); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return atomicWrite(prefix+".turn_penalties_index", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.Edges))); err != nil {
			return err
		}
		for _, e := range eg.Edges {
			if err := writeI32(w, e.TurnWeightPenaltyIndex); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCnbgToEbg writes the ".cnbg_to_ebg" artifact: for every directed
// compressed-nbg edge in the same (u, adjacency-slot) order WriteCNBG
// used, the EdgeBasedNodeID it was allocated (internal/edgegraph
// allocates exactly one per directed node-based edge, in that order).
func WriteCnbgToEbg(prefix string, g *model.NodeBasedGraph) error {
	return atomicWrite(prefix+".cnbg_to_ebg", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		var count uint64
		for _, edges := range g.Adjacency {
			count += uint64(len(edges))
		}
		if err := writeU64(w, count); err != nil {
			return err
		}
		for u := range g.Adjacency {
			for i := range g.Adjacency[u] {
				if err := writeU32(w, flatEdgeBasedNodeID(g, u, i)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// flatEdgeBasedNodeID recomputes the dense EdgeBasedNodeID a directed
// node-based edge at (u, idx) would have been assigned, by counting
// every edge that precedes it in adjacency order — the same order
// internal/edgegraph.allocateNodes walks.
func flatEdgeBasedNodeID(g *model.NodeBasedGraph, u, idx int) uint32 {
	var id uint32
	for v := 0; v < u; v++ {
		id += uint32(len(g.Adjacency[v]))
	}
	return id + uint32(idx)
}

// WriteRestrictions writes the ".restrictions" artifact: node and way
// turn restrictions, with their resolved edge/node references.
func WriteRestrictions(prefix string, restrictions []model.TurnRestriction) error {
	return atomicWrite(prefix+".restrictions", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(restrictions))); err != nil {
			return err
		}
		for _, r := range restrictions {
			if err := writeU8(w, r.IsWayRestriction); err != nil {
				return err
			}
			if err := writeI64(w, int64(r.FromWay)); err != nil {
				return err
			}
			if err := writeI64(w, int64(r.ToWay)); err != nil {
				return err
			}
			if err := writeU8(w, r.Kind == model.RestrictionOnly); err != nil {
				return err
			}
			if err := writeI64(w, int64(r.RelationID)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(r.ViaNode)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(r.FromEdge)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(r.ToEdge)); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(r.ViaWays))); err != nil {
				return err
			}
			for _, vw := range r.ViaWays {
				if err := writeI64(w, int64(vw)); err != nil {
					return err
				}
			}
			hasCondition := r.Condition != nil
			if err := writeU8(w, hasCondition); err != nil {
				return err
			}
			if hasCondition {
				if err := writeBytesWithLen(w, []byte(r.Condition.Raw)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteProperties writes the ".properties" artifact: the profile's
// free-form property bag, YAML-encoded (this module already depends on
// gopkg.in/yaml.v3 for configuration, so the on-disk properties format
// reuses it rather than reaching for encoding/json).
func WriteProperties(prefix string, props profile.ProfileProperties) error {
	return atomicWrite(prefix+".properties", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		body, err := yaml.Marshal(props)
		if err != nil {
			return xerrors.Wrap(xerrors.IOError, err, "encoding profile properties")
		}
		return writeBytesWithLen(w, body)
	})
}

// WriteTurnLanes writes ".tls" (per edge-based node, its lane
// description offset) and ".tld" (the lane-description payload table).
// The profile adapter only ever exposes a per-way LaneDescriptionID
// (spec.md §6 process_way), never the description contents behind it —
// no component in this pipeline parses turn:lanes into mask data — so
// ".tld" is written as a schema-valid, empty table rather than
// fabricated content; see DESIGN.md.
func WriteTurnLanes(prefix string, eg *edgegraph.Graph) error {
	if err := atomicWrite(prefix+".tls", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(eg.Nodes))); err != nil {
			return err
		}
		for _, n := range eg.Nodes {
			if err := writeU32(w, n.LaneDescriptionID); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return atomicWrite(prefix+".tld", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		return writeU64(w, 0)
	})
}

// WriteIntersectionData writes the ".icd" artifact: for each junction,
// the bearing and entry class-mask of every incoming edge, CSR-style
// (an offset table parallel to NumNodes, followed by the flat bearing/
// class arrays).
func WriteIntersectionData(prefix string, g *model.NodeBasedGraph) error {
	type entry struct {
		bearing float64
		class   uint32
	}
	perNode := make([][]entry, g.NumNodes())
	for u, edges := range g.Adjacency {
		for _, e := range edges {
			ann := g.Annotations[e.AnnotationID]
			bearing := bearingDegrees(g.Coords[u], g.Coords[e.Target])
			perNode[e.Target] = append(perNode[e.Target], entry{bearing: bearing, class: ann.ClassMask})
		}
	}

	return atomicWrite(prefix+".icd", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(perNode))); err != nil {
			return err
		}
		offset := uint32(0)
		for _, entries := range perNode {
			if err := writeU32(w, offset); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(entries))); err != nil {
				return err
			}
			offset += uint32(len(entries))
		}
		for _, entries := range perNode {
			for _, e := range entries {
				if err := writeF64(w, e.bearing); err != nil {
					return err
				}
				if err := writeU32(w, e.class); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func bearingDegrees(from, to model.Coordinate) float64 {
	return geo.BearingRadians(from, to) * 180.0 / math.Pi
}

// WriteSpatialIndex writes ".ramIndex" (per-page bounding boxes — the
// inner-node MBR layer a consumer walks before touching the leaf file;
// rtreego.Rtree exposes no public API to walk its internal node tree,
// so the flat per-page-MBR array stands in for it, see DESIGN.md) and
// ".fileIndex" (the leaf pages themselves, sequential).
func WriteSpatialIndex(prefix string, g *model.NodeBasedGraph, idx *spatial.Index) error {
	if idx == nil {
		return nil
	}
	if err := atomicWrite(prefix+".ramIndex", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(idx.Pages))); err != nil {
			return err
		}
		for _, pg := range idx.Pages {
			minLon, minLat := +180.0, +90.0
			maxLon, maxLat := -180.0, -90.0
			for _, seg := range pg {
				for _, n := range [2]model.InternalNodeID{seg.UIndex, seg.VIndex} {
					lon, lat := g.Coords[n].ToDegrees()
					if lon < minLon {
						minLon = lon
					}
					if lon > maxLon {
						maxLon = lon
					}
					if lat < minLat {
						minLat = lat
					}
					if lat > maxLat {
						maxLat = lat
					}
				}
			}
			for _, v := range [4]float64{minLon, minLat, maxLon, maxLat} {
				if err := writeF64(w, v); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return atomicWrite(prefix+".fileIndex", func(w *bufio.Writer) error {
		if err := writeFingerprint(w); err != nil {
			return err
		}
		if err := writeU64(w, uint64(len(idx.Pages))); err != nil {
			return err
		}
		for _, pg := range idx.Pages {
			if err := writeU32(w, uint32(len(pg))); err != nil {
				return err
			}
			for _, seg := range pg {
				if err := writeU32(w, uint32(seg.ForwardID)); err != nil {
					return err
				}
				if err := writeU32(w, uint32(seg.ReverseID)); err != nil {
					return err
				}
				if err := writeU32(w, uint32(seg.UIndex)); err != nil {
					return err
				}
				if err := writeU32(w, uint32(seg.VIndex)); err != nil {
					return err
				}
				if err := writeU8(w, seg.IsStartpoint); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

