package serialize

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/mapextract/internal/edgegraph"
	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/spatial"
)

func readFingerprint(t *testing.T, path string) uint64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var fp uint64
	require.NoError(t, binary.Read(bufio.NewReader(f), order, &fp))
	return fp
}

func smallGraph() *model.NodeBasedGraph {
	g := model.NewNodeBasedGraph(2)
	g.Coords[0] = model.FromDegrees(30.0, 50.0)
	g.Coords[1] = model.FromDegrees(30.01, 50.0)
	g.SourceNodeIDs[0] = model.NodeID(100)
	g.SourceNodeIDs[1] = model.NodeID(101)
	ann := g.InternAnnotation(model.EdgeAnnotation{ClassMask: 1})
	g.AddEdge(0, model.NodeBasedEdge{Target: 1, AnnotationID: ann, GeometryRef: -1, Weight: 5, Duration: 3, LengthMeters: 11})
	g.AddEdge(1, model.NodeBasedEdge{Target: 0, AnnotationID: ann, GeometryRef: -1, Weight: 5, Duration: 3, LengthMeters: 11})
	return g
}

func TestWriteTimestampRoundTrips(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	require.NoError(t, WriteTimestamp(prefix, "2026-08-03T00:00:00Z"))
	path := prefix + ".timestamp"
	assert.FileExists(t, path)
	assert.Equal(t, fingerprint(SchemaVersion), readFingerprint(t, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// fingerprint (8 bytes) + u64 length, then the timestamp bytes.
	assert.Equal(t, "2026-08-03T00:00:00Z", string(data[16:]))
	assert.NoFileExists(t, path+".tmp", "temp file should not survive a successful write")
}

func TestWriteNBGNodesAndCNBG(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	g := smallGraph()

	require.NoError(t, WriteNBGNodes(prefix, g))
	require.NoError(t, WriteCNBG(prefix, g))
	for _, suffix := range []string{".nbg_nodes", ".cnbg"} {
		assert.FileExists(t, prefix+suffix)
	}
}

func TestWritePropertiesEncodesYAML(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	props := profile.ProfileProperties{"name": "test-profile", "weight_name": "duration"}
	require.NoError(t, WriteProperties(prefix, props))
	data, err := os.ReadFile(prefix + ".properties")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(data), 8, "expected at least a fingerprint's worth of bytes")
	assert.Contains(t, string(data), "name: test-profile")
}

func TestWriteRestrictionsHandlesWayRestriction(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	rs := []model.TurnRestriction{
		{
			FromWay: 1, ToWay: 3, ViaWays: []model.WayID{2},
			IsWayRestriction: true, Kind: model.RestrictionOnly,
			RelationID: 42, ViaNode: model.InvalidInternalNodeID,
			FromEdge: model.InvalidEdgeID, ToEdge: model.InvalidEdgeID,
		},
	}
	require.NoError(t, WriteRestrictions(prefix, rs))
	assert.FileExists(t, prefix+".restrictions")
}

func TestWriteTurnLanesWritesEmptyTld(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	eg := &edgegraph.Graph{Nodes: []model.EdgeBasedNode{{LaneDescriptionID: 7}}}
	require.NoError(t, WriteTurnLanes(prefix, eg))
	tldInfo, err := os.Stat(prefix + ".tld")
	require.NoError(t, err)
	// fingerprint (8 bytes) + a u64 zero count, nothing else.
	assert.EqualValues(t, 16, tldInfo.Size(), "expected an empty .tld stub of 16 bytes")
}

func TestWriteIntersectionDataOneEntryPerIncomingEdge(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	g := smallGraph()
	require.NoError(t, WriteIntersectionData(prefix, g))
	assert.FileExists(t, prefix+".icd")
	icdInfo, err := os.Stat(prefix + ".icd")
	require.NoError(t, err)
	// fingerprint (8) + u64 node count (8) + 2 nodes x (u32 offset, u32
	// count) (16) + 2 incoming edges x (f64 bearing, u32 class) (24).
	assert.EqualValues(t, 56, icdInfo.Size())
}

func TestWriteSpatialIndexSkipsWhenNil(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	require.NoError(t, WriteSpatialIndex(prefix, smallGraph(), nil))
	assert.NoFileExists(t, prefix+".ramIndex", "expected no .ramIndex when the spatial index is nil")
}

func TestWriteSpatialIndexWritesOnePageEntry(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "region")
	g := smallGraph()
	segments := []model.EdgeBasedNodeSegment{
		{ForwardID: 0, ReverseID: model.InvalidEdgeBasedNodeID, UIndex: 0, VIndex: 1, IsStartpoint: true},
	}
	idx, err := spatial.Build(g.Coords, segments, 128, 4)
	require.NoError(t, err)
	require.NoError(t, WriteSpatialIndex(prefix, g, idx))
	for _, suffix := range []string{".ramIndex", ".fileIndex"} {
		assert.FileExists(t, prefix+suffix)
	}
	ramInfo, err := os.Stat(prefix + ".ramIndex")
	require.NoError(t, err)
	// fingerprint (8) + u64 page count (8) + one page's 4 x f64 bbox (32).
	assert.EqualValues(t, 48, ramInfo.Size())
}

func TestFlatEdgeBasedNodeIDMatchesAllocationOrder(t *testing.T) {
	g := model.NewNodeBasedGraph(3)
	g.AddEdge(0, model.NodeBasedEdge{Target: 1})
	g.AddEdge(0, model.NodeBasedEdge{Target: 2})
	g.AddEdge(1, model.NodeBasedEdge{Target: 2})

	cases := []struct {
		u, idx int
		want   uint32
	}{
		{0, 0, 0},
		{0, 1, 1},
		{1, 0, 2},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, flatEdgeBasedNodeID(g, c.u, c.idx))
	}
}
