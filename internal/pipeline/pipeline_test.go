package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/mapextract/internal/config"
	"github.com/LdDl/mapextract/internal/profile"
	"github.com/LdDl/mapextract/internal/source"
)

// fakeSource replays a fixed in-memory entity list, filtered by the
// requested kinds, so pipeline tests don't need a real .osm.pbf fixture
// on disk.
type fakeSource struct {
	entities []source.Entity
}

func (f *fakeSource) Header() source.Header { return source.Header{Generator: "test"} }

func (f *fakeSource) Stream(ctx context.Context, kinds ...source.EntityKind) (<-chan []source.Entity, <-chan error) {
	out := make(chan []source.Entity, 1)
	errc := make(chan error, 1)
	var buf []source.Entity
	for _, e := range f.entities {
		if len(kinds) == 0 || wantsKind(kinds, e.Kind) {
			buf = append(buf, e)
		}
	}
	go func() {
		defer close(out)
		defer close(errc)
		if len(buf) > 0 {
			select {
			case out <- buf:
			case <-ctx.Done():
			}
		}
	}()
	return out, errc
}

func wantsKind(kinds []source.EntityKind, k source.EntityKind) bool {
	for _, w := range kinds {
		if w == k {
			return true
		}
	}
	return false
}

var _ source.Source = (*fakeSource)(nil)

func threeNodeWay() []source.Entity {
	n := func(id int64, lon, lat float64, tags osm.Tags) source.Entity {
		return source.Entity{Kind: source.KindNode, Node: &osm.Node{
			ID: osm.NodeID(id), Lon: lon, Lat: lat, Tags: tags, Version: 1, Timestamp: time.Unix(0, 0),
		}}
	}
	way := source.Entity{Kind: source.KindWay, Way: &osm.Way{
		ID: osm.WayID(1),
		Nodes: osm.WayNodes{
			{ID: osm.NodeID(1)},
			{ID: osm.NodeID(2)},
			{ID: osm.NodeID(3)},
		},
		Tags:      osm.Tags{{Key: "highway", Value: "residential"}, {Key: "name", Value: "Test Street"}},
		Version:   1,
		Timestamp: time.Unix(0, 0),
	}}
	return []source.Entity{
		n(1, 30.0, 50.0, nil),
		n(2, 30.001, 50.0, nil),
		n(3, 30.002, 50.0, nil),
		way,
	}
}

func TestRunProducesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputPath = "fake"
	cfg.OutputPrefix = filepath.Join(dir, "region")
	cfg.RequestedThreads = 1

	src := &fakeSource{entities: threeNodeWay()}
	adapter := profile.NewStaticAdapter()

	result, err := Run(context.Background(), cfg, src, adapter)
	require.NoError(t, err)
	assert.NotZero(t, result.NodeGraph.NumNodes(), "expected a non-empty node-based graph")
	assert.NotEmpty(t, result.EdgeGraph.Nodes, "expected a non-empty edge-based graph")
	for _, suffix := range []string{".timestamp", ".nbg_nodes", ".ebg", ".ebg_nodes", ".properties", ".restrictions"} {
		assert.FileExists(t, cfg.OutputPrefix+suffix)
	}
}

func TestRunFailsWithNoRoutableWays(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputPath = "fake"
	cfg.OutputPrefix = filepath.Join(dir, "region")

	entities := []source.Entity{
		{Kind: source.KindNode, Node: &osm.Node{ID: osm.NodeID(1), Lon: 30, Lat: 50}},
		{Kind: source.KindNode, Node: &osm.Node{ID: osm.NodeID(2), Lon: 30.01, Lat: 50}},
		{Kind: source.KindWay, Way: &osm.Way{
			ID:    osm.WayID(1),
			Nodes: osm.WayNodes{{ID: osm.NodeID(1)}, {ID: osm.NodeID(2)}},
			Tags:  osm.Tags{{Key: "waterway", Value: "river"}},
		}},
	}
	src := &fakeSource{entities: entities}
	adapter := profile.NewStaticAdapter()

	_, err := Run(context.Background(), cfg, src, adapter)
	assert.Error(t, err, "expected an error when no way survives classification")
}

func TestToDirectedAttrsAndNameQuadrupleConvert(t *testing.T) {
	got := toDirectedAttrs(profile.DirectionAttrs{Enabled: true, SpeedKPH: 50, Duration: 3})
	assert.True(t, got.Enabled)
	assert.Equal(t, 50.0, got.SpeedKPH)
	assert.Equal(t, 3.0, got.Duration)

	q := toNameQuadruple(profile.NameQuadruple{Name: "Main St", Ref: "A1"})
	assert.Equal(t, "Main St", q.Name)
	assert.Equal(t, "A1", q.Ref)
}
