package spatial

import (
	"testing"

	"github.com/LdDl/mapextract/internal/model"
	"github.com/LdDl/mapextract/internal/xerrors"
)

func gridCoords(n int) []model.Coordinate {
	coords := make([]model.Coordinate, n)
	for i := range coords {
		coords[i] = model.FromDegrees(float64(i%50)*0.01, float64(i/50)*0.01)
	}
	return coords
}

func TestBuildPacksIntoExpectedLeafCount(t *testing.T) {
	const n = 500
	coords := gridCoords(n + 1)
	segments := make([]model.EdgeBasedNodeSegment, n)
	for i := 0; i < n; i++ {
		segments[i] = model.EdgeBasedNodeSegment{
			ForwardID: model.EdgeBasedNodeID(i), ReverseID: model.InvalidEdgeBasedNodeID,
			UIndex: model.InternalNodeID(i), VIndex: model.InternalNodeID(i + 1),
			IsStartpoint: true,
		}
	}

	idx, err := Build(coords, segments, 128, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := len(idx.Pages), 4; got != want { // ceil(500/128) == 4
		t.Fatalf("got %d leaf pages, want %d", got, want)
	}
	total := 0
	for _, p := range idx.Pages {
		total += len(p)
	}
	if total != n {
		t.Fatalf("got %d total segments across pages, want %d", total, n)
	}
	if idx.Tree.Size() != len(idx.Pages) {
		t.Fatalf("got %d tree entries, want one per page (%d)", idx.Tree.Size(), len(idx.Pages))
	}
}

func TestBuildFiltersToStartpointsOnly(t *testing.T) {
	coords := gridCoords(3)
	segments := []model.EdgeBasedNodeSegment{
		{UIndex: 0, VIndex: 1, IsStartpoint: true, ReverseID: model.InvalidEdgeBasedNodeID},
		{UIndex: 1, VIndex: 2, IsStartpoint: false, ReverseID: model.InvalidEdgeBasedNodeID},
	}
	idx, err := Build(coords, segments, 128, 4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	total := 0
	for _, p := range idx.Pages {
		total += len(p)
	}
	if total != 1 {
		t.Fatalf("got %d segments indexed, want 1 (non-startpoint excluded)", total)
	}
}

func TestBuildFailsWhenNoStartpoints(t *testing.T) {
	coords := gridCoords(2)
	segments := []model.EdgeBasedNodeSegment{
		{UIndex: 0, VIndex: 1, IsStartpoint: false, ReverseID: model.InvalidEdgeBasedNodeID},
	}
	_, err := Build(coords, segments, 128, 4)
	if err == nil || !xerrors.As(err, xerrors.EmptyIndex) {
		t.Fatalf("expected an EmptyIndex error, got %v", err)
	}
}
