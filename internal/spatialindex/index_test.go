package spatialindex

import (
	"path/filepath"
	"testing"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

func squareRing(minX, minY, maxX, maxY float64) feature.Polygon {
	return feature.Polygon{
		{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY}, {X: maxX, Y: minY},
	}
}

func buildFixtureIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "features.bin")

	recs := []*feature.Record{
		{
			ObjectID: 1,
			Geometry: feature.Geometry{
				Type:   feature.Area,
				Center: feature.Coord{X: 5, Y: 5},
				Rings:  []feature.Polygon{squareRing(0, 0, 10, 10)},
			},
		},
		{
			ObjectID: 2,
			Geometry: feature.Geometry{Type: feature.Point, Center: feature.Coord{X: 5, Y: 5}},
			House:    "5",
		},
	}
	if err := feature.WriteFile(path, recs); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	idx, err := Build(path, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestCandidatesAtInsidePolygon(t *testing.T) {
	idx := buildFixtureIndex(t)

	ids := idx.CandidatesAt(feature.Coord{X: 5, Y: 5})
	if len(ids) != 2 {
		t.Fatalf("candidates at (5,5) = %v, want 2 entries", ids)
	}

	ids = idx.CandidatesAt(feature.Coord{X: 50, Y: 50})
	for _, id := range ids {
		if id == feature.ObjectID(1) {
			t.Fatalf("building 1 should not cover (50,50)")
		}
	}
}

type fakeKV struct {
	values map[feature.ObjectID]address.JSON
}

func (f fakeKV) Find(id feature.ObjectID) (address.JSON, bool) {
	v, ok := f.values[id]
	return v, ok
}

func TestFindFirstAppliesPredicateInIndexOrder(t *testing.T) {
	idx := buildFixtureIndex(t)

	kv := fakeKV{values: map[feature.ObjectID]address.JSON{
		feature.ObjectID(1): {"properties": map[string]interface{}{"locales": map[string]interface{}{
			"default": map[string]interface{}{"address": map[string]interface{}{}},
		}}},
	}}

	id, ok := idx.FindFirst(feature.Coord{X: 5, Y: 5}, kv, func(j address.JSON) bool {
		return !address.HasBuilding(j)
	})
	if !ok {
		t.Fatalf("expected a match")
	}
	if id != feature.ObjectID(1) {
		t.Errorf("FindFirst = %v, want building 1 (the only indexed id with a KV entry)", id)
	}
}

func TestFindFirstNoMatch(t *testing.T) {
	idx := buildFixtureIndex(t)
	kv := fakeKV{values: map[feature.ObjectID]address.JSON{}}

	_, ok := idx.FindFirst(feature.Coord{X: 5, Y: 5}, kv, func(address.JSON) bool { return true })
	if ok {
		t.Fatalf("expected no match when nothing has a KV entry")
	}
}
