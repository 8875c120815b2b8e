package regions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/omaps/geoobjectsgen/internal/feature"
)

func writeRegionsFixture(t *testing.T) (indexPath, kvPath string) {
	t.Helper()
	dir := t.TempDir()
	indexPath = filepath.Join(dir, "regions.bin")
	kvPath = filepath.Join(dir, "regions.kv")

	country := feature.Polygon{{X: 0, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 100}, {X: 100, Y: 0}}
	city := feature.Polygon{{X: 10, Y: 10}, {X: 10, Y: 20}, {X: 20, Y: 20}, {X: 20, Y: 10}}

	recs := []*feature.Record{
		{ObjectID: 1, Geometry: feature.Geometry{Type: feature.Area, Rings: []feature.Polygon{country}}},
		{ObjectID: 2, Geometry: feature.Geometry{Type: feature.Area, Rings: []feature.Polygon{city}}},
	}
	if err := feature.WriteFile(indexPath, recs); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	kv := "1\t" + `{"properties":{"admin_level":2,"locales":{"default":{"address":{}}}}}` + "\n" +
		"2\t" + `{"properties":{"admin_level":8,"locales":{"default":{"address":{}}}}}` + "\n"
	if err := os.WriteFile(kvPath, []byte(kv), 0o644); err != nil {
		t.Fatalf("write kv fixture: %v", err)
	}
	return indexPath, kvPath
}

func TestFindDeepestPicksHigherAdminLevel(t *testing.T) {
	indexPath, kvPath := writeRegionsFixture(t)
	lookup, err := Open(indexPath, kvPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	id, j, ok := lookup.FindDeepest(feature.Coord{X: 15, Y: 15})
	if !ok {
		t.Fatalf("expected a match inside both polygons")
	}
	if id != feature.ObjectID(2) {
		t.Errorf("FindDeepest = %v, want city region 2 (deeper admin level)", id)
	}
	if j["properties"].(map[string]interface{})["admin_level"] != 8.0 {
		t.Errorf("unexpected json for deepest region: %v", j)
	}
}

func TestFindDeepestOnlyCountryMatch(t *testing.T) {
	indexPath, kvPath := writeRegionsFixture(t)
	lookup, err := Open(indexPath, kvPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	id, _, ok := lookup.FindDeepest(feature.Coord{X: 50, Y: 50})
	if !ok || id != feature.ObjectID(1) {
		t.Errorf("FindDeepest(50,50) = %v, %v; want country region 1", id, ok)
	}
}

func TestFindDeepestNoRegion(t *testing.T) {
	indexPath, kvPath := writeRegionsFixture(t)
	lookup, err := Open(indexPath, kvPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, _, ok := lookup.FindDeepest(feature.Coord{X: 1000, Y: 1000})
	if ok {
		t.Errorf("expected no region far outside every polygon")
	}
}
