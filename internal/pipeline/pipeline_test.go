package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/collab"
	"github.com/omaps/geoobjectsgen/internal/feature"
	"github.com/omaps/geoobjectsgen/internal/kvstore"
	"github.com/omaps/geoobjectsgen/internal/pairing"
)

// staticRegions is a test fixture implementing collab.RegionsLookup over a
// single rectangular region, standing in for the external regions
// generator spec.md §1 places out of scope.
type staticRegions struct {
	id     feature.ObjectID
	json   address.JSON
	minX   float64
	minY   float64
	maxX   float64
	maxY   float64
	hasAny bool
}

func (r staticRegions) FindDeepest(pt feature.Coord) (feature.ObjectID, address.JSON, bool) {
	if !r.hasAny || pt.X < r.minX || pt.X > r.maxX || pt.Y < r.minY || pt.Y > r.maxY {
		return 0, nil, false
	}
	return r.id, r.json, true
}

func regionFixture() address.JSON {
	return address.JSON{
		"properties": map[string]interface{}{
			"locales": map[string]interface{}{
				"default": map[string]interface{}{"address": map[string]interface{}{}},
			},
		},
		"geometry": map[string]interface{}{"type": "Point", "coordinates": []interface{}{0.0, 0.0}},
	}
}

func square(minX, minY, maxX, maxY float64) feature.Polygon {
	return feature.Polygon{{X: minX, Y: minY}, {X: minX, Y: maxY}, {X: maxX, Y: maxY}, {X: maxX, Y: minY}}
}

func newTestDeps(t *testing.T, regions collab.RegionsLookup) (*Deps, func()) {
	t.Helper()
	dir := t.TempDir()
	kv, err := kvstore.Open(filepath.Join(dir, "kv.jsonl"))
	require.NoError(t, err)

	deps := &Deps{
		Classifier: collab.DefaultClassifier(),
		Regions:    regions,
		KV:         kv,
		Pairing:    pairing.NewMap(),
		Geometry:   pairing.NewGeometry(nil),
		Threads:    2,
	}
	return deps, func() { _ = kv.Flush() }
}

// TestScenarioLoneBuildingWithAddress mirrors spec.md §8's S1: a single
// area building with a house number inside a region gets one addressed
// KV entry.
func TestScenarioLoneBuildingWithAddress(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b1 := &feature.Record{
		ObjectID: 1,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
		House:    "10",
		Street:   "Main",
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b1}))

	regions := staticRegions{id: 42, json: regionFixture(), minX: -100, minY: -100, maxX: 100, maxY: 100, hasAny: true}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	err := Run(context.Background(), featuresPath, poiIDsPath, deps)
	require.NoError(t, err)

	require.Equal(t, 1, deps.KV.Size())
	j, ok := deps.KV.Find(feature.ObjectID(1))
	require.True(t, ok)
	addr := j["properties"].(map[string]interface{})["locales"].(map[string]interface{})["default"].(map[string]interface{})["address"].(map[string]interface{})
	require.Equal(t, "10", addr["building"])
	require.Equal(t, "Main", addr["street"])
	require.Equal(t, "42", j["properties"].(map[string]interface{})["dref"])
}

// TestScenarioAddresslessBuildingPairedWithPoint mirrors spec.md §8's S2:
// an addressless building paired with an interior address point leaves the
// point with an addressed KV entry and, in F, the building's grafted area
// geometry, and the building itself is dropped from F.
func TestScenarioAddresslessBuildingPairedWithPoint(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b2 := &feature.Record{
		ObjectID: 2,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
	}
	p2 := &feature.Record{
		ObjectID: 3,
		Geometry: feature.Geometry{Type: feature.Point, Center: feature.Coord{X: 5, Y: 5}},
		House:    "5",
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b2, p2}))

	regions := staticRegions{id: 42, json: regionFixture(), minX: -100, minY: -100, maxX: 100, maxY: 100, hasAny: true}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	err := Run(context.Background(), featuresPath, poiIDsPath, deps)
	require.NoError(t, err)

	// B2 itself also gets a pass-1 KV entry with a null building sentinel
	// (it satisfies is_building regardless of having no house number); this
	// is what lets pass 2 find it as a "no building yet" pairing candidate
	// in the first place. See DESIGN.md's note on spec.md §8's S2 for why
	// the scenario's "KV has one entry" describes the addressed result,
	// not literally every key ever inserted.
	j, ok := deps.KV.Find(feature.ObjectID(3))
	require.True(t, ok)
	require.True(t, address.HasBuilding(j))

	recs, err := feature.ReadAll(featuresPath)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NotEqual(t, feature.ObjectID(2), rec.ObjectID, "paired building should have been dropped in pass 5")
		if rec.ObjectID == feature.ObjectID(3) {
			require.Equal(t, feature.Area, rec.Geometry.Type, "paired point should carry grafted area geometry")
		}
	}
}

// TestScenarioNoRegionYieldsEmptyKV mirrors spec.md §8's S5.
func TestScenarioNoRegionYieldsEmptyKV(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b := &feature.Record{
		ObjectID: 1,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
		House:    "1",
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b}))

	regions := staticRegions{hasAny: false}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	err := Run(context.Background(), featuresPath, poiIDsPath, deps)
	require.NoError(t, err)
	require.Equal(t, 0, deps.KV.Size())
}

// TestScenarioPOIInheritsFromHousedNeighbor mirrors spec.md §8's S3: a POI
// inside an already-addressed building's polygon inherits that address
// directly (pass 4's step 1, no pairing fallback needed).
func TestScenarioPOIInheritsFromHousedNeighbor(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b3 := &feature.Record{
		ObjectID: 1,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
		House:    "7",
	}
	q3 := &feature.Record{
		ObjectID: 2,
		Geometry: feature.Geometry{Type: feature.Point, Center: feature.Coord{X: 3, Y: 3}},
		Names:    map[string]string{"default": "Cafe Q3"},
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b3, q3}))

	regions := staticRegions{id: 42, json: regionFixture(), minX: -100, minY: -100, maxX: 100, maxY: 100, hasAny: true}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	require.NoError(t, Run(context.Background(), featuresPath, poiIDsPath, deps))

	bj, ok := deps.KV.Find(feature.ObjectID(1))
	require.True(t, ok)
	require.True(t, address.HasBuilding(bj))

	qj, ok := deps.KV.Find(feature.ObjectID(2))
	require.True(t, ok)
	addr := qj["properties"].(map[string]interface{})["locales"].(map[string]interface{})["default"].(map[string]interface{})["address"].(map[string]interface{})
	require.Equal(t, "7", addr["building"], "poi should inherit the housed neighbor's building number")
	require.Equal(t, "Cafe Q3", qj["properties"].(map[string]interface{})["locales"].(map[string]interface{})["default"].(map[string]interface{})["name"])

	poiIDs, err := os.ReadFile(poiIDsPath)
	require.NoError(t, err)
	require.Contains(t, string(poiIDs), "2\n")
}

// TestScenarioPOIInheritsFromPairedBuilding mirrors spec.md §8's S4: a POI
// inside an addressless building's polygon, where the building has been
// paired with an address point, inherits that point's KV entry via pass 4's
// step 2 fallback.
func TestScenarioPOIInheritsFromPairedBuilding(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b2 := &feature.Record{
		ObjectID: 2,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
	}
	p2 := &feature.Record{
		ObjectID: 3,
		Geometry: feature.Geometry{Type: feature.Point, Center: feature.Coord{X: 5, Y: 5}},
		House:    "5",
	}
	q4 := &feature.Record{
		ObjectID: 4,
		Geometry: feature.Geometry{Type: feature.Point, Center: feature.Coord{X: 2, Y: 2}},
		Names:    map[string]string{"default": "Shop Q4"},
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b2, p2, q4}))

	regions := staticRegions{id: 42, json: regionFixture(), minX: -100, minY: -100, maxX: 100, maxY: 100, hasAny: true}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	require.NoError(t, Run(context.Background(), featuresPath, poiIDsPath, deps))

	pj, ok := deps.KV.Find(feature.ObjectID(3))
	require.True(t, ok)
	require.True(t, address.HasBuilding(pj))

	qj, ok := deps.KV.Find(feature.ObjectID(4))
	require.True(t, ok)
	addr := qj["properties"].(map[string]interface{})["locales"].(map[string]interface{})["default"].(map[string]interface{})["address"].(map[string]interface{})
	require.Equal(t, "5", addr["building"], "poi should inherit the paired point's building number")
}

// TestScenarioAddresslessBuildingUnpairedIsNotDropped mirrors spec.md §8's
// S6: an addressless building with no address point nearby is never paired,
// so pass 5 must not drop it from F, and (since it matches no region here)
// it never gets a KV entry either.
func TestScenarioAddresslessBuildingUnpairedIsNotDropped(t *testing.T) {
	dir := t.TempDir()
	featuresPath := filepath.Join(dir, "features.bin")
	poiIDsPath := filepath.Join(dir, "poi_ids.txt")

	b6 := &feature.Record{
		ObjectID: 6,
		Geometry: feature.Geometry{Type: feature.Area, Center: feature.Coord{X: 5, Y: 5}, Rings: []feature.Polygon{square(0, 0, 10, 10)}},
	}
	require.NoError(t, feature.WriteFile(featuresPath, []*feature.Record{b6}))

	regions := staticRegions{hasAny: false}
	deps, closeKV := newTestDeps(t, regions)
	defer closeKV()

	require.NoError(t, Run(context.Background(), featuresPath, poiIDsPath, deps))

	require.Equal(t, 0, deps.KV.Size())
	recs, err := feature.ReadAll(featuresPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, feature.ObjectID(6), recs[0].ObjectID)
}

func TestProgressCounterLogsAtBoundary(t *testing.T) {
	var logged bytes.Buffer
	p := newProgressCounter(slog.New(slog.NewTextHandler(&logged, nil)), "x", 3)
	for i := 0; i < 5; i++ {
		p.Tick()
	}
	require.EqualValues(t, 5, p.n.Load())
	require.Equal(t, 1, strings.Count(logged.String(), "msg=progress"), "only the 3rd tick should log")
	require.Contains(t, logged.String(), "count=3")
}
