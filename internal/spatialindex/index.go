// Package spatialindex builds and queries the geo-objects spatial index
// (C4, spec.md §4.4), grounded on pkg/s57/s57.go's spatialIndex/
// indexedFeature/buildSpatialIndex and pkg/s57/index.go's ChartIndex, both
// built on github.com/dhconnelly/rtreego.
package spatialindex

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// minBoxEpsilon gives point features a small non-zero footprint, since
// rtreego requires non-zero rectangle dimensions (mirrors indexedFeature's
// Bounds() in pkg/s57/s57.go).
const minBoxEpsilon = 1.0 // ~1m in spherical-Mercator units at low latitudes

// KVLookup is the subset of kvstore.Store the index needs for Predicate
// queries: the current JSON entry for an object, if any has been inserted
// this run (spec.md §4.4's find_first walks "its current KV entry").
type KVLookup interface {
	Find(id feature.ObjectID) (address.JSON, bool)
}

// Predicate filters spatial-index candidates by their current KV entry.
// The canonical predicate is address.HasBuilding's negation (spec.md §4.7)
// or address.HasBuilding itself (spec.md §4.9).
type Predicate func(address.JSON) bool

// Index answers spatial queries over the feature file it was built from.
// It is built once (Build) from the original F and remains valid for the
// rest of the run even after F is rewritten in passes 3 and 5, since
// object ids are stable identities independent of file content
// (spec.md §3's Lifecycle note).
type Index struct {
	rtree *rtreego.Rtree
	order map[feature.ObjectID]int // insertion order, for find_first's "index order" tie-break
}

type entry struct {
	id    feature.ObjectID
	box   rtreego.Rect
	point rtreego.Point
	rings []feature.Polygon // non-nil only for Area geometry; used for exact point-in-polygon refinement
}

func (e *entry) Bounds() rtreego.Rect { return e.box }

// Build streams path once (via feature.ForEachParallel) and inserts every
// non-Line feature's bounding box into an R-tree keyed by object id.
// Spec.md §4.4 describes this as (1) project each feature into a temp
// data file (2) hand that file to an external "build locality index"
// routine (3) memory-map the result; this implementation collapses those
// three steps into a single in-process build, the same way the teacher
// builds its own R-tree in-process in buildSpatialIndex rather than
// shelling out to an external indexer.
func Build(path string, numWorkers int) (*Index, error) {
	var (
		mu      sync.Mutex
		entries []*entry
		nextOrd int
	)

	err := feature.ForEachParallel(path, numWorkers, func(rec *feature.Record, offset int64) error {
		if rec.Geometry.Type == feature.Line {
			return nil
		}
		box, pt := bounds(rec)
		e := &entry{id: rec.ObjectID, box: box, point: pt}
		if rec.Geometry.Type == feature.Area {
			e.rings = rec.Geometry.Rings
		}

		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, &IndexBuildError{Err: err}
	}

	rtree := rtreego.NewTree(2, 25, 50)
	order := make(map[feature.ObjectID]int, len(entries))
	for _, e := range entries {
		rtree.Insert(e)
		order[e.id] = nextOrd
		nextOrd++
	}

	return &Index{rtree: rtree, order: order}, nil
}

// bounds computes an R-tree rectangle and representative point for rec:
// the polygon's vertex bounding box for Area geometry (point-in-polygon
// candidates are found via bounding-box overlap, then refined by
// CandidatesAt's ring test), or an epsilon-sized box around the key point
// for Point geometry (proximity candidates).
func bounds(rec *feature.Record) (rtreego.Rect, rtreego.Point) {
	c := rec.KeyPoint()
	pt := rtreego.Point{c.X, c.Y}

	if rec.Geometry.Type == feature.Area && len(rec.Geometry.Rings) > 0 {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, ring := range rec.Geometry.Rings {
			for _, v := range ring {
				minX = math.Min(minX, v.X)
				minY = math.Min(minY, v.Y)
				maxX = math.Max(maxX, v.X)
				maxY = math.Max(maxY, v.Y)
			}
		}
		box, _ := rtreego.NewRect(rtreego.Point{minX, minY}, lengthsOf(minX, minY, maxX, maxY))
		return box, pt
	}

	box, _ := rtreego.NewRect(
		rtreego.Point{c.X - minBoxEpsilon/2, c.Y - minBoxEpsilon/2},
		[]float64{minBoxEpsilon, minBoxEpsilon},
	)
	return box, pt
}

func lengthsOf(minX, minY, maxX, maxY float64) []float64 {
	lx, ly := maxX-minX, maxY-minY
	if lx < minBoxEpsilon {
		lx = minBoxEpsilon
	}
	if ly < minBoxEpsilon {
		ly = minBoxEpsilon
	}
	return []float64{lx, ly}
}

// IndexBuildError wraps any failure encountered while building the spatial
// index; spec.md §7 marks this fatal for the run.
type IndexBuildError struct{ Err error }

func (e *IndexBuildError) Error() string { return "build geo-objects spatial index: " + e.Err.Error() }
func (e *IndexBuildError) Unwrap() error { return e.Err }
