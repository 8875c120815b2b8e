package spatialindex

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/omaps/geoobjectsgen/internal/feature"
)

// CandidatesAt returns every object id whose geometry covers pt: Area
// entries are refined by an exact point-in-polygon test beyond the R-tree's
// bounding-box match, Point entries are returned whenever pt falls within
// their epsilon box. Results are ordered by insertion (build) order, the
// "index order" FindFirst walks (spec.md §4.4).
func (idx *Index) CandidatesAt(pt feature.Coord) []feature.ObjectID {
	query := rtreego.Point{pt.X, pt.Y}
	degenerate, _ := rtreego.NewRect(query, []float64{1e-9, 1e-9})

	hits := idx.rtree.SearchIntersect(degenerate)
	ids := make([]feature.ObjectID, 0, len(hits))
	for _, hit := range hits {
		e := hit.(*entry)
		if e.rings != nil && !coveredByRings(pt, e.rings) {
			continue
		}
		ids = append(ids, e.id)
	}

	sort.Slice(ids, func(i, j int) bool { return idx.order[ids[i]] < idx.order[ids[j]] })
	return ids
}

// FindFirst walks CandidatesAt's results in index order and returns the
// first whose current KV entry satisfies predicate (spec.md §4.4's
// find_first: the canonical use is the has_building predicate).
func (idx *Index) FindFirst(pt feature.Coord, kv KVLookup, predicate Predicate) (feature.ObjectID, bool) {
	for _, id := range idx.CandidatesAt(pt) {
		json, ok := kv.Find(id)
		if !ok {
			continue
		}
		if predicate(json) {
			return id, true
		}
	}
	return 0, false
}

// coveredByRings reports whether pt lies inside the outer ring of rings
// and outside every subsequent ring (treated as holes), using the standard
// ray-casting point-in-polygon test.
func coveredByRings(pt feature.Coord, rings []feature.Polygon) bool {
	if len(rings) == 0 {
		return false
	}
	if !pointInRing(pt, rings[0]) {
		return false
	}
	for _, hole := range rings[1:] {
		if pointInRing(pt, hole) {
			return false
		}
	}
	return true
}

func pointInRing(pt feature.Coord, ring feature.Polygon) bool {
	inside := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			xIntersect := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}
