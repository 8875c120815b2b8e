// Package regions implements the regions lookup (C3, spec.md §4.3): given
// a point, return the deepest administrative region containing it. The
// region hierarchy itself (its spatial index and its KV of JSON
// descriptors) is produced by an external generator (spec.md §1, §6.2);
// this package only reads what that generator produced and joins the two
// files together.
//
// Grounded on pkg/s57/index.go's ChartIndex (an rtreego.Rtree over
// metadata entries) for the spatial half, and internal/kvstore for the
// textual-JSON half, since spec.md never specifies a distinct file format
// for the regions generator's output beyond "a spatial index" and "a KV" —
// reusing this module's own feature framing and KV line format for them is
// the simplest concrete choice that keeps every on-disk format in one
// idiom.
package regions

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
	"github.com/omaps/geoobjectsgen/internal/kvstore"
)

// Lookup answers find_deepest queries against a loaded regions hierarchy.
// It is read-only after Open and therefore safe for concurrent use by
// pass 1 without any locking of its own (spec.md §4.3).
type Lookup struct {
	rtree *rtreego.Rtree
	kv    map[feature.ObjectID]address.JSON
}

type regionEntry struct {
	id    feature.ObjectID
	box   rtreego.Rect
	rings []feature.Polygon
}

func (e *regionEntry) Bounds() rtreego.Rect { return e.box }

// Open loads the regions spatial index (a feature-framed file of Area
// records, one per region polygon, keyed by the same object id used in
// kvPath) and the regions KV (this module's line format, spec.md §6.6),
// and returns a handle joining the two. Open reads kvPath entirely into
// memory and indexPath once to build the R-tree; both are expected to be
// small relative to the geo-objects feature file.
func Open(indexPath, kvPath string) (*Lookup, error) {
	kv, err := kvstore.ReadFile(kvPath)
	if err != nil {
		return nil, fmt.Errorf("load regions kv: %w", err)
	}

	recs, err := feature.ReadAll(indexPath)
	if err != nil {
		return nil, fmt.Errorf("load regions spatial index: %w", err)
	}

	rtree := rtreego.NewTree(2, 25, 50)
	for _, rec := range recs {
		if rec.Geometry.Type != feature.Area || len(rec.Geometry.Rings) == 0 {
			continue
		}
		box, err := boundsOf(rec.Geometry.Rings)
		if err != nil {
			continue
		}
		rtree.Insert(&regionEntry{id: rec.ObjectID, box: box, rings: rec.Geometry.Rings})
	}

	return &Lookup{rtree: rtree, kv: kv}, nil
}

// FindDeepest returns the deepest region containing pt: among every region
// whose polygon covers pt, the one with the largest properties.admin_level
// in its JSON descriptor wins; a region missing an admin level is treated
// as shallower than any region that has one (spec.md §4.3).
func (l *Lookup) FindDeepest(pt feature.Coord) (feature.ObjectID, address.JSON, bool) {
	query, _ := rtreego.NewRect(rtreego.Point{pt.X, pt.Y}, []float64{1e-9, 1e-9})
	hits := l.rtree.SearchIntersect(query)

	var (
		bestID    feature.ObjectID
		bestJSON  address.JSON
		bestLevel int
		found     bool
	)
	for _, hit := range hits {
		e := hit.(*regionEntry)
		if !coveredByRings(pt, e.rings) {
			continue
		}
		j, ok := l.kv[e.id]
		if !ok {
			continue
		}
		level, _ := address.AdminLevel(j)
		if !found || level > bestLevel {
			bestID, bestJSON, bestLevel, found = e.id, j, level, true
		}
	}
	return bestID, bestJSON, found
}

func boundsOf(rings []feature.Polygon) (rtreego.Rect, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, ring := range rings {
		for _, c := range ring {
			if c.X < minX {
				minX = c.X
			}
			if c.Y < minY {
				minY = c.Y
			}
			if c.X > maxX {
				maxX = c.X
			}
			if c.Y > maxY {
				maxY = c.Y
			}
		}
	}
	lx, ly := maxX-minX, maxY-minY
	if lx <= 0 {
		lx = 1e-6
	}
	if ly <= 0 {
		ly = 1e-6
	}
	return rtreego.NewRect(rtreego.Point{minX, minY}, []float64{lx, ly})
}

// coveredByRings applies the same outer-ring/holes ray-casting test
// spatialindex uses, duplicated here in miniature rather than imported
// since regions has no other dependency on that package and the test is a
// handful of lines.
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
