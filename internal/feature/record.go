// Package feature defines the geo-objects intermediate feature record and
// the stream reader/writer that passes 1-5 operate over.
package feature

import (
	"fmt"
	"sort"
	"strconv"
)

// ObjectID is a globally unique identifier for a feature or region within a
// generation run. Identity is by value.
type ObjectID uint64

// Dref returns the textual back-reference encoding used for
// properties.dref and for the output KV sink's first column.
func (id ObjectID) Dref() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ObjectID) String() string {
	return id.Dref()
}

// ParseObjectID parses the textual dref encoding produced by Dref.
func ParseObjectID(s string) (ObjectID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse object id %q: %w", s, err)
	}
	return ObjectID(v), nil
}

// GeometryType classifies a feature's spatial representation.
type GeometryType uint8

const (
	Point GeometryType = iota
	Line
	Area
)

func (t GeometryType) String() string {
	switch t {
	case Point:
		return "Point"
	case Line:
		return "Line"
	case Area:
		return "Area"
	default:
		return "Unknown"
	}
}

// Coord is a coordinate pair in spherical-projected space (see
// mercator.go for the projected <-> lon/lat transform).
type Coord struct {
	X, Y float64
}

// Polygon is a single ring of projected coordinates.
type Polygon []Coord

// Geometry is a feature's spatial representation. Rings is only populated
// when Type == Area; it may hold more than one ring (outer boundary plus
// holes), mirroring the original generator's AddPolygon-per-ring model.
type Geometry struct {
	Type   GeometryType
	Center Coord
	Rings  []Polygon
}

// Record is one OSM-derived feature as consumed by the enrichment pipeline.
// It is treated as opaque data by callers outside this package; classifiers
// and the address composer read its exported fields directly.
type Record struct {
	ObjectID ObjectID
	Geometry Geometry
	Street   string
	House    string
	// Names maps a locale code ("default", "en", "ru", ...) to the
	// localized name. A feature with no name has an empty or nil map.
	Names map[string]string
}

// KeyPoint returns the feature's representative point: the polygon's
// center for Area geometry, or Geometry.Center for Point/Line geometry.
func (r *Record) KeyPoint() Coord {
	return r.Geometry.Center
}

// SortedLocales returns the record's locale codes in a stable order, for
// deterministic iteration when composing JSON.
func (r *Record) SortedLocales() []string {
	locales := make([]string, 0, len(r.Names))
	for locale := range r.Names {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	return locales
}

// GraftPolygon replaces the record's geometry with the given polygon rings,
// switching its geometry type to Area. This reproduces the original
// generator's reset-then-rebuild order for AddBuildingGeometriesToAddressPoints:
// the center is cleared before the new rings are attached, then recomputed
// from them, rather than merely overwriting the Rings field in place.
func (r *Record) GraftPolygon(rings []Polygon) {
	r.Geometry.Center = Coord{}
	r.Geometry.Rings = nil
	r.Geometry.Type = Area
	r.Geometry.Rings = append(r.Geometry.Rings, rings...)
	r.Geometry.Center = ringsCentroid(r.Geometry.Rings)
}

// ringsCentroid approximates a polygon's representative point as the
// centroid of its outer ring's vertices. Good enough for key-point lookups
// against the regions and spatial indexes; it does not need to be the
// area centroid.
func ringsCentroid(rings []Polygon) Coord {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return Coord{}
	}
	outer := rings[0]
	var sx, sy float64
	for _, c := range outer {
		sx += c.X
		sy += c.Y
	}
	n := float64(len(outer))
	return Coord{X: sx / n, Y: sy / n}
}
