package pipeline

import "github.com/omaps/geoobjectsgen/internal/feature"

// runPass3 is C8 (spec.md §4.8): rewrite path, grafting each paired address
// point's geometry from its partner building. Every other record, and
// every paired point whose partner building never yielded a geometry
// (spec.md §3's G is only populated for Area-geometry buildings), is
// written through unchanged.
func runPass3(path string, deps *Deps) error {
	return feature.Rewrite(path, deps.Threads, func(rec *feature.Record) (*feature.Record, bool) {
		building, paired := deps.Pairing.BuildingFor(rec.ObjectID)
		if !paired {
			return rec, true
		}
		rings, hasGeometry := deps.Geometry.Get(building)
		if !hasGeometry {
			return rec, true
		}
		rec.GraftPolygon(rings)
		return rec, true
	})
}
