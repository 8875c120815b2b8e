package pipeline

import "github.com/omaps/geoobjectsgen/internal/feature"

// runPass5 is C10 (spec.md §4.10): rewrite path dropping every unaddressed
// building that donated its geometry to a paired address point in pass 3,
// since keeping both would double-count the same physical object.
func runPass5(path string, deps *Deps) error {
	return feature.Rewrite(path, deps.Threads, func(rec *feature.Record) (*feature.Record, bool) {
		if _, isPairedBuilding := deps.Pairing.PointFor(rec.ObjectID); isPairedBuilding {
			return nil, false
		}
		return rec, true
	})
}
