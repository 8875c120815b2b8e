package pipeline

import (
	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// runPass2 is C7 (spec.md §4.7): two concurrent scans of path building the
// pairing map P and geometry map G. The first scan requires the index
// built concurrently with pass 1 (deps.Index); the second only needs P
// from the first, so it runs as a second full scan rather than being
// folded into the first (the original performs these as two distinct
// passes for the same reason: G can only be populated for ids already
// known to be in P.buildings_to_points).
func runPass2(path string, deps *Deps) error {
	if err := runPass2Pairing(path, deps); err != nil {
		return err
	}
	return runPass2Geometry(path, deps)
}

func runPass2Pairing(path string, deps *Deps) error {
	progress := newProgressCounter(deps.logger(), "pass2-pairing", deps.ProgressEvery)

	return feature.ForEachParallel(path, deps.Threads, func(rec *feature.Record, _ int64) error {
		defer progress.Tick()

		if !deps.Classifier.HasHouse(rec) || rec.Geometry.Type != feature.Point {
			return nil
		}

		building, ok := deps.Index.FindFirst(rec.KeyPoint(), deps.KV, func(j address.JSON) bool {
			return !address.HasBuilding(j)
		})
		if !ok {
			return nil
		}

		deps.Pairing.Pair(rec.ObjectID, building)
		return nil
	})
}

func runPass2Geometry(path string, deps *Deps) error {
	progress := newProgressCounter(deps.logger(), "pass2-geometry", deps.ProgressEvery)

	return feature.ForEachParallel(path, deps.Threads, func(rec *feature.Record, _ int64) error {
		defer progress.Tick()

		if _, isPairedBuilding := deps.Pairing.PointFor(rec.ObjectID); !isPairedBuilding {
			return nil
		}
		if rec.Geometry.Type != feature.Area {
			return nil
		}
		deps.Geometry.Set(rec.ObjectID, rec.Geometry.Rings)
		return nil
	})
}
