package pipeline

import (
	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// runPass1 is C6 (spec.md §4.6): for each building or housed feature,
// resolve its deepest region and insert a composed address into the KV.
// Features with no containing region are silently skipped (SkippedRecord,
// spec.md §7) — not an error.
func runPass1(path string, deps *Deps) error {
	progress := newProgressCounter(deps.logger(), "pass1", deps.ProgressEvery)

	return feature.ForEachParallel(path, deps.Threads, func(rec *feature.Record, _ int64) error {
		defer progress.Tick()

		if !deps.Classifier.IsBuilding(rec) && !deps.Classifier.HasHouse(rec) {
			return nil
		}

		regionID, regionJSON, ok := deps.Regions.FindDeepest(rec.KeyPoint())
		if !ok {
			return nil
		}

		composed, err := address.ComposeAddress(rec, regionID, regionJSON)
		if err != nil {
			return err
		}
		return deps.KV.Insert(rec.ObjectID, composed)
	})
}
