package pipeline

import (
	"fmt"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// runPass4 is C9 (spec.md §4.9): for each POI, find an inheritable address
// by the two-tier fallback the original's FindHousePoi implements — first
// a nearby housed object via find_first, then a paired building's point —
// and, on success, compose and insert a POI descriptor plus a line in the
// POI-id side stream.
func runPass4(path, poiIDsPath string, deps *Deps) error {
	sink, err := openPOISink(poiIDsPath)
	if err != nil {
		return err
	}
	progress := newProgressCounter(deps.logger(), "pass4", deps.ProgressEvery)

	scanErr := feature.ForEachParallel(path, deps.Threads, func(rec *feature.Record, _ int64) error {
		defer progress.Tick()

		if !deps.Classifier.IsPOI(rec) || deps.Classifier.IsBuilding(rec) || deps.Classifier.HasHouse(rec) {
			return nil
		}

		inherited, ok := findInheritableAddress(rec, deps)
		if !ok {
			deps.logger().Warn("poi found no address donor", "poi", rec.ObjectID.Dref())
			return nil
		}

		composed, err := address.ComposePOI(rec, inherited)
		if err != nil {
			return err
		}
		if err := deps.KV.Insert(rec.ObjectID, composed); err != nil {
			return err
		}
		return sink.Append(rec.ObjectID)
	})

	closeErr := sink.Close()
	if scanErr != nil {
		return scanErr
	}
	if closeErr != nil {
		return fmt.Errorf("close poi id sink: %w", closeErr)
	}
	return nil
}

// findInheritableAddress implements spec.md §4.9's two steps in order:
// first a nearby housed object (find_first with has_building), then,
// failing that, a candidate building already paired with an address point
// whose KV entry can be inherited instead. That entry is the one pass 1
// composed for the point; pass 3 grafts the building's geometry onto the
// point's record in F, not onto its KV entry.
func findInheritableAddress(rec *feature.Record, deps *Deps) (address.JSON, bool) {
	pt := rec.KeyPoint()

	if houseID, ok := deps.Index.FindFirst(pt, deps.KV, address.HasBuilding); ok {
		if j, ok := deps.KV.Find(houseID); ok {
			return j, true
		}
	}

	for _, candidate := range deps.Index.CandidatesAt(pt) {
		point, paired := deps.Pairing.PointFor(candidate)
		if !paired {
			continue
		}
		if j, ok := deps.KV.Find(point); ok {
			return j, true
		}
	}
	return nil, false
}
