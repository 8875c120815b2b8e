// Package collab declares the interfaces the core consumes from its
// external collaborators (spec.md §6): the regions generator, the generic
// locality-index builder, and the country-specific feature classifiers.
// None of these are implemented here beyond small test fixtures — the real
// implementations are out of scope for this module (spec.md §1).
package collab

import (
	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// RegionsLookup answers "what is the deepest region containing this point"
// (spec.md §4.3/§6.2). internal/regions.Lookup is the concrete
// implementation used in production; this interface lets the pipeline
// depend on the query shape instead of that package directly.
type RegionsLookup interface {
	FindDeepest(pt feature.Coord) (regionID feature.ObjectID, regionJSON address.JSON, ok bool)
}

// LocalityIndexBuilder builds a generic locality spatial index from a
// features data file (spec.md §6.3). internal/spatialindex.Build already
// performs this in-process for C4 itself; this interface exists for the
// cases spec.md describes as calling out to an external builder (the
// regions generator's own spatial index construction), which this module
// never needs to invoke and therefore never implements.
type LocalityIndexBuilder interface {
	Build(featuresDataFile, outIndexFile string) error
}

// Classifier owns the policy decisions spec.md §6.4 assigns to an external,
// country-specific classifier: what counts as a building, what counts as
// housed, what counts as a POI.
type Classifier interface {
	IsBuilding(rec *feature.Record) bool
	HasHouse(rec *feature.Record) bool
	IsPOI(rec *feature.Record) bool
}

// FuncClassifier adapts three predicate functions into a Classifier,
// convenient for tests and for small scripted classifiers that don't need
// a dedicated type.
type FuncClassifier struct {
	IsBuildingFunc func(*feature.Record) bool
	HasHouseFunc   func(*feature.Record) bool
	IsPOIFunc      func(*feature.Record) bool
}

func (f FuncClassifier) IsBuilding(rec *feature.Record) bool { return f.IsBuildingFunc(rec) }
func (f FuncClassifier) HasHouse(rec *feature.Record) bool   { return f.HasHouseFunc(rec) }
func (f FuncClassifier) IsPOI(rec *feature.Record) bool      { return f.IsPOIFunc(rec) }

// DefaultClassifier implements the "typical meanings" spec.md §4.6 sketches
// for is_building/has_house, for callers (tests, the CLI default) that
// don't plug in a real country-specific classifier: a record is a building
// iff its geometry is Area, housed iff House is non-empty, and a POI iff
// neither of those holds and it carries at least one name.
func DefaultClassifier() Classifier {
	return FuncClassifier{
		IsBuildingFunc: func(rec *feature.Record) bool { return rec.Geometry.Type == feature.Area },
		HasHouseFunc:   func(rec *feature.Record) bool { return rec.House != "" },
		IsPOIFunc: func(rec *feature.Record) bool {
			return rec.Geometry.Type != feature.Area && rec.House == "" && len(rec.Names) > 0
		},
	}
}
