// Package pairing implements the cross-pass bookkeeping maps P and G
// (spec.md §4.6/§4.7): the inverse address-point<->building mapping used to
// graft addressless buildings' geometry onto address points, and the building-id to
// geometry map collected while scanning the same file.
package pairing

import (
	"log/slog"
	"sync"

	"github.com/omaps/geoobjectsgen/internal/feature"
)

// Map is the 1-to-1, concurrency-safe pairing between address points and
// the buildings they were matched to (spec.md §4.6's P). Both directions
// are "last writer wins" under concurrent inserts, matching
// NullBuildingsInfo's plain (unsynchronized in the original, mutex-guarded
// here) maps — ties are resolved by whichever worker writes last, a
// deliberate simplification spec.md §9 leaves as an accepted nondeterminism.
type Map struct {
	mu              sync.Mutex
	pointToBuilding map[feature.ObjectID]feature.ObjectID
	buildingToPoint map[feature.ObjectID]feature.ObjectID
}

// NewMap returns an empty pairing map.
func NewMap() *Map {
	return &Map{
		pointToBuilding: make(map[feature.ObjectID]feature.ObjectID),
		buildingToPoint: make(map[feature.ObjectID]feature.ObjectID),
	}
}

// Pair records that point is the address point matched to building,
// overwriting any earlier pairing either id held (last writer wins).
func (m *Map) Pair(point, building feature.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if oldBuilding, ok := m.pointToBuilding[point]; ok && oldBuilding != building {
		delete(m.buildingToPoint, oldBuilding)
	}
	if oldPoint, ok := m.buildingToPoint[building]; ok && oldPoint != point {
		delete(m.pointToBuilding, oldPoint)
	}
	m.pointToBuilding[point] = building
	m.buildingToPoint[building] = point
}

// BuildingFor returns the building paired with point, if any.
func (m *Map) BuildingFor(point feature.ObjectID) (feature.ObjectID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.pointToBuilding[point]
	return b, ok
}

// PointFor returns the address point paired with building, if any.
func (m *Map) PointFor(building feature.ObjectID) (feature.ObjectID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.buildingToPoint[building]
	return p, ok
}

// Len returns the number of point<->building pairs currently recorded.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pointToBuilding)
}

// Geometry is the building-id to polygon-rings map collected while scanning
// F for addressless buildings (spec.md §4.7's G). The first geometry seen
// for a building id wins; a later sighting of the same id is logged and
// dropped, mirroring GetBuildingsGeometry's "already have geometry, log and
// skip" behavior in the original.
type Geometry struct {
	mu    sync.Mutex
	rings map[feature.ObjectID][]feature.Polygon
	log   *slog.Logger
}

// NewGeometry returns an empty geometry map. A nil logger falls back to
// slog.Default().
func NewGeometry(log *slog.Logger) *Geometry {
	if log == nil {
		log = slog.Default()
	}
	return &Geometry{rings: make(map[feature.ObjectID][]feature.Polygon), log: log}
}

// Set records rings for building, unless a geometry was already recorded
// for it, in which case the new rings are discarded and a warning logged.
func (g *Geometry) Set(building feature.ObjectID, rings []feature.Polygon) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.rings[building]; exists {
		g.log.Warn("duplicate building geometry, keeping first", slog.String("building", building.Dref()))
		return
	}
	g.rings[building] = rings
}

// Get returns the rings recorded for building, if any.
func (g *Geometry) Get(building feature.ObjectID) ([]feature.Polygon, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rings[building]
	return r, ok
}

// Len returns the number of buildings with recorded geometry.
func (g *Geometry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rings)
}
