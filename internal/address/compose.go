package address

import (
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// ComposeAddress builds a fresh JSON descriptor for a building or housed
// feature: a deep copy of the containing region's descriptor, with
// coordinates, street/house, names, rank, and a back-reference to the
// region grafted in (spec.md §4.5's compose_address; original's AddAddress).
func ComposeAddress(rec *feature.Record, regionID feature.ObjectID, regionJSON JSON) (JSON, error) {
	result := regionJSON.DeepCopy()

	setCoordinates(result, rec.KeyPoint())

	addr, err := ensureObjectAt(result, "properties", "locales", "default", "address")
	if err != nil {
		return nil, err
	}
	if rec.Street != "" {
		addr["street"] = rec.Street
	}
	if rec.House != "" {
		addr["building"] = rec.House
	} else {
		// A null building is a sentinel meaning "addressless house"; its
		// absence would instead mean "never specified" (spec.md §3).
		addr["building"] = NullBuilding
	}

	properties, err := ensureObjectAt(result, "properties")
	if err != nil {
		return nil, err
	}
	setNames(result, rec)
	properties["rank"] = HouseOrPOIRank
	properties["dref"] = regionID.Dref()

	return result, nil
}

// ComposePOI builds a POI's JSON descriptor by inheriting an address
// verbatim from a nearby housed object or paired building, overwriting
// only coordinates and names (spec.md §4.5's compose_poi; original's
// MakeJsonValueWithNameFromFeature). The POI contributes no street or
// house of its own.
func ComposePOI(rec *feature.Record, inherited JSON) (JSON, error) {
	result := inherited.DeepCopy()
	setNames(result, rec)
	setCoordinates(result, rec.KeyPoint())
	return result, nil
}

// setCoordinates overwrites geometry.coordinates with the feature's key
// point reprojected to [lon, lat] decimal degrees (original's
// UpdateCoordinates). The coordinates are always written; when the
// descriptor did not already hold a two-element coordinates array,
// geometry.type is also set to "Point".
func setCoordinates(j JSON, pt feature.Coord) {
	geometry, ok := j["geometry"].(map[string]interface{})
	if !ok {
		geometry = make(map[string]interface{})
		j["geometry"] = geometry
	}
	lon, lat := feature.ToLonLat(pt)
	if coords, ok := geometry["coordinates"].([]interface{}); ok && len(coords) == 2 {
		geometry["coordinates"] = []interface{}{lon, lat}
	} else {
		geometry["coordinates"] = []interface{}{lon, lat}
		geometry["type"] = "Point"
	}
}

// setNames writes properties.locales.<locale>.name for every locale
// present in the feature's multilingual name map.
func setNames(j JSON, rec *feature.Record) {
	if len(rec.Names) == 0 {
		return
	}
	for _, locale := range rec.SortedLocales() {
		localeObj, err := ensureObjectAt(j, "properties", "locales", locale)
		if err != nil {
			continue
		}
		localeObj["name"] = rec.Names[locale]
	}
}
