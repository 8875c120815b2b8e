package feature

import "math"

// earthRadius is the sphere radius (meters) used by the spherical Mercator
// projection that the intermediate format stores key points in.
const earthRadius = 6378137.0

// ToLonLat reprojects a spherical-Mercator coordinate to decimal-degree
// longitude/latitude, matching the original generator's
// MercatorBounds::ToLatLon used to populate geometry.coordinates.
func ToLonLat(c Coord) (lon, lat float64) {
	lon = (c.X / earthRadius) * (180.0 / math.Pi)
	lat = (2*math.Atan(math.Exp(c.Y/earthRadius)) - math.Pi/2) * (180.0 / math.Pi)
	return lon, lat
}

// FromLonLat projects decimal-degree longitude/latitude into the
// spherical-Mercator coordinate space used by Record.Geometry.
func FromLonLat(lon, lat float64) Coord {
	x := lon * (math.Pi / 180.0) * earthRadius
	y := math.Log(math.Tan(math.Pi/4+(lat*(math.Pi/180.0))/2)) * earthRadius
	return Coord{X: x, Y: y}
}
