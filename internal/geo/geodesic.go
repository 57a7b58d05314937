// Package geo computes distances between geographic coordinates on the
// WGS84 ellipsoid, in nautical miles.
package geo

import (
	"fmt"

	"github.com/tidwall/geodesic"

	"github.com/beatricenora/etaprep/pkg/models"
)

// metersPerNauticalMile converts geodesic arc length to nautical miles.
const metersPerNauticalMile = 1852.0

// InvalidCoordinateError reports a latitude or longitude outside its
// physically valid range. NaN counts as out of range; values are never
// clamped.
type InvalidCoordinateError struct {
	Lat float64
	Lon float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinate: lat=%v lon=%v", e.Lat, e.Lon)
}

// validCoordinate reports whether lat/lon are within range. The negated
// comparisons also reject NaN.
func validCoordinate(lat, lon float64) bool {
	if !(lat >= -90 && lat <= 90) {
		return false
	}
	if !(lon >= -180 && lon <= 180) {
		return false
	}
	return true
}

// Distance returns the geodesic distance between two points in nautical
// miles, solving the inverse problem on the WGS84 ellipsoid.
func Distance(latA, lonA, latB, lonB float64) (float64, error) {
	if !validCoordinate(latA, lonA) {
		return 0, &InvalidCoordinateError{Lat: latA, Lon: lonA}
	}
	if !validCoordinate(latB, lonB) {
		return 0, &InvalidCoordinateError{Lat: latB, Lon: lonB}
	}

	var meters float64
	geodesic.WGS84.Inverse(latA, lonA, latB, lonB, &meters, nil, nil)
	return meters / metersPerNauticalMile, nil
}

// DistanceVector returns the elementwise distance from each (lats[i],
// lons[i]) to a constant reference point, in nautical miles. The first
// malformed coordinate aborts with an InvalidCoordinateError.
func DistanceVector(lats, lons []float64, ref models.ReferencePoint) ([]float64, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("coordinate slices differ in length: %d vs %d", len(lats), len(lons))
	}

	out := make([]float64, len(lats))
	for i := range lats {
		d, err := Distance(lats[i], lons[i], ref.Lat, ref.Lon)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
