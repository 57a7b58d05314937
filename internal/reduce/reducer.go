// Package reduce turns one flight's ordered telemetry into a single labeled
// record: the snapshot at the first distance-band crossing plus the time it
// took to reach the flight's minimum recorded barometric altitude.
package reduce

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/beatricenora/etaprep/internal/geo"
	"github.com/beatricenora/etaprep/pkg/models"
)

// ErrSkipped marks a flight that produced no labeled record without being an
// error condition. Callers distinguish it from failures with errors.Is.
var ErrSkipped = errors.New("flight skipped")

// ErrNoAltitude marks a flight with no usable barometric altitude, so no
// arrival event can be determined. Counted as a failure, not a skip.
var ErrNoAltitude = errors.New("no barometric altitude data")

// Flight is an ordered sequence of telemetry points sharing a callsign.
// Construction guarantees at least one point.
type Flight struct {
	Callsign string
	Points   []models.TelemetryPoint
}

// NewFlight builds a flight from grouped rows. Empty groups are rejected
// upstream; this returns false rather than constructing a zero-point flight.
func NewFlight(callsign string, points []models.TelemetryPoint) (Flight, bool) {
	if len(points) == 0 {
		return Flight{}, false
	}
	return Flight{Callsign: callsign, Points: points}, true
}

// Reduce produces the flight's labeled record, or ErrSkipped when no point
// lies within the band.
//
// The scan order is fixed: sort by timestamp (stable, ties keep source
// order), compute per-point distance to the reference, take the
// time-earliest in-band point as the entry snapshot, take the first point
// attaining the global minimum barometric altitude as the arrival event.
// The transit time is the signed difference arrival - entry; negative values
// (altitude minimum before band entry, a data anomaly) are preserved for
// downstream filtering, never clamped here.
func Reduce(f Flight, ref models.ReferencePoint, band models.Band) (models.LabeledRecord, error) {
	if len(f.Points) == 0 {
		return models.LabeledRecord{}, fmt.Errorf("%w: no telemetry points", ErrSkipped)
	}

	points := make([]models.TelemetryPoint, len(f.Points))
	copy(points, f.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	lats := make([]float64, len(points))
	lons := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lons[i] = p.Lon
	}

	dists, err := geo.DistanceVector(lats, lons, ref)
	if err != nil {
		return models.LabeledRecord{}, fmt.Errorf("flight %q: %w", f.Callsign, err)
	}

	entry, ok := findEntry(points, dists, band)
	if !ok {
		return models.LabeledRecord{}, fmt.Errorf("%w: no band crossing", ErrSkipped)
	}

	arrival, ok := findArrival(points)
	if !ok {
		return models.LabeledRecord{}, fmt.Errorf("flight %q: %w", f.Callsign, ErrNoAltitude)
	}

	p := entry.Point
	return models.LabeledRecord{
		Callsign:     p.Callsign,
		ICAO24:       p.ICAO24,
		Lat:          p.Lat,
		Lon:          p.Lon,
		Velocity:     p.Velocity,
		Heading:      p.Heading,
		VertRate:     p.VertRate,
		BaroAltitude: p.BaroAltitude,
		GeoAltitude:  p.GeoAltitude,
		Hour:         p.Hour,
		ArrivalTime:  arrival,
		TransitTime:  arrival.Sub(p.Time),
	}, nil
}

// findEntry selects the first point in time order whose distance lies within
// the band, bounds inclusive. First crossing, not closest approach: those
// differ when the distance profile is non-monotonic.
func findEntry(points []models.TelemetryPoint, dists []float64, band models.Band) (models.EntrySnapshot, bool) {
	for i := range points {
		if band.Contains(dists[i]) {
			return models.EntrySnapshot{Point: points[i], Distance: dists[i]}, true
		}
	}
	return models.EntrySnapshot{}, false
}

// findArrival returns the timestamp of the first point attaining the minimum
// barometric altitude over the entire flight, not just after entry. Points
// with missing altitude are ignored; if every altitude is missing there is
// no arrival event.
//
// Assumes a descend-to-land profile. A go-around or missed approach can put
// the recorded minimum away from the actual landing; that limitation is
// inherited from the labeling heuristic, not corrected here.
func findArrival(points []models.TelemetryPoint) (time.Time, bool) {
	minAlt := math.Inf(1)
	var arrival time.Time
	found := false

	for _, p := range points {
		if math.IsNaN(p.BaroAltitude) {
			continue
		}
		// Strict less-than keeps the earliest point on ties.
		if p.BaroAltitude < minAlt {
			minAlt = p.BaroAltitude
			arrival = p.Time
			found = true
		}
	}
	return arrival, found
}
