package models

import "time"

// TelemetryPoint is one surveillance report from a raw source table
// (ingestion DTO). Numeric fields use NaN for values the source left empty.
type TelemetryPoint struct {
	Callsign     string    `json:"callsign"`
	ICAO24       string    `json:"icao24"`
	Time         time.Time `json:"time"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	Velocity     float64   `json:"velocity"`
	Heading      float64   `json:"heading"`
	VertRate     float64   `json:"vertrate"`
	BaroAltitude float64   `json:"baroaltitude"`
	GeoAltitude  float64   `json:"geoaltitude"`

	// Hour is the raw hour-bucket token as read from the source
	// (epoch seconds or a timestamp string). It is normalized to epoch
	// seconds during dataset assembly, not here.
	Hour string `json:"hour"`
}

// RawTable is one source table's rows in original order.
type RawTable struct {
	Name string
	Rows []TelemetryPoint
}

// ReferencePoint is the destination airport position. Read-only for a run.
type ReferencePoint struct {
	Lat float64
	Lon float64
}

// Band is the inclusive distance interval [Inner, Outer] in nautical miles
// that defines a band crossing. Always supplied by configuration; historical
// pipeline variants used both 48-100 and 48-50.
type Band struct {
	Inner float64
	Outer float64
}

// Contains reports whether a distance (NM) lies within the band, bounds
// inclusive.
func (b Band) Contains(dist float64) bool {
	return dist >= b.Inner && dist <= b.Outer
}

// EntrySnapshot is the time-earliest telemetry point whose distance to the
// reference lies within the band, together with that distance.
type EntrySnapshot struct {
	Point    TelemetryPoint
	Distance float64 // nautical miles to the reference point
}

// LabeledRecord is the per-flight output sample: the entry snapshot's
// feature fields plus the arrival event and the signed transit time.
type LabeledRecord struct {
	Callsign     string        `json:"callsign"`
	ICAO24       string        `json:"icao24"`
	Lat          float64       `json:"lat"`
	Lon          float64       `json:"lon"`
	Velocity     float64       `json:"velocity"`
	Heading      float64       `json:"heading"`
	VertRate     float64       `json:"vertrate"`
	BaroAltitude float64       `json:"baroaltitude"`
	GeoAltitude  float64       `json:"geoaltitude"`
	Hour         string        `json:"hour"`
	ArrivalTime  time.Time     `json:"arrival_time"`
	TransitTime  time.Duration `json:"transit_time"`
}

// Dataset is an ordered collection of labeled records, one per successfully
// reduced flight. Insertion order is processing order and carries no meaning
// downstream.
type Dataset []LabeledRecord
