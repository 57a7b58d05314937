package source

import (
	"fmt"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/pkg/models"
)

// stateRow mirrors one row of an OpenSky state-vector parquet dump. Every
// column is optional in the dumps, so fields are pointers and absence maps
// to missing downstream.
type stateRow struct {
	Time         *int64   `parquet:"time,optional"`
	ICAO24       *string  `parquet:"icao24,optional"`
	Lat          *float64 `parquet:"lat,optional"`
	Lon          *float64 `parquet:"lon,optional"`
	Velocity     *float64 `parquet:"velocity,optional"`
	Heading      *float64 `parquet:"heading,optional"`
	VertRate     *float64 `parquet:"vertrate,optional"`
	Callsign     *string  `parquet:"callsign,optional"`
	BaroAltitude *float64 `parquet:"baroaltitude,optional"`
	GeoAltitude  *float64 `parquet:"geoaltitude,optional"`
	Hour         *int64   `parquet:"hour,optional"`
}

// ReadParquet loads one OpenSky parquet dump into a raw table. Rows missing
// a grouping or position field (callsign, icao24, time, lat, lon) are
// skipped and counted; other missing fields become NaN.
func ReadParquet(path string, logger *zap.Logger) (models.RawTable, error) {
	raw, err := parquet.ReadFile[stateRow](path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("reading parquet %s: %w", path, err)
	}

	rows := make([]models.TelemetryPoint, 0, len(raw))
	skipped := 0

	for _, r := range raw {
		if r.Callsign == nil || r.ICAO24 == nil || r.Time == nil || r.Lat == nil || r.Lon == nil {
			skipped++
			continue
		}

		hour := ""
		if r.Hour != nil {
			hour = strconv.FormatInt(*r.Hour, 10)
		}

		rows = append(rows, models.TelemetryPoint{
			Callsign:     *r.Callsign,
			ICAO24:       *r.ICAO24,
			Time:         time.Unix(*r.Time, 0).UTC(),
			Lat:          *r.Lat,
			Lon:          *r.Lon,
			Velocity:     floatOrNaN(r.Velocity),
			Heading:      floatOrNaN(r.Heading),
			VertRate:     floatOrNaN(r.VertRate),
			BaroAltitude: floatOrNaN(r.BaroAltitude),
			GeoAltitude:  floatOrNaN(r.GeoAltitude),
			Hour:         hour,
		})
	}

	if skipped > 0 {
		logger.Debug("rows skipped during parquet read",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return models.RawTable{Name: path, Rows: rows}, nil
}
