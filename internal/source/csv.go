package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/pkg/models"
)

// ReadCSV loads a header-mapped delimited dump into a raw table. Column
// order is taken from the header row; rows missing a grouping or position
// field are skipped and counted.
func ReadCSV(path string, logger *zap.Logger) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("opening csv %s: %w", path, err)
	}
	defer f.Close()

	table, err := parseCSV(f, path, logger)
	if err != nil {
		return models.RawTable{}, fmt.Errorf("reading csv %s: %w", path, err)
	}
	return table, nil
}

func parseCSV(r io.Reader, name string, logger *zap.Logger) (models.RawTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return models.RawTable{}, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"callsign", "icao24", "time", "lat", "lon"} {
		if _, ok := col[required]; !ok {
			return models.RawTable{}, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	numeric := func(rec []string, name string) float64 {
		v, err := strconv.ParseFloat(field(rec, name), 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	var rows []models.TelemetryPoint
	skipped := 0

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A ragged row, not a broken file.
			skipped++
			continue
		}

		callsign := field(rec, "callsign")
		icao := field(rec, "icao24")
		ts, tsOK := parseEpochOrTimestamp(field(rec, "time"))
		lat := numeric(rec, "lat")
		lon := numeric(rec, "lon")

		if callsign == "" || icao == "" || !tsOK || math.IsNaN(lat) || math.IsNaN(lon) {
			skipped++
			continue
		}

		rows = append(rows, models.TelemetryPoint{
			Callsign:     callsign,
			ICAO24:       icao,
			Time:         ts,
			Lat:          lat,
			Lon:          lon,
			Velocity:     numeric(rec, "velocity"),
			Heading:      numeric(rec, "heading"),
			VertRate:     numeric(rec, "vertrate"),
			BaroAltitude: numeric(rec, "baroaltitude"),
			GeoAltitude:  numeric(rec, "geoaltitude"),
			Hour:         field(rec, "hour"),
		})
	}

	if skipped > 0 {
		logger.Debug("rows skipped during csv read",
			zap.String("path", name),
			zap.Int("skipped", skipped),
		)
	}

	return models.RawTable{Name: name, Rows: rows}, nil
}
