package dataset

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/internal/batch"
	"github.com/beatricenora/etaprep/pkg/models"
)

var testRef = models.ReferencePoint{Lat: 51.1537, Lon: -0.1821}

var testBand = models.Band{Inner: 48, Outer: 100}

var t0 = time.Date(2019, 10, 1, 13, 10, 0, 0, time.UTC)

func record(callsign string, velocity, baro, vertrate float64, transit time.Duration, hour string) models.LabeledRecord {
	return models.LabeledRecord{
		Callsign:     callsign,
		ICAO24:       "400abc",
		Lat:          51.9,
		Lon:          -0.18,
		Velocity:     velocity,
		Heading:      180,
		VertRate:     vertrate,
		BaroAltitude: baro,
		GeoAltitude:  baro + 100,
		Hour:         hour,
		ArrivalTime:  t0.Add(transit),
		TransitTime:  transit,
	}
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

func TestParseHourEpoch(t *testing.T) {
	tests := []struct {
		name string
		tok  string
		want float64
	}{
		{"epoch seconds", "1569934800", 1569934800},
		{"naive timestamp", "2019-10-01 13:00:00", 1569934800},
		{"offset stripped not applied", "2019-10-01 13:00:00+01:00", 1569934800},
		{"utc offset", "2019-10-01 13:00:00+00:00", 1569934800},
		{"t separator", "2019-10-01T13:00:00", 1569934800},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseHourEpoch(tc.tok))
		})
	}

	for _, tok := range []string{"", "garbage", "13:00", "2019-13-45 99:00:00"} {
		assert.True(t, math.IsNaN(parseHourEpoch(tok)), "token %q should be missing", tok)
	}
}

func TestNormalizeColumns(t *testing.T) {
	df := Normalize(models.Dataset{
		record("BAW123", 210, 3500, -8, 1400*time.Second, "1569934800"),
	})
	require.NoError(t, df.Err)

	assert.Equal(t, []string{
		"callsign", "icao24", "lat", "lon", "velocity", "heading",
		"vertrate", "baroaltitude", "geoaltitude", "hour",
		"arrival_time", "transit_time",
	}, df.Names())

	require.Equal(t, 1, df.Nrow())
	assert.InDelta(t, 1400, df.Col("transit_time").Float()[0], 1e-9)
	assert.InDelta(t, 1569934800, df.Col("hour").Float()[0], 1e-9)
	assert.InDelta(t, float64(t0.Add(1400*time.Second).Unix()), df.Col("arrival_time").Float()[0], 1e-9)
}

func TestDropMissingRemovesIncompleteRows(t *testing.T) {
	complete := record("BAW123", 210, 3500, -8, 1400*time.Second, "1569934800")
	noVelocity := record("EZY456", math.NaN(), 3500, -8, 1400*time.Second, "1569934800")
	badHour := record("RYR789", 210, 3500, -8, 1400*time.Second, "not-a-time")

	df := dropMissing(Normalize(models.Dataset{complete, noVelocity, badHour}))
	require.NoError(t, df.Err)
	require.Equal(t, 1, df.Nrow())
	assert.Equal(t, "BAW123", df.Col("callsign").Records()[0])
}

func TestDropMissingKeepsRowsWithMissingGeoAltitude(t *testing.T) {
	// geoaltitude is carried through but is not a required column.
	r := record("BAW123", 210, 3500, -8, 1400*time.Second, "1569934800")
	r.GeoAltitude = math.NaN()

	df := dropMissing(Normalize(models.Dataset{r}))
	require.NoError(t, df.Err)
	assert.Equal(t, 1, df.Nrow())
}

func TestOutlierFilterBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		velocity float64
		kept     bool
	}{
		{"above upper bound removed", 260, false},
		{"upper bound inclusive kept", 250, true},
		{"lower bound exclusive removed", 100, false},
		{"just above lower bound kept", 100.1, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			df := Normalize(models.Dataset{
				record("BAW123", tc.velocity, 3500, -8, 1400*time.Second, "1569934800"),
			})
			df = applyFilters(df, DefaultOutlierFilters())
			require.NoError(t, df.Err)

			if tc.kept {
				assert.Equal(t, 1, df.Nrow())
			} else {
				assert.Equal(t, 0, df.Nrow())
			}
		})
	}
}

func TestOutlierFiltersCombineWithAnd(t *testing.T) {
	// Velocity in range but transit time outside: row removed.
	df := Normalize(models.Dataset{
		record("BAW123", 200, 3500, -8, 400*time.Second, "1569934800"),
	})
	df = applyFilters(df, DefaultOutlierFilters())
	require.NoError(t, df.Err)
	assert.Equal(t, 0, df.Nrow())
}

func TestNilFiltersKeepEverything(t *testing.T) {
	df := Normalize(models.Dataset{
		record("BAW123", 999, 99999, 50, 9*time.Hour, "1569934800"),
	})
	df = applyFilters(df, nil)
	require.NoError(t, df.Err)
	assert.Equal(t, 1, df.Nrow())
}

// ---------------------------------------------------------------------------
// Assembly
// ---------------------------------------------------------------------------

func flightRows(callsign string) []models.TelemetryPoint {
	base := models.TelemetryPoint{
		Callsign: callsign,
		ICAO24:   "400abc",
		Lon:      testRef.Lon,
		Heading:  180,
		VertRate: -8,
		Velocity: 210,
		Hour:     "1569934800",
	}

	entry := base
	entry.Time = t0
	entry.Lat = testRef.Lat + 1.0 // ~60 NM, in band
	entry.BaroAltitude = 6500
	entry.GeoAltitude = 6600

	arrival := base
	arrival.Time = t0.Add(1400 * time.Second)
	arrival.Lat = testRef.Lat + 0.1
	arrival.BaroAltitude = 3200
	arrival.GeoAltitude = 3300

	return []models.TelemetryPoint{entry, arrival}
}

func testTables() []models.RawTable {
	return []models.RawTable{
		{Name: "a", Rows: flightRows("BAW123")},
		{Name: "b", Rows: flightRows("EZY456")},
		{Name: "c", Rows: flightRows("RYR789")},
		{Name: "d", Rows: flightRows("WZZ321")},
		{Name: "e", Rows: flightRows("TOM654")},
		{Name: "f", Rows: flightRows("VIR987")},
		{Name: "g", Rows: flightRows("AFR111")},
	}
}

func TestAssembleBatchSizeInvariance(t *testing.T) {
	proc := batch.NewProcessor(testRef, testBand, zap.NewNop())
	ctx := context.Background()

	small := NewAssembler(proc, 1, nil, zap.NewNop())
	big := NewAssembler(proc, len(testTables()), nil, zap.NewNop())

	dfSmall, err := small.Assemble(ctx, testTables())
	require.NoError(t, err)
	dfBig, err := big.Assemble(ctx, testTables())
	require.NoError(t, err)

	require.Equal(t, dfBig.Nrow(), dfSmall.Nrow())
	assert.ElementsMatch(t, dfBig.Col("callsign").Records(), dfSmall.Col("callsign").Records())
	assert.ElementsMatch(t, dfBig.Col("transit_time").Float(), dfSmall.Col("transit_time").Float())
}

func TestAssembleAppliesNormalizationAndFilters(t *testing.T) {
	proc := batch.NewProcessor(testRef, testBand, zap.NewNop())
	asm := NewAssembler(proc, 5, DefaultOutlierFilters(), zap.NewNop())

	df, err := asm.Assemble(context.Background(), testTables()[:1])
	require.NoError(t, err)
	// transit 1400s, velocity 210, baro 6500, vertrate -8: all in range.
	require.Equal(t, 1, df.Nrow())
	assert.InDelta(t, 1400, df.Col("transit_time").Float()[0], 1e-9)
}

func TestAssembleEmptySource(t *testing.T) {
	proc := batch.NewProcessor(testRef, testBand, zap.NewNop())
	asm := NewAssembler(proc, 5, nil, zap.NewNop())

	// A table whose only flight never crosses the band.
	rows := flightRows("BAW123")
	for i := range rows {
		rows[i].Lat = testRef.Lat + 3.0
	}

	_, err := asm.Assemble(context.Background(), []models.RawTable{{Name: "a", Rows: rows}})
	assert.ErrorIs(t, err, ErrEmptySource)

	_, err = asm.Assemble(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestAssembleContextCancelled(t *testing.T) {
	proc := batch.NewProcessor(testRef, testBand, zap.NewNop())
	asm := NewAssembler(proc, 1, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := asm.Assemble(ctx, testTables())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteCSV(t *testing.T) {
	df := Normalize(models.Dataset{
		record("BAW123", 210, 3500, -8, 1400*time.Second, "1569934800"),
	})

	var sb strings.Builder
	require.NoError(t, WriteCSV(df, &sb))

	out := sb.String()
	assert.Contains(t, out, "callsign,icao24,lat,lon,velocity,heading,vertrate,baroaltitude,geoaltitude,hour,arrival_time,transit_time")
	assert.Contains(t, out, "BAW123")
}
