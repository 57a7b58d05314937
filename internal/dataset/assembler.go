// Package dataset assembles per-flight labeled records from many source
// tables into one normalized dataframe ready for model training.
package dataset

import (
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/internal/batch"
	"github.com/beatricenora/etaprep/pkg/models"
)

// ErrEmptySource reports that no source table yielded a usable flight.
// There is nothing to model, so this terminates the run; it is the only
// error the assembler surfaces for data reasons.
var ErrEmptySource = errors.New("no usable flights in any source table")

// defaultBatchSize bounds how many source tables are reduced per batch.
// Batching caps peak memory for lazily read sources and has no effect on
// output: concatenation across batches reproduces the same records at any
// batch size.
const defaultBatchSize = 5

// Range is an outlier bound for one column: keep values v with
// Min < v <= Max (lower bound exclusive, upper bound inclusive).
type Range struct {
	Min float64
	Max float64
}

// DefaultOutlierFilters returns the domain ranges used by the filtered
// pipeline variant. Other variants pass nil to keep every row.
func DefaultOutlierFilters() map[string]Range {
	return map[string]Range{
		"velocity":     {Min: 100, Max: 250},
		"baroaltitude": {Min: 3000, Max: 7000},
		"vertrate":     {Min: -20, Max: 5},
		"transit_time": {Min: 600, Max: 3000},
	}
}

// requiredColumns are the columns whose missing values remove a row during
// normalization ("dropna" over the full required set, no partial keep).
var requiredColumns = []string{
	"lat", "lon", "velocity", "heading", "vertrate", "baroaltitude",
	"hour", "arrival_time", "transit_time",
}

// Assembler orchestrates the batch processor across source tables and
// applies post-hoc type and unit normalization to the concatenated result.
type Assembler struct {
	proc      *batch.Processor
	batchSize int
	filters   map[string]Range
	logger    *zap.Logger
}

// NewAssembler creates an assembler. A non-positive batchSize falls back to
// the default; a nil filters map disables outlier filtering.
func NewAssembler(proc *batch.Processor, batchSize int, filters map[string]Range, logger *zap.Logger) *Assembler {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{proc: proc, batchSize: batchSize, filters: filters, logger: logger}
}

// Assemble reduces all tables in sequential fixed-size batches, concatenates
// the partial datasets, and returns the normalized, filtered dataframe.
// Returns ErrEmptySource when no flight anywhere survived reduction.
func (a *Assembler) Assemble(ctx context.Context, tables []models.RawTable) (dataframe.DataFrame, error) {
	records := make(models.Dataset, 0)
	total := &batch.Stats{}

	for start := 0; start < len(tables); start += a.batchSize {
		if err := ctx.Err(); err != nil {
			return dataframe.DataFrame{}, err
		}

		end := start + a.batchSize
		if end > len(tables) {
			end = len(tables)
		}

		part, stats := a.proc.Process(tables[start:end])
		records = append(records, part...)
		total.Merge(stats)

		a.logger.Info("batch complete",
			zap.Int("tables", end-start),
			zap.Int("records", len(part)),
			zap.Int("accumulated", len(records)),
		)
	}

	snap := total.Snapshot()
	a.logger.Info("reduction finished",
		zap.Int64("processed", snap.Processed),
		zap.Int64("skipped", snap.Skipped),
		zap.Int64("failed", snap.Failed),
	)

	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrEmptySource
	}

	df := Normalize(records)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	before := df.Nrow()
	df = dropMissing(df)
	df = applyFilters(df, a.filters)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}

	a.logger.Info("dataset normalized",
		zap.Int("rows_in", before),
		zap.Int("rows_out", df.Nrow()),
	)
	return df, nil
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// Normalize converts labeled records to a dataframe with normalized types
// and units: hour and arrival_time as epoch seconds, transit_time as
// seconds, feature columns as floats with NaN for missing values. Unparsable
// hour tokens become NaN and are removed later by the dropna step, never
// raised as errors.
func Normalize(records models.Dataset) dataframe.DataFrame {
	n := len(records)
	callsigns := make([]string, n)
	icaos := make([]string, n)
	lats := make([]float64, n)
	lons := make([]float64, n)
	velocities := make([]float64, n)
	headings := make([]float64, n)
	vertrates := make([]float64, n)
	baroalts := make([]float64, n)
	geoalts := make([]float64, n)
	hours := make([]float64, n)
	arrivals := make([]float64, n)
	transits := make([]float64, n)

	for i, r := range records {
		callsigns[i] = r.Callsign
		icaos[i] = r.ICAO24
		lats[i] = r.Lat
		lons[i] = r.Lon
		velocities[i] = r.Velocity
		headings[i] = r.Heading
		vertrates[i] = r.VertRate
		baroalts[i] = r.BaroAltitude
		geoalts[i] = r.GeoAltitude
		hours[i] = parseHourEpoch(r.Hour)
		arrivals[i] = float64(r.ArrivalTime.Unix())
		transits[i] = r.TransitTime.Seconds()
	}

	return dataframe.New(
		series.New(callsigns, series.String, "callsign"),
		series.New(icaos, series.String, "icao24"),
		series.New(lats, series.Float, "lat"),
		series.New(lons, series.Float, "lon"),
		series.New(velocities, series.Float, "velocity"),
		series.New(headings, series.Float, "heading"),
		series.New(vertrates, series.Float, "vertrate"),
		series.New(baroalts, series.Float, "baroaltitude"),
		series.New(geoalts, series.Float, "geoaltitude"),
		series.New(hours, series.Float, "hour"),
		series.New(arrivals, series.Float, "arrival_time"),
		series.New(transits, series.Float, "transit_time"),
	)
}

// hourLayouts are the timestamp shapes seen across source dumps. Offsets are
// parsed so they can be stripped, not applied.
var hourLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseHourEpoch converts an hour-bucket token to epoch seconds. Numeric
// tokens are taken as epoch seconds directly. Timestamp tokens have any
// timezone offset stripped: the wall-clock fields are re-read as naive UTC.
// Unparsable tokens become NaN ("missing"), scheduled for row removal.
func parseHourEpoch(tok string) float64 {
	if tok == "" {
		return math.NaN()
	}

	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v
	}

	for _, layout := range hourLayouts {
		t, err := time.Parse(layout, tok)
		if err != nil {
			continue
		}
		naive := time.Date(t.Year(), t.Month(), t.Day(),
			t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		return float64(naive.Unix())
	}
	return math.NaN()
}

// dropMissing removes every row with a missing value in a required column.
func dropMissing(df dataframe.DataFrame) dataframe.DataFrame {
	for _, col := range requiredColumns {
		df = df.Filter(dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool { return !el.IsNA() },
		})
		if df.Err != nil {
			return df
		}
	}
	return df
}

// applyFilters keeps rows satisfying every configured range: per column,
// Min < v <= Max, combined with logical AND across columns.
func applyFilters(df dataframe.DataFrame, filters map[string]Range) dataframe.DataFrame {
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		r := filters[col]
		df = df.Filter(dataframe.F{Colname: col, Comparator: series.Greater, Comparando: r.Min})
		if df.Err != nil {
			return df
		}
		df = df.Filter(dataframe.F{Colname: col, Comparator: series.LessEq, Comparando: r.Max})
		if df.Err != nil {
			return df
		}
	}
	return df
}

// WriteCSV writes the normalized dataframe for the external persistence
// collaborator.
func WriteCSV(df dataframe.DataFrame, w io.Writer) error {
	return df.WriteCSV(w)
}
