// Package batch reduces raw telemetry tables to labeled records, one flight
// at a time, tolerating per-flight failures.
package batch

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/internal/reduce"
	"github.com/beatricenora/etaprep/pkg/models"
)

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats counts reduction outcomes. Counters are atomic and merge
// associatively and commutatively, so per-worker instances can be summed in
// any completion order.
type Stats struct {
	Processed atomic.Int64 // flights reduced to a record
	Skipped   atomic.Int64 // flights with no band crossing
	Failed    atomic.Int64 // flights rejected by a row- or flight-level error
}

// Merge adds other's counters into s.
func (s *Stats) Merge(other *Stats) {
	s.Processed.Add(other.Processed.Load())
	s.Skipped.Add(other.Skipped.Load())
	s.Failed.Add(other.Failed.Load())
}

// Snapshot returns a plain copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Processed: s.Processed.Load(),
		Skipped:   s.Skipped.Load(),
		Failed:    s.Failed.Load(),
	}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Processed int64
	Skipped   int64
	Failed    int64
}

// ---------------------------------------------------------------------------
// Processor
// ---------------------------------------------------------------------------

// Processor groups raw table rows into flights and reduces each one against
// a fixed reference point and distance band. It holds no mutable state
// across calls beyond its logger; reference and band are read-only run
// configuration.
type Processor struct {
	ref    models.ReferencePoint
	band   models.Band
	logger *zap.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(ref models.ReferencePoint, band models.Band, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{ref: ref, band: band, logger: logger}
}

// Process reduces every flight in the given tables and returns the
// accumulated dataset plus outcome counters. A skipped or failed flight
// never aborts its table; a failed table never aborts its siblings. A
// structured summary is logged after each table.
func (p *Processor) Process(tables []models.RawTable) (models.Dataset, *Stats) {
	dataset := make(models.Dataset, 0)
	stats := &Stats{}

	for _, table := range tables {
		before := stats.Snapshot()
		p.processTable(table, &dataset, stats)
		after := stats.Snapshot()

		p.logger.Info("table processed",
			zap.String("table", table.Name),
			zap.Int64("processed", after.Processed-before.Processed),
			zap.Int64("skipped", after.Skipped-before.Skipped),
			zap.Int64("failed", after.Failed-before.Failed),
		)
	}

	return dataset, stats
}

// processTable reduces one table's flights into the running dataset.
func (p *Processor) processTable(table models.RawTable, dataset *models.Dataset, stats *Stats) {
	for _, group := range groupByCallsign(table.Rows) {
		flight, ok := reduce.NewFlight(group.callsign, group.points)
		if !ok {
			continue
		}

		rec, err := reduce.Reduce(flight, p.ref, p.band)
		switch {
		case err == nil:
			*dataset = append(*dataset, rec)
			stats.Processed.Add(1)
		case errors.Is(err, reduce.ErrSkipped):
			stats.Skipped.Add(1)
			p.logger.Debug("flight skipped",
				zap.String("table", table.Name),
				zap.String("callsign", group.callsign),
				zap.Error(err),
			)
		default:
			stats.Failed.Add(1)
			p.logger.Warn("flight failed",
				zap.String("table", table.Name),
				zap.String("callsign", group.callsign),
				zap.Error(err),
			)
		}
	}
}

// callsignGroup is one flight's rows in their original table order.
type callsignGroup struct {
	callsign string
	points   []models.TelemetryPoint
}

// groupByCallsign partitions rows by callsign, preserving each group's
// original row order and the order in which callsigns first appear.
//
// Grouping is keyed on callsign alone, matching the source data layout. Two
// aircraft reusing a callsign (different icao24) within one table are merged
// into a single flight; this is a known ambiguity of the upstream data,
// pinned by a test rather than silently re-keyed.
func groupByCallsign(rows []models.TelemetryPoint) []callsignGroup {
	index := make(map[string]int, len(rows)/8+1)
	groups := make([]callsignGroup, 0)

	for _, row := range rows {
		i, seen := index[row.Callsign]
		if !seen {
			i = len(groups)
			index[row.Callsign] = i
			groups = append(groups, callsignGroup{callsign: row.Callsign})
		}
		groups[i].points = append(groups[i].points, row)
	}
	return groups
}
