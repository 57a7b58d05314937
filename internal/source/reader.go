// Package source reads raw telemetry tables from columnar and delimited
// files. Parsing is best-effort at row level: a malformed row is skipped and
// counted, never fatal; an unreadable file is reported to the caller without
// touching its siblings.
package source

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/pkg/models"
)

// ReadTables loads every path into a raw table, dispatching on file
// extension. A file that cannot be read is logged and skipped so one bad
// dump does not block the rest of the run; the per-file error surfaces only
// through the log and the returned table count.
func ReadTables(paths []string, logger *zap.Logger) []models.RawTable {
	if logger == nil {
		logger = zap.NewNop()
	}

	tables := make([]models.RawTable, 0, len(paths))
	for _, path := range paths {
		table, err := ReadTable(path, logger)
		if err != nil {
			logger.Warn("source table unreadable, skipping",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		tables = append(tables, table)
	}
	return tables
}

// ReadTable loads a single source file.
func ReadTable(path string, logger *zap.Logger) (models.RawTable, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return ReadParquet(path, logger)
	case ".csv":
		return ReadCSV(path, logger)
	default:
		return models.RawTable{}, fmt.Errorf("unsupported table format: %s", path)
	}
}

// ---------------------------------------------------------------------------
// Row parsing helpers
// ---------------------------------------------------------------------------

// floatOrNaN converts an optional numeric field; missing means NaN, the
// explicit "no value" the rest of the pipeline understands.
func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func stringOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

// parseEpochOrTimestamp accepts epoch seconds (integer or fractional) or an
// RFC3339-like timestamp.
func parseEpochOrTimestamp(tok string) (time.Time, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return time.Time{}, false
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		sec := int64(v)
		nsec := int64((v - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, tok); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
