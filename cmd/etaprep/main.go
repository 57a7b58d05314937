// Command etaprep reduces raw aircraft surveillance dumps to a labeled
// transit-time dataset for ETA regression models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beatricenora/etaprep/internal/batch"
	"github.com/beatricenora/etaprep/internal/config"
	"github.com/beatricenora/etaprep/internal/dataset"
	"github.com/beatricenora/etaprep/internal/source"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var (
		configFile string
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "etaprep",
		Short:         "Build transit-time training datasets from flight telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(extractCommand(&configFile, &verbose))
	return root
}

func extractCommand(configFile *string, verbose *bool) *cobra.Command {
	var (
		outputPath   string
		applyFilters bool
	)

	cmd := &cobra.Command{
		Use:   "extract [glob...]",
		Short: "Reduce source tables to one labeled sample per flight",
		Long: "Provide parquet or CSV table paths (globs allowed) to reduce each flight\n" +
			"to its band-entry snapshot and transit time, then write the normalized\n" +
			"dataset as CSV.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			if outputPath != "" {
				cfg.Output.Path = outputPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runExtract(ctx, cfg, args, applyFilters, logger)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output CSV path (overrides config)")
	cmd.Flags().BoolVar(&applyFilters, "filter-outliers", false,
		"Apply the default domain outlier ranges on top of configured filters")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runExtract wires sources, the batch processor, and the assembler, then
// hands the normalized dataframe to the CSV sink.
func runExtract(ctx context.Context, cfg *config.Config, globs []string, applyDefaults bool, logger *zap.Logger) error {
	paths, err := expandPaths(append(globs, cfg.Input.Paths...))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input tables: pass paths as arguments or set input.paths in config")
	}

	logger.Info("extraction starting",
		zap.Int("tables", len(paths)),
		zap.Float64("reference_lat", cfg.Reference.Latitude),
		zap.Float64("reference_lon", cfg.Reference.Longitude),
		zap.Float64("band_inner_nm", cfg.Band.Inner),
		zap.Float64("band_outer_nm", cfg.Band.Outer),
		zap.Int("batch_size", cfg.BatchSize),
	)

	filters := filterRanges(cfg, applyDefaults)
	proc := batch.NewProcessor(cfg.ReferencePoint(), cfg.BandModel(), logger)
	asm := dataset.NewAssembler(proc, cfg.BatchSize, filters, logger)

	tables := source.ReadTables(paths, logger)
	df, err := asm.Assemble(ctx, tables)
	if err != nil {
		return err
	}

	out, err := os.Create(cfg.Output.Path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	if err := dataset.WriteCSV(df, out); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	logger.Info("dataset written",
		zap.String("path", cfg.Output.Path),
		zap.Int("rows", df.Nrow()),
	)
	return nil
}

// filterRanges merges configured outlier filters with the default domain
// ranges when requested; explicit configuration wins per column.
func filterRanges(cfg *config.Config, applyDefaults bool) map[string]dataset.Range {
	if len(cfg.OutlierFilters) == 0 && !applyDefaults {
		return nil
	}

	filters := make(map[string]dataset.Range)
	if applyDefaults {
		filters = dataset.DefaultOutlierFilters()
	}
	for col, r := range cfg.OutlierFilters {
		filters[col] = dataset.Range{Min: r.Min, Max: r.Max}
	}
	return filters
}

// expandPaths resolves globs and keeps explicit paths as-is, de-duplicated
// in first-seen order.
func expandPaths(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}
