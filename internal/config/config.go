// Package config loads and validates run configuration from a YAML file
// with ETAPREP_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/beatricenora/etaprep/pkg/models"
)

// FilterRange is one outlier bound as configured: keep min < v <= max.
type FilterRange struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Config is the full run configuration.
type Config struct {
	Reference struct {
		Latitude  float64 `mapstructure:"latitude"`
		Longitude float64 `mapstructure:"longitude"`
	} `mapstructure:"reference"`

	Band struct {
		Inner float64 `mapstructure:"inner"`
		Outer float64 `mapstructure:"outer"`
	} `mapstructure:"band"`

	// BatchSize bounds how many source tables are held in memory at once.
	BatchSize int `mapstructure:"batch_size"`

	// OutlierFilters maps a column name to its keep range. Empty disables
	// outlier filtering (only one pipeline variant uses it).
	OutlierFilters map[string]FilterRange `mapstructure:"outlier_filters"`

	Input struct {
		Paths []string `mapstructure:"paths"`
	} `mapstructure:"input"`

	Output struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"output"`
}

// Load reads configuration from the given file (optional) merged over
// defaults, with environment variables (ETAPREP_BAND_INNER etc.) taking
// precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults: the wide historical band around Gatwick.
	v.SetDefault("reference.latitude", 51.1537)
	v.SetDefault("reference.longitude", -0.1821)
	v.SetDefault("band.inner", 48.0)
	v.SetDefault("band.outer", 100.0)
	v.SetDefault("batch_size", 5)
	v.SetDefault("output.path", "dataset.csv")

	v.SetEnvPrefix("ETAPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Reference.Latitude < -90 || c.Reference.Latitude > 90 {
		return fmt.Errorf("reference latitude out of range: %v", c.Reference.Latitude)
	}
	if c.Reference.Longitude < -180 || c.Reference.Longitude > 180 {
		return fmt.Errorf("reference longitude out of range: %v", c.Reference.Longitude)
	}
	if c.Band.Inner < 0 {
		return fmt.Errorf("band inner radius must be non-negative: %v", c.Band.Inner)
	}
	if c.Band.Inner > c.Band.Outer {
		return fmt.Errorf("band inner radius %v exceeds outer radius %v", c.Band.Inner, c.Band.Outer)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive: %d", c.BatchSize)
	}
	for col, r := range c.OutlierFilters {
		if r.Min >= r.Max {
			return fmt.Errorf("outlier filter %q: min %v must be below max %v", col, r.Min, r.Max)
		}
	}
	return nil
}

// ReferencePoint returns the configured destination airport position.
func (c *Config) ReferencePoint() models.ReferencePoint {
	return models.ReferencePoint{Lat: c.Reference.Latitude, Lon: c.Reference.Longitude}
}

// BandModel returns the configured distance band.
func (c *Config) BandModel() models.Band {
	return models.Band{Inner: c.Band.Inner, Outer: c.Band.Outer}
}
