package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.InDelta(t, 51.1537, cfg.Reference.Latitude, 1e-9)
	assert.InDelta(t, -0.1821, cfg.Reference.Longitude, 1e-9)
	assert.InDelta(t, 48.0, cfg.Band.Inner, 1e-9)
	assert.InDelta(t, 100.0, cfg.Band.Outer, 1e-9)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Empty(t, cfg.OutlierFilters)
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
reference:
  latitude: 49.1967
  longitude: -123.1815
band:
  inner: 48
  outer: 50
batch_size: 10
outlier_filters:
  velocity:
    min: 100
    max: 250
input:
  paths:
    - data/states_00.parquet
output:
  path: out.csv
`
	path := filepath.Join(t.TempDir(), "etaprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.InDelta(t, 49.1967, cfg.Reference.Latitude, 1e-9)
	assert.InDelta(t, 50.0, cfg.Band.Outer, 1e-9)
	assert.Equal(t, 10, cfg.BatchSize)
	require.Contains(t, cfg.OutlierFilters, "velocity")
	assert.InDelta(t, 250.0, cfg.OutlierFilters["velocity"].Max, 1e-9)
	assert.Equal(t, []string{"data/states_00.parquet"}, cfg.Input.Paths)
	assert.Equal(t, "out.csv", cfg.Output.Path)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ETAPREP_BAND_OUTER", "50")
	t.Setenv("ETAPREP_BATCH_SIZE", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, cfg.Band.Outer, 1e-9)
	assert.Equal(t, 3, cfg.BatchSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"latitude out of range", func(c *Config) { c.Reference.Latitude = 95 }},
		{"longitude out of range", func(c *Config) { c.Reference.Longitude = -200 }},
		{"negative inner radius", func(c *Config) { c.Band.Inner = -1 }},
		{"inverted band", func(c *Config) { c.Band.Inner = 60; c.Band.Outer = 50 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"inverted filter range", func(c *Config) {
			c.OutlierFilters = map[string]FilterRange{"velocity": {Min: 250, Max: 100}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestModelAccessors(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	ref := cfg.ReferencePoint()
	assert.InDelta(t, cfg.Reference.Latitude, ref.Lat, 1e-9)

	band := cfg.BandModel()
	assert.InDelta(t, 48.0, band.Inner, 1e-9)
	assert.InDelta(t, 100.0, band.Outer, 1e-9)
}
