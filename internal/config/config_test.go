package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "COPERNICUS/S2_SR_HARMONIZED", cfg.Composite.CollectionID)
	assert.Equal(t, []string{"B2", "B3", "B4", "B8", "B11", "B12"}, cfg.Composite.Bands)
	assert.Equal(t, "SCL", cfg.Composite.SceneBand)
	assert.Equal(t, []int{1, 3, 8, 9, 10, 11}, cfg.Composite.InvalidCodes)
	assert.True(t, cfg.Composite.MaskClouds)
	assert.Equal(t, 10.0, cfg.Composite.Scale)

	assert.Equal(t, 100.0, cfg.Geometry.SimplifyToleranceM)

	assert.Equal(t, "GLOBAL/LANDCOVER/ANNUAL_V2", cfg.Sampling.ReferenceID)
	assert.Equal(t, "Map", cfg.Sampling.ReferenceBand)
	assert.Equal(t, 500, cfg.Sampling.Count)
	assert.Equal(t, int64(42), cfg.Sampling.Seed)

	assert.Equal(t, 200, cfg.Classifier.Trees)
	assert.Equal(t, int64(42), cfg.Classifier.Seed)

	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 900, cfg.Batch.RegionTimeoutSecs)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LANDCOVER_BATCH_CONCURRENCY", "8")
	t.Setenv("LANDCOVER_ENGINE_BASE_URL", "https://engine.example.com")
	t.Setenv("LANDCOVER_COMPOSITE_MASK_CLOUDS", "false")
	t.Setenv("LANDCOVER_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "https://engine.example.com", cfg.Engine.BaseURL)
	assert.False(t, cfg.Composite.MaskClouds)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "console"}))
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "verbose", Format: "json"})
	require.Error(t, err)
}
