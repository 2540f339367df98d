package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Composite  CompositeConfig  `yaml:"composite" mapstructure:"composite"`
	Geometry   GeometryConfig   `yaml:"geometry" mapstructure:"geometry"`
	Sampling   SamplingConfig   `yaml:"sampling" mapstructure:"sampling"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// EngineConfig holds raster-engine API settings.
type EngineConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CompositeConfig configures spectral composite construction.
type CompositeConfig struct {
	CollectionID string   `yaml:"collection_id" mapstructure:"collection_id"`
	Bands        []string `yaml:"bands" mapstructure:"bands"`
	SceneBand    string   `yaml:"scene_band" mapstructure:"scene_band"`
	InvalidCodes []int    `yaml:"invalid_codes" mapstructure:"invalid_codes"`
	StartDate    string   `yaml:"start_date" mapstructure:"start_date"`
	EndDate      string   `yaml:"end_date" mapstructure:"end_date"`
	MaskClouds   bool     `yaml:"mask_clouds" mapstructure:"mask_clouds"`
	Scale        float64  `yaml:"scale" mapstructure:"scale"`
	RedBand      string   `yaml:"red_band" mapstructure:"red_band"`
	GreenBand    string   `yaml:"green_band" mapstructure:"green_band"`
	BlueBand     string   `yaml:"blue_band" mapstructure:"blue_band"`
	NIRBand      string   `yaml:"nir_band" mapstructure:"nir_band"`
	SWIRBand     string   `yaml:"swir_band" mapstructure:"swir_band"`
}

// GeometryConfig configures boundary stabilization.
type GeometryConfig struct {
	SimplifyToleranceM float64 `yaml:"simplify_tolerance_m" mapstructure:"simplify_tolerance_m"`
}

// SamplingConfig configures training-label sampling from the reference raster.
type SamplingConfig struct {
	ReferenceID   string `yaml:"reference_id" mapstructure:"reference_id"`
	ReferenceBand string `yaml:"reference_band" mapstructure:"reference_band"`
	Count         int    `yaml:"count" mapstructure:"count"`
	Seed          int64  `yaml:"seed" mapstructure:"seed"`
	TaxonomyFile  string `yaml:"taxonomy_file" mapstructure:"taxonomy_file"`
}

// ClassifierConfig configures the ensemble classifier.
type ClassifierConfig struct {
	Trees int   `yaml:"trees" mapstructure:"trees"`
	Seed  int64 `yaml:"seed" mapstructure:"seed"`
}

// BatchConfig configures concurrent region processing.
type BatchConfig struct {
	Concurrency       int `yaml:"concurrency" mapstructure:"concurrency"`
	RegionTimeoutSecs int `yaml:"region_timeout_secs" mapstructure:"region_timeout_secs"`
}

// BoundariesConfig configures region boundary ingestion.
type BoundariesConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
	URL       string `yaml:"url" mapstructure:"url"`
	DataDir   string `yaml:"data_dir" mapstructure:"data_dir"`
}

// StoreConfig configures the run-record database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LANDCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.base_url", "http://localhost:9090")
	v.SetDefault("engine.rate_limit", 5.0)
	v.SetDefault("engine.burst", 5)
	v.SetDefault("engine.timeout_secs", 120)
	v.SetDefault("composite.collection_id", "COPERNICUS/S2_SR_HARMONIZED")
	v.SetDefault("composite.bands", []string{"B2", "B3", "B4", "B8", "B11", "B12"})
	v.SetDefault("composite.scene_band", "SCL")
	v.SetDefault("composite.invalid_codes", []int{1, 3, 8, 9, 10, 11})
	v.SetDefault("composite.start_date", "2023-01-01")
	v.SetDefault("composite.end_date", "2024-01-01")
	v.SetDefault("composite.mask_clouds", true)
	v.SetDefault("composite.scale", 10.0)
	v.SetDefault("composite.red_band", "B4")
	v.SetDefault("composite.green_band", "B3")
	v.SetDefault("composite.blue_band", "B2")
	v.SetDefault("composite.nir_band", "B8")
	v.SetDefault("composite.swir_band", "B11")
	v.SetDefault("geometry.simplify_tolerance_m", 100.0)
	v.SetDefault("sampling.reference_id", "GLOBAL/LANDCOVER/ANNUAL_V2")
	v.SetDefault("sampling.reference_band", "Map")
	v.SetDefault("sampling.count", 500)
	v.SetDefault("sampling.seed", 42)
	v.SetDefault("classifier.trees", 200)
	v.SetDefault("classifier.seed", 42)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.region_timeout_secs", 900)
	v.SetDefault("boundaries.path", "data/regions.shp")
	v.SetDefault("boundaries.name_field", "NAME")
	v.SetDefault("boundaries.data_dir", "data")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "landcover.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
