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
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Partition PartitionConfig `yaml:"partition" mapstructure:"partition"`
	Raster    RasterConfig    `yaml:"raster" mapstructure:"raster"`
	Features  FeaturesConfig  `yaml:"features" mapstructure:"features"`
	Workers   WorkersConfig   `yaml:"workers" mapstructure:"workers"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig configures the scene catalog search.
type CatalogConfig struct {
	URL         string   `yaml:"url" mapstructure:"url"`
	Collection  string   `yaml:"collection" mapstructure:"collection"`
	DateStart   string   `yaml:"date_start" mapstructure:"date_start"`
	DateEnd     string   `yaml:"date_end" mapstructure:"date_end"`
	MaxCloudPct float64  `yaml:"max_cloud_pct" mapstructure:"max_cloud_pct"`
	Limit       int      `yaml:"limit" mapstructure:"limit"`
	RatePerSec  float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Bands       []string `yaml:"bands" mapstructure:"bands"`
}

// PartitionConfig configures the spatial partitioner.
type PartitionConfig struct {
	Count int `yaml:"count" mapstructure:"count"`
}

// RasterConfig configures windowed chip extraction.
type RasterConfig struct {
	BufferMeters float64 `yaml:"buffer_meters" mapstructure:"buffer_meters"`
	MinChipPx    int     `yaml:"min_chip_px" mapstructure:"min_chip_px"`
	// Channels is the total chip channel count summed over the configured
	// band assets, e.g. 3 for the RGB "visual" asset. Extraction fails per
	// point if an asset's actual band count disagrees.
	Channels int `yaml:"channels" mapstructure:"channels"`
}

// FeaturesConfig configures the random convolutional feature encoder.
type FeaturesConfig struct {
	Count      int     `yaml:"count" mapstructure:"count"`
	KernelSize int     `yaml:"kernel_size" mapstructure:"kernel_size"`
	Seed       uint64  `yaml:"seed" mapstructure:"seed"`
	Bias       float64 `yaml:"bias" mapstructure:"bias"`
}

// WorkersConfig sizes the worker pools. Resolve is bounded by the catalog's
// rate tolerance; Extract is I/O-bound and sized above CPU count.
type WorkersConfig struct {
	Resolve int `yaml:"resolve" mapstructure:"resolve"`
	Extract int `yaml:"extract" mapstructure:"extract"`
}

// StoreConfig configures the run store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("SATFEAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.url", "https://planetarycomputer.microsoft.com/api/stac/v1")
	v.SetDefault("catalog.collection", "sentinel-2-l2a")
	v.SetDefault("catalog.date_start", "2023-01-01")
	v.SetDefault("catalog.date_end", "2023-12-31")
	v.SetDefault("catalog.max_cloud_pct", 20)
	v.SetDefault("catalog.limit", 200)
	v.SetDefault("catalog.rate_per_sec", 4)
	v.SetDefault("catalog.bands", []string{"visual"})
	v.SetDefault("partition.count", 100)
	v.SetDefault("raster.buffer_meters", 500)
	v.SetDefault("raster.min_chip_px", 20)
	v.SetDefault("raster.channels", 3)
	v.SetDefault("features.count", 1024)
	v.SetDefault("features.kernel_size", 3)
	v.SetDefault("features.seed", 42)
	v.SetDefault("features.bias", -1.0)
	v.SetDefault("workers.resolve", 8)
	v.SetDefault("workers.extract", 32)
	v.SetDefault("store.path", "satfeat.db")
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

// Validate rejects configurations that would otherwise only fail mid-run.
// It is called once at startup, before any catalog or raster work begins.
func (c *Config) Validate() error {
	if c.Partition.Count < 1 {
		return eris.Errorf("config: partition.count must be >= 1, got %d", c.Partition.Count)
	}
	if c.Features.Count < 2 || c.Features.Count%2 != 0 {
		return eris.Errorf("config: features.count must be even and >= 2, got %d", c.Features.Count)
	}
	if c.Features.KernelSize < 1 {
		return eris.Errorf("config: features.kernel_size must be >= 1, got %d", c.Features.KernelSize)
	}
	if c.Raster.MinChipPx < c.Features.KernelSize {
		return eris.Errorf("config: raster.min_chip_px (%d) must be >= features.kernel_size (%d)",
			c.Raster.MinChipPx, c.Features.KernelSize)
	}
	if c.Raster.Channels < 1 {
		return eris.Errorf("config: raster.channels must be >= 1, got %d", c.Raster.Channels)
	}
	if c.Raster.BufferMeters <= 0 {
		return eris.Errorf("config: raster.buffer_meters must be positive, got %v", c.Raster.BufferMeters)
	}
	if c.Workers.Resolve < 1 || c.Workers.Extract < 1 {
		return eris.Errorf("config: worker pool sizes must be >= 1, got resolve=%d extract=%d",
			c.Workers.Resolve, c.Workers.Extract)
	}
	if c.Catalog.MaxCloudPct < 0 || c.Catalog.MaxCloudPct > 100 {
		return eris.Errorf("config: catalog.max_cloud_pct must be in [0,100], got %v", c.Catalog.MaxCloudPct)
	}
	if c.Catalog.Limit < 1 {
		return eris.Errorf("config: catalog.limit must be >= 1, got %d", c.Catalog.Limit)
	}
	if c.Catalog.RatePerSec <= 0 {
		return eris.Errorf("config: catalog.rate_per_sec must be positive, got %v", c.Catalog.RatePerSec)
	}
	if len(c.Catalog.Bands) == 0 {
		return eris.New("config: catalog.bands must name at least one band")
	}
	return nil
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
