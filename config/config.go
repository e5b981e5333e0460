// Package config loads skuforecast settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/skuforecast/arima"
	"github.com/sartorproj/skuforecast/demand"
)

// Config holds all application configuration.
type Config struct {
	Source struct {
		Path string `yaml:"path" env:"SKUFORECAST_SOURCE_PATH"`
	} `yaml:"source"`
	Targets  []demand.Target `yaml:"targets"`
	Forecast struct {
		Horizon        int           `yaml:"horizon" env:"SKUFORECAST_HORIZON"`
		AnchorWeekday  string        `yaml:"anchor_weekday" env:"SKUFORECAST_ANCHOR_WEEKDAY"`
		MinHistory     int           `yaml:"min_history" env:"SKUFORECAST_MIN_HISTORY"`
		Order          arima.Order   `yaml:"order"`
		FallbackOrders []arima.Order `yaml:"fallback_orders"`
		FitTimeout     time.Duration `yaml:"fit_timeout" env:"SKUFORECAST_FIT_TIMEOUT"`
		Workers        int           `yaml:"workers" env:"SKUFORECAST_WORKERS"`
		Partial        bool          `yaml:"partial" env:"SKUFORECAST_PARTIAL"`
	} `yaml:"forecast"`
	Output struct {
		JSONPath    string `yaml:"json_path" env:"SKUFORECAST_OUTPUT_JSON"`
		CSVPath     string `yaml:"csv_path" env:"SKUFORECAST_OUTPUT_CSV"`
		ParquetPath string `yaml:"parquet_path" env:"SKUFORECAST_OUTPUT_PARQUET"`
		Compression string `yaml:"compression" env:"SKUFORECAST_OUTPUT_COMPRESSION"`
	} `yaml:"output"`
	Storage struct {
		SQLitePath string `yaml:"sqlite_path" env:"SKUFORECAST_SQLITE_PATH"`
		S3         struct {
			Enabled         bool   `yaml:"enabled" env:"SKUFORECAST_S3_ENABLED"`
			Bucket          string `yaml:"bucket" env:"SKUFORECAST_S3_BUCKET"`
			Region          string `yaml:"region" env:"AWS_REGION"`
			Prefix          string `yaml:"prefix" env:"SKUFORECAST_S3_PREFIX"`
			Endpoint        string `yaml:"endpoint" env:"SKUFORECAST_S3_ENDPOINT"`
			PathStyle       bool   `yaml:"path_style" env:"SKUFORECAST_S3_PATH_STYLE"`
			AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
			SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
		} `yaml:"s3"`
	} `yaml:"storage"`
	Metrics struct {
		CloudWatch struct {
			Enabled   bool   `yaml:"enabled" env:"SKUFORECAST_CLOUDWATCH_ENABLED"`
			Region    string `yaml:"region" env:"SKUFORECAST_CLOUDWATCH_REGION"`
			Namespace string `yaml:"namespace" env:"SKUFORECAST_CLOUDWATCH_NAMESPACE"`
		} `yaml:"cloudwatch"`
	} `yaml:"metrics"`
	Schedule struct {
		Cron string `yaml:"cron" env:"SKUFORECAST_CRON"`
	} `yaml:"schedule"`
	Logging struct {
		Level  string `yaml:"level" env:"SKUFORECAST_LOG_LEVEL"`
		Format string `yaml:"format" env:"SKUFORECAST_LOG_FORMAT"`
		Output string `yaml:"output" env:"SKUFORECAST_LOG_OUTPUT"`
		MaxAge int    `yaml:"max_age" env:"SKUFORECAST_LOG_MAX_AGE"`
	} `yaml:"logging"`
}

// DefaultTargets are the SKUs forecast when none are configured.
var DefaultTargets = []demand.Target{
	{ID: "PEP-ORG-330C", Name: "Pepsi Original 330ml Can"},
	{ID: "MD-ORG-600B", Name: "Mountain Dew 600ml Bottle"},
}

// DefaultOrder is the model order used when none is configured.
var DefaultOrder = arima.Order{P: 2, D: 1, Q: 2}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the configuration used with no file and no environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// An all-zero order is treated as unset.
func (c *Config) applyDefaults() {
	if c.Source.Path == "" {
		c.Source.Path = "updated_mock_sku_demand_data.csv"
	}
	if len(c.Targets) == 0 {
		c.Targets = append([]demand.Target(nil), DefaultTargets...)
	}
	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = 1
	}
	if c.Forecast.AnchorWeekday == "" {
		c.Forecast.AnchorWeekday = "monday"
	}
	if c.Forecast.MinHistory == 0 {
		c.Forecast.MinHistory = demand.MinHistory
	}
	if c.Forecast.Order == (arima.Order{}) {
		c.Forecast.Order = DefaultOrder
	}
	if c.Forecast.FitTimeout == 0 {
		c.Forecast.FitTimeout = 30 * time.Second
	}
	if c.Forecast.Workers == 0 {
		c.Forecast.Workers = runtime.NumCPU()
	}
	if c.Output.Compression == "" {
		c.Output.Compression = "snappy"
	}
	if c.Storage.S3.Prefix == "" {
		c.Storage.S3.Prefix = "forecasts"
	}
	if c.Metrics.CloudWatch.Namespace == "" {
		c.Metrics.CloudWatch.Namespace = "SKUForecast"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("targets[%d].id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("targets[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
	}
	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("forecast.horizon must be at least 1")
	}
	if _, err := ParseWeekday(c.Forecast.AnchorWeekday); err != nil {
		return fmt.Errorf("forecast.anchor_weekday: %w", err)
	}
	if c.Forecast.MinHistory < demand.MinHistory {
		return fmt.Errorf("forecast.min_history must be at least %d", demand.MinHistory)
	}
	if err := c.Forecast.Order.Validate(); err != nil {
		return fmt.Errorf("forecast.order: %w", err)
	}
	for i, o := range c.Forecast.FallbackOrders {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("forecast.fallback_orders[%d]: %w", i, err)
		}
	}
	if c.Forecast.FitTimeout < 0 {
		return fmt.Errorf("forecast.fit_timeout must not be negative")
	}
	if c.Forecast.Workers < 1 {
		return fmt.Errorf("forecast.workers must be positive")
	}
	switch strings.ToLower(c.Output.Compression) {
	case "snappy", "gzip", "zstd", "uncompressed", "none":
	default:
		return fmt.Errorf("output.compression %q is not supported", c.Output.Compression)
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron: %w", err)
		}
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("storage.s3.bucket is required when s3 is enabled")
	}
	if c.Storage.S3.Enabled && c.Output.ParquetPath == "" {
		return fmt.Errorf("output.parquet_path is required when s3 is enabled")
	}
	return nil
}

// Anchor returns the configured forecast weekday. It assumes Validate passed.
func (c *Config) Anchor() time.Weekday {
	wd, _ := ParseWeekday(c.Forecast.AnchorWeekday)
	return wd
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday parses a weekday name such as "monday" or "Mon".
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return time.Sunday, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}
