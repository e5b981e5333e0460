package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sartorproj/skuforecast/arima"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Path != "updated_mock_sku_demand_data.csv" {
		t.Errorf("unexpected source path %q", cfg.Source.Path)
	}
	if len(cfg.Targets) != 2 || cfg.Targets[0].ID != "PEP-ORG-330C" || cfg.Targets[1].ID != "MD-ORG-600B" {
		t.Errorf("unexpected default targets %+v", cfg.Targets)
	}
	if cfg.Forecast.Horizon != 1 || cfg.Forecast.MinHistory != 10 {
		t.Errorf("unexpected forecast defaults %+v", cfg.Forecast)
	}
	if cfg.Forecast.Order != (arima.Order{P: 2, D: 1, Q: 2}) {
		t.Errorf("unexpected default order %v", cfg.Forecast.Order)
	}
	if cfg.Forecast.FitTimeout != 30*time.Second {
		t.Errorf("unexpected fit timeout %v", cfg.Forecast.FitTimeout)
	}
	if cfg.Anchor() != time.Monday {
		t.Errorf("expected Monday anchor, got %v", cfg.Anchor())
	}
	if len(cfg.Forecast.FallbackOrders) != 0 {
		t.Errorf("expected no fallback orders, got %v", cfg.Forecast.FallbackOrders)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
source:
  path: data/history.csv
targets:
  - id: SKU-1
    name: First
forecast:
  horizon: 4
  anchor_weekday: friday
  order: {p: 1, d: 1, q: 1}
  fallback_orders:
    - {p: 0, d: 1, q: 1}
  fit_timeout: 5s
  workers: 2
  partial: true
output:
  json_path: out/forecast.json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Path != "data/history.csv" {
		t.Errorf("unexpected source path %q", cfg.Source.Path)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0].Name != "First" {
		t.Errorf("unexpected targets %+v", cfg.Targets)
	}
	if cfg.Forecast.Horizon != 4 || cfg.Anchor() != time.Friday {
		t.Errorf("unexpected forecast %+v", cfg.Forecast)
	}
	if cfg.Forecast.Order != (arima.Order{P: 1, D: 1, Q: 1}) {
		t.Errorf("unexpected order %v", cfg.Forecast.Order)
	}
	if len(cfg.Forecast.FallbackOrders) != 1 || cfg.Forecast.FallbackOrders[0].Q != 1 {
		t.Errorf("unexpected fallback orders %v", cfg.Forecast.FallbackOrders)
	}
	if cfg.Forecast.FitTimeout != 5*time.Second || cfg.Forecast.Workers != 2 || !cfg.Forecast.Partial {
		t.Errorf("unexpected forecast settings %+v", cfg.Forecast)
	}
	if cfg.Output.JSONPath != "out/forecast.json" {
		t.Errorf("unexpected json path %q", cfg.Output.JSONPath)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "forecast:\n  horizon: 2\n")
	t.Setenv("SKUFORECAST_HORIZON", "6")
	t.Setenv("SKUFORECAST_SOURCE_PATH", "env.csv")
	t.Setenv("SKUFORECAST_FIT_TIMEOUT", "1m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Forecast.Horizon != 6 {
		t.Errorf("expected env horizon 6, got %d", cfg.Forecast.Horizon)
	}
	if cfg.Source.Path != "env.csv" {
		t.Errorf("expected env source path, got %q", cfg.Source.Path)
	}
	if cfg.Forecast.FitTimeout != time.Minute {
		t.Errorf("expected 1m timeout, got %v", cfg.Forecast.FitTimeout)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "forecast: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"horizon", func(c *Config) { c.Forecast.Horizon = -1 }, "horizon"},
		{"weekday", func(c *Config) { c.Forecast.AnchorWeekday = "someday" }, "anchor_weekday"},
		{"empty target", func(c *Config) { c.Targets[0].ID = " " }, "targets[0]"},
		{"duplicate target", func(c *Config) { c.Targets[1].ID = c.Targets[0].ID }, "duplicate"},
		{"min history below floor", func(c *Config) { c.Forecast.MinHistory = 3 }, "min_history"},
		{"order", func(c *Config) { c.Forecast.Order.P = -1 }, "forecast.order"},
		{"fallback", func(c *Config) { c.Forecast.FallbackOrders = []arima.Order{{Q: -2}} }, "fallback_orders[0]"},
		{"cron", func(c *Config) { c.Schedule.Cron = "whenever" }, "schedule.cron"},
		{"compression", func(c *Config) { c.Output.Compression = "brotli" }, "compression"},
		{"s3 bucket", func(c *Config) {
			c.Storage.S3.Enabled = true
			c.Output.ParquetPath = "out.parquet"
		}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateAcceptsStricterMinHistory(t *testing.T) {
	cfg := Default()
	cfg.Forecast.MinHistory = 26
	if err := cfg.Validate(); err != nil {
		t.Errorf("min_history above the floor should validate: %v", err)
	}
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{"Monday": time.Monday, "sun": time.Sunday, " FRI ": time.Friday} {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
