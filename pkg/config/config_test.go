package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Forecast.WindowSize != 10 || c.Forecast.Epochs != 100 || c.Forecast.BatchSize != 32 {
		t.Fatalf("unexpected forecast defaults: %+v", c.Forecast)
	}
	if !c.Forecast.ShouldTrain {
		t.Fatal("expected should_train to default to true")
	}
	if c.Forecast.Model != "cnn" || c.Forecast.LearningRate != 0.001 {
		t.Fatalf("unexpected model defaults: %+v", c.Forecast)
	}
	if c.Data.CacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %v", c.Data.CacheTTL)
	}
	if got := strings.Join(c.Chart.Sizes, ","); got != "small,medium,big" {
		t.Fatalf("unexpected chart sizes %q", got)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
forecast:
  symbol: ETHUSDT
  window_size: 20
  should_train: false
  model: rnn
chart:
  sizes: [small]
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Forecast.Symbol != "ETHUSDT" || c.Forecast.WindowSize != 20 || c.Forecast.Model != "rnn" {
		t.Fatalf("file values not applied: %+v", c.Forecast)
	}
	if c.Forecast.ShouldTrain {
		t.Fatal("expected should_train false from file")
	}
	if c.Forecast.Epochs != 100 {
		t.Fatalf("expected untouched default epochs, got %d", c.Forecast.Epochs)
	}
	if len(c.Chart.Sizes) != 1 || c.Chart.Sizes[0] != "small" {
		t.Fatalf("unexpected sizes %v", c.Chart.Sizes)
	}
}

func TestEnvOverrides(t *testing.T) {
	c := &Config{}
	env := map[string]string{
		"PRICECAST_SYMBOL":        "SOLUSDT",
		"PRICECAST_EPOCHS":        "7",
		"PRICECAST_SHOULD_TRAIN":  "false",
		"PRICECAST_KAFKA_BROKERS": "a:9092,b:9092",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := c.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if c.Forecast.Symbol != "SOLUSDT" || c.Forecast.Epochs != 7 || c.Forecast.ShouldTrain {
		t.Fatalf("env not applied: %+v", c.Forecast)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 {
		t.Fatalf("expected kafka enabled with two brokers, got %+v", c.Kafka)
	}

	env = map[string]string{"PRICECAST_EPOCHS": "many"}
	if err := c.applyEnv(lookup); err == nil {
		t.Fatal("expected error for non-numeric epochs")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad model", "forecast:\n  model: transformer\n"},
		{"bad timeframe", "forecast:\n  timeframe: 2h\n"},
		{"cnn window too small", "forecast:\n  window_size: 4\n"},
		{"bad chart size", "chart:\n  sizes: [huge]\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n  brokers: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
