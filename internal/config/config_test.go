// v0
// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeProps(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "farmmonitor.properties")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("FARM_PROPERTIES_PATH", filepath.Join(t.TempDir(), "absent.properties"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.SampleInterval != 30*time.Second {
		t.Fatalf("sample interval: got %s", cfg.SampleInterval)
	}
	if cfg.FlushSettleDelay != 3*time.Second {
		t.Fatalf("flush settle: got %s", cfg.FlushSettleDelay)
	}
	if cfg.LogFeedCapacity != 50 || cfg.LogFeedChance != 0.3 {
		t.Fatalf("log feed defaults: %d %.2f", cfg.LogFeedCapacity, cfg.LogFeedChance)
	}
	if cfg.KafkaEnabled || cfg.MQTTEnabled {
		t.Fatalf("telemetry sinks should be off by default")
	}
}

func TestPropertiesThenEnvOverride(t *testing.T) {
	path := writeProps(t, strings.Join([]string{
		"# farm overrides",
		"listen_address=:9000",
		"sample_interval_ms=1500",
		"diagnostics_humidity_jitter=4",
		"kafka_enabled=true",
		"kafka_brokers=k1:9092, k2:9092",
		"initial_jitter=false",
		"unknown_key=ignored",
	}, "\n"))
	t.Setenv("FARM_PROPERTIES_PATH", path)
	t.Setenv("FARM_LISTEN_ADDRESS", ":9100")
	t.Setenv("FARM_LOG_FEED_CHANCE", "0.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddress != ":9100" {
		t.Fatalf("env should win: got %s", cfg.ListenAddress)
	}
	if cfg.SampleInterval != 1500*time.Millisecond {
		t.Fatalf("sample interval: got %s", cfg.SampleInterval)
	}
	if cfg.DiagnosticsHumidityJitter != 4 {
		t.Fatalf("humidity jitter: got %v", cfg.DiagnosticsHumidityJitter)
	}
	if !cfg.KafkaEnabled || len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("kafka: %v %v", cfg.KafkaEnabled, cfg.KafkaBrokers)
	}
	if cfg.InitialJitter {
		t.Fatalf("initial_jitter should be off")
	}
	if cfg.LogFeedChance != 0.5 {
		t.Fatalf("log feed chance: got %v", cfg.LogFeedChance)
	}
	if cfg.PropertiesPath != path {
		t.Fatalf("properties path: got %s", cfg.PropertiesPath)
	}
}

func TestInvalidValuesNameTheKey(t *testing.T) {
	cases := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{"malformed line", "listen_address", nil, "line 1"},
		{"negative duration", "sample_interval_ms=-5", nil, "sample_interval_ms"},
		{"bad bool", "mqtt_enabled=maybe", nil, "mqtt_enabled"},
		{"chance above one", "log_feed_chance=1.5", nil, "log_feed_chance"},
		{"env empty secret", "", map[string]string{"FARM_JWT_SECRET": " "}, "FARM_JWT_SECRET"},
		{"env bad capacity", "", map[string]string{"FARM_LOG_FEED_CAPACITY": "zero"}, "FARM_LOG_FEED_CAPACITY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("FARM_PROPERTIES_PATH", writeProps(t, tc.body))
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err, tc.want)
			}
		})
	}
}
