// v0
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config captures all runtime settings of the farm monitor. Values come
// from defaults, an optional properties file and FARM_* environment
// variables, in that order.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// LogFilePath is the file the application log is teed into.
	LogFilePath      string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string

	// SampleInterval is the dashboard polling period.
	SampleInterval time.Duration
	// FlushSettleDelay is the wait before the flush refill lands.
	FlushSettleDelay          time.Duration
	DiagnosticsTempJitter     float64
	DiagnosticsHumidityJitter float64
	// InitialJitter perturbs the starting channel values.
	InitialJitter bool

	LogFeedCapacity int
	LogFeedInterval time.Duration
	LogFeedChance   float64
	// LogCatalogPath optionally points at a YAML message catalog.
	LogCatalogPath string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaTopicPrefix string
	MQTTEnabled      bool
	MQTTBroker       string
	MQTTTopicPrefix  string
	MQTTClientID     string

	BreakerMaxFailures int
	BreakerReset       time.Duration

	CORSOrigins []string
}

const (
	envPrefix = "FARM_"

	defaultListenAddress   = ":8080"
	defaultLogFile         = "logs/farmmonitor.log"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdown        = 5 * time.Second
	defaultPropsPath       = "farmmonitor.properties"
	defaultSampleInterval  = 30 * time.Second
	defaultFlushSettle     = 3 * time.Second
	defaultDiagTempJitter  = 1.0
	defaultDiagHumidJitter = 2.5
	defaultFeedCapacity    = 50
	defaultFeedInterval    = 10 * time.Second
	defaultFeedChance      = 0.3
	defaultJWTSecret       = "farmmonitor-dev-secret"
	defaultTokenTTL        = 12 * time.Hour
	defaultAdminEmail      = "admin@farm.local"
	defaultAdminPassword   = "admin123"
	defaultKafkaBrokers    = "kafka:9092"
	defaultTopicPrefix     = "farm"
	defaultMQTTBroker      = "tcp://mosquitto:1883"
	defaultMQTTClientID    = "farmmonitor"
	defaultBreakerFailures = 5
	defaultBreakerReset    = 10 * time.Second
	defaultCORSOrigins     = "*"
)

// Keys lists every recognised property key.
var Keys = []string{
	"listen_address", "log_path", "http_read_timeout_ms", "http_write_timeout_ms",
	"shutdown_timeout_ms", "sample_interval_ms", "flush_settle_delay_ms",
	"diagnostics_temp_jitter", "diagnostics_humidity_jitter", "initial_jitter",
	"log_feed_capacity", "log_feed_interval_ms", "log_feed_chance", "log_catalog_path",
	"jwt_secret", "token_ttl_ms", "admin_email", "admin_password",
	"kafka_enabled", "kafka_brokers", "kafka_topic_prefix",
	"mqtt_enabled", "mqtt_broker", "mqtt_topic_prefix", "mqtt_client_id",
	"breaker_max_failures", "breaker_reset_ms", "cors_origins",
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ListenAddress:             defaultListenAddress,
		LogFilePath:               filepath.Clean(defaultLogFile),
		HTTPReadTimeout:           defaultReadTimeout,
		HTTPWriteTimeout:          defaultWriteTimeout,
		ShutdownTimeout:           defaultShutdown,
		PropertiesPath:            defaultPropsPath,
		SampleInterval:            defaultSampleInterval,
		FlushSettleDelay:          defaultFlushSettle,
		DiagnosticsTempJitter:     defaultDiagTempJitter,
		DiagnosticsHumidityJitter: defaultDiagHumidJitter,
		InitialJitter:             true,
		LogFeedCapacity:           defaultFeedCapacity,
		LogFeedInterval:           defaultFeedInterval,
		LogFeedChance:             defaultFeedChance,
		JWTSecret:                 defaultJWTSecret,
		TokenTTL:                  defaultTokenTTL,
		AdminEmail:                defaultAdminEmail,
		AdminPassword:             defaultAdminPassword,
		KafkaBrokers:              splitAndTrim(defaultKafkaBrokers),
		KafkaTopicPrefix:          defaultTopicPrefix,
		MQTTBroker:                defaultMQTTBroker,
		MQTTTopicPrefix:           defaultTopicPrefix,
		MQTTClientID:              defaultMQTTClientID,
		BreakerMaxFailures:        defaultBreakerFailures,
		BreakerReset:              defaultBreakerReset,
		CORSOrigins:               splitAndTrim(defaultCORSOrigins),
	}
}

// Load layers defaults, the properties file and the environment. The
// properties file location can be overridden with FARM_PROPERTIES_PATH; a
// missing file is not an error.
func Load() (Config, error) {
	cfg := Default()

	propsPath := strings.TrimSpace(os.Getenv(envPrefix + "PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyProperties reads key=value lines from path. Blank lines and lines
// starting with # or ; are skipped. Unknown keys are ignored, while a known
// key with an invalid value fails the whole load with the key named in the
// error.
func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

// applyEnv reads FARM_<KEY> for every property key, e.g. FARM_LISTEN_ADDRESS.
func applyEnv(cfg *Config) error {
	for _, key := range Keys {
		name := envPrefix + strings.ToUpper(key)
		v, ok := lookupEnvTrimmed(name)
		if !ok {
			continue
		}
		if err := setProperty(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	var err error
	switch key {
	case "listen_address":
		cfg.ListenAddress, err = nonEmpty(value)
	case "log_path":
		var p string
		if p, err = nonEmpty(value); err == nil {
			cfg.LogFilePath = filepath.Clean(p)
		}
	case "http_read_timeout_ms":
		cfg.HTTPReadTimeout, err = parsePositiveMillis(value)
	case "http_write_timeout_ms":
		cfg.HTTPWriteTimeout, err = parsePositiveMillis(value)
	case "shutdown_timeout_ms":
		cfg.ShutdownTimeout, err = parsePositiveMillis(value)
	case "sample_interval_ms":
		cfg.SampleInterval, err = parsePositiveMillis(value)
	case "flush_settle_delay_ms":
		cfg.FlushSettleDelay, err = parsePositiveMillis(value)
	case "diagnostics_temp_jitter":
		cfg.DiagnosticsTempJitter, err = parseNonNegativeFloat(value)
	case "diagnostics_humidity_jitter":
		cfg.DiagnosticsHumidityJitter, err = parseNonNegativeFloat(value)
	case "initial_jitter":
		cfg.InitialJitter, err = parseBool(value)
	case "log_feed_capacity":
		cfg.LogFeedCapacity, err = parsePositiveInt(value)
	case "log_feed_interval_ms":
		cfg.LogFeedInterval, err = parsePositiveMillis(value)
	case "log_feed_chance":
		var f float64
		if f, err = parseNonNegativeFloat(value); err == nil {
			if f > 1 {
				return errors.New("value must be between 0 and 1")
			}
			cfg.LogFeedChance = f
		}
	case "log_catalog_path":
		cfg.LogCatalogPath = value
	case "jwt_secret":
		cfg.JWTSecret, err = nonEmpty(value)
	case "token_ttl_ms":
		cfg.TokenTTL, err = parsePositiveMillis(value)
	case "admin_email":
		cfg.AdminEmail = value
	case "admin_password":
		cfg.AdminPassword = value
	case "kafka_enabled":
		cfg.KafkaEnabled, err = parseBool(value)
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "kafka_topic_prefix":
		cfg.KafkaTopicPrefix, err = nonEmpty(value)
	case "mqtt_enabled":
		cfg.MQTTEnabled, err = parseBool(value)
	case "mqtt_broker":
		cfg.MQTTBroker, err = nonEmpty(value)
	case "mqtt_topic_prefix":
		cfg.MQTTTopicPrefix, err = nonEmpty(value)
	case "mqtt_client_id":
		cfg.MQTTClientID, err = nonEmpty(value)
	case "breaker_max_failures":
		cfg.BreakerMaxFailures, err = parsePositiveInt(value)
	case "breaker_reset_ms":
		cfg.BreakerReset, err = parsePositiveMillis(value)
	case "cors_origins":
		cfg.CORSOrigins = splitAndTrim(value)
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return err
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func nonEmpty(v string) (string, error) {
	if v == "" {
		return "", errors.New("value cannot be empty")
	}
	return v, nil
}

func parseBool(v string) (bool, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean: %w", err)
	}
	return b, nil
}

func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return n, nil
}

func parseNonNegativeFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return 0, errors.New("value must not be negative")
	}
	return f, nil
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}
