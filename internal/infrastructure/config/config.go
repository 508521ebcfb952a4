package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Rego bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig     `yaml:"bridge"`
	Serial    SerialConfig     `yaml:"serial"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
	Database  DatabaseConfig   `yaml:"database"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	API       APIConfig        `yaml:"api"`
	InfluxDB  InfluxDBConfig   `yaml:"influxdb"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// HealthInterval is how often health is published, in seconds.
	HealthInterval int `yaml:"health_interval"`

	// VersionSensor adds a sensor reading the Rego firmware version.
	VersionSensor bool `yaml:"version_sensor"`
}

// SerialConfig contains the UART settings for the heat-pump link.
type SerialConfig struct {
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`

	// Simulate replaces the device with an in-memory Rego 600.
	Simulate bool `yaml:"simulate"`

	// InterByteGap ends a partially received frame. Default: 20ms
	InterByteGap time.Duration `yaml:"inter_byte_gap"`
}

// SchedulerConfig contains polling, timeout and retry settings.
type SchedulerConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"`
	PollQuantum     time.Duration `yaml:"poll_quantum"`

	// RequestPause is the minimum gap between requests. 0 disables pacing.
	RequestPause time.Duration `yaml:"request_pause"`

	// LoopInterval is how often the controller loop ticks.
	LoopInterval time.Duration `yaml:"loop_interval"`

	// Default update intervals per endpoint kind.
	SensorInterval time.Duration `yaml:"sensor_interval"`
	BinaryInterval time.Duration `yaml:"binary_interval"`
	TextInterval   time.Duration `yaml:"text_interval"`
}

// EndpointConfig declares one value multiplexed over the link.
type EndpointConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Kind is sensor, binary_sensor, number, text_sensor or button.
	Kind string `yaml:"kind"`

	// Sensor names a system register (gt1 ... gt3x) in place of command/address.
	Sensor string `yaml:"sensor,omitempty"`

	Command      int `yaml:"command"`
	Address      int `yaml:"address"`
	WriteCommand int `yaml:"write_command,omitempty"`

	// Decode overrides the kind's default decode rule.
	Decode string `yaml:"decode,omitempty"`

	Min  float64 `yaml:"min,omitempty"`
	Max  float64 `yaml:"max,omitempty"`
	Step float64 `yaml:"step,omitempty"`

	ButtonValue int `yaml:"button_value,omitempty"`

	// UpdateInterval overrides the per-kind default.
	UpdateInterval time.Duration `yaml:"update_interval,omitempty"`

	Unit string `yaml:"unit,omitempty"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// SampleInterval is how often link statistics are written, in seconds.
	SampleInterval int `yaml:"sample_interval"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Endpoint kinds accepted in the endpoints section.
const (
	KindSensor       = "sensor"
	KindBinarySensor = "binary_sensor"
	KindNumber       = "number"
	KindTextSensor   = "text_sensor"
	KindButton       = "button"
)

// Protocol limits mirrored from the Rego 6xx command set.
const (
	maxCommand = 0x7F
	maxAddress = 0x0300
	minValue   = -100.0
	maxValue   = 100.0
	minStep    = 0.01
	maxStep    = 1.0
	maxRetries = 10
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: REGO_SECTION_KEY
// For example: REGO_SERIAL_DEVICE, REGO_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with the timings of a Rego 600 installation.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "rego-001",
			Name:           "Heat pump",
			HealthInterval: 30,
		},
		Serial: SerialConfig{
			Device:       "/dev/ttyUSB0",
			BaudRate:     19200,
			InterByteGap: 20 * time.Millisecond,
		},
		Scheduler: SchedulerConfig{
			MaxRetries:      3,
			ResponseTimeout: 500 * time.Millisecond,
			RetryBackoff:    200 * time.Millisecond,
			MaxRetryBackoff: 2 * time.Second,
			PollQuantum:     50 * time.Millisecond,
			RequestPause:    time.Second,
			LoopInterval:    10 * time.Millisecond,
			SensorInterval:  2 * time.Minute,
			BinaryInterval:  30 * time.Second,
			TextInterval:    30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/regobridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "regobridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:      100,
			FlushInterval:  10,
			SampleInterval: 60,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "rego",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/regobridge.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: REGO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Serial
	if v := os.Getenv("REGO_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v, ok := envBool("REGO_SERIAL_SIMULATE"); ok {
		cfg.Serial.Simulate = v
	}

	// Database
	if v := os.Getenv("REGO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("REGO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v, ok := envInt("REGO_MQTT_PORT"); ok {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("REGO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("REGO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("REGO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v, ok := envInt("REGO_API_PORT"); ok {
		cfg.API.Port = v
	}

	// InfluxDB
	if v := os.Getenv("REGO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("REGO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func envBool(key string) (bool, bool) {
	v, err := strconv.ParseBool(os.Getenv(key))
	return v, err == nil
}

func envInt(key string) (int, bool) {
	v, err := strconv.Atoi(os.Getenv(key))
	return v, err == nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// Serial validation
	if !c.Serial.Simulate && c.Serial.Device == "" {
		errs = append(errs, "serial.device is required unless serial.simulate is set")
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, "serial.baud_rate must be positive")
	}

	// Scheduler validation
	if c.Scheduler.MaxRetries < 0 || c.Scheduler.MaxRetries > maxRetries {
		errs = append(errs, fmt.Sprintf("scheduler.max_retries must be between 0 and %d", maxRetries))
	}
	if c.Scheduler.ResponseTimeout <= 0 {
		errs = append(errs, "scheduler.response_timeout must be positive")
	}
	if c.Scheduler.PollQuantum <= 0 {
		errs = append(errs, "scheduler.poll_quantum must be positive")
	}
	if c.Scheduler.LoopInterval <= 0 {
		errs = append(errs, "scheduler.loop_interval must be positive")
	}
	if c.Scheduler.RequestPause < 0 {
		errs = append(errs, "scheduler.request_pause must not be negative")
	}

	errs = append(errs, c.validateEndpoints()...)

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateEndpoints checks each endpoint against the protocol limits.
func (c *Config) validateEndpoints() []string {
	var errs []string
	seen := make(map[string]struct{}, len(c.Endpoints))

	for i, ep := range c.Endpoints {
		name := fmt.Sprintf("endpoints[%d]", i)
		if ep.ID == "" {
			errs = append(errs, name+".id is required")
		} else {
			name = fmt.Sprintf("endpoints[%s]", ep.ID)
			if _, dup := seen[ep.ID]; dup {
				errs = append(errs, name+": duplicate id")
			}
			seen[ep.ID] = struct{}{}
		}

		switch ep.Kind {
		case KindSensor, KindBinarySensor, KindTextSensor:
		case KindNumber:
			errs = append(errs, validateNumber(name, ep)...)
		case KindButton:
			if ep.WriteCommand < 0 || ep.WriteCommand > maxCommand {
				errs = append(errs, name+".write_command must be between 0x00 and 0x7F")
			}
		default:
			errs = append(errs, fmt.Sprintf("%s.kind %q is not one of sensor, binary_sensor, number, text_sensor, button", name, ep.Kind))
		}

		if ep.Sensor != "" {
			continue
		}
		if ep.Command < 0 || ep.Command > maxCommand {
			errs = append(errs, name+".command must be between 0x00 and 0x7F")
		}
		if ep.Address < 0 || ep.Address > maxAddress {
			errs = append(errs, name+".address must be between 0x0000 and 0x0300")
		}
	}

	return errs
}

func validateNumber(name string, ep EndpointConfig) []string {
	var errs []string
	if ep.WriteCommand < 0 || ep.WriteCommand > maxCommand {
		errs = append(errs, name+".write_command must be between 0x00 and 0x7F")
	}
	if ep.Min < minValue || ep.Max > maxValue || ep.Min >= ep.Max {
		errs = append(errs, name+".min and .max must be ordered and within [-100, 100]")
	}
	if ep.Step < minStep || ep.Step > maxStep {
		errs = append(errs, name+".step must be between 0.01 and 1.00")
	}
	return errs
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetHealthInterval returns the health publish interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}
