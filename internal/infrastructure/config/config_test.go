package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: "rego-test"
  version_sensor: true
serial:
  device: "/dev/ttyAMA0"
  inter_byte_gap: 30ms
scheduler:
  max_retries: 2
  response_timeout: 750ms
  request_pause: 0s
  sensor_interval: 1m
endpoints:
  - id: radiator_return
    kind: sensor
    sensor: gt1
    unit: "°C"
  - id: room_setpoint
    kind: number
    command: 0x02
    write_command: 0x03
    address: 0x0021
    min: 10
    max: 30
    step: 0.5
  - id: display_row_1
    kind: text_sensor
    command: 0x20
    address: 0x01
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "localhost"
    port: 1883
  qos: 1
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "rego-test" || !cfg.Bridge.VersionSensor {
		t.Errorf("Bridge = %+v", cfg.Bridge)
	}
	if cfg.Serial.Device != "/dev/ttyAMA0" || cfg.Serial.InterByteGap != 30*time.Millisecond {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.Serial.BaudRate != 19200 {
		t.Errorf("Serial.BaudRate = %d, want default 19200", cfg.Serial.BaudRate)
	}
	if cfg.Scheduler.ResponseTimeout != 750*time.Millisecond || cfg.Scheduler.RequestPause != 0 {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.BinaryInterval != 30*time.Second {
		t.Errorf("Scheduler.BinaryInterval = %v, want default 30s", cfg.Scheduler.BinaryInterval)
	}

	if len(cfg.Endpoints) != 3 {
		t.Fatalf("len(Endpoints) = %d, want 3", len(cfg.Endpoints))
	}
	num := cfg.Endpoints[1]
	if num.Command != 0x02 || num.WriteCommand != 0x03 || num.Address != 0x21 || num.Step != 0.5 {
		t.Errorf("number endpoint = %+v", num)
	}
	if cfg.Endpoints[2].Command != 0x20 {
		t.Errorf("text endpoint command = 0x%02X", cfg.Endpoints[2].Command)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
bridge:
  id: ""
endpoints:
  - id: bad
    kind: sensor
    command: 0x80
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error, got nil")
	}
	for _, want := range []string{"bridge.id", "endpoints[bad].command"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	number := EndpointConfig{ID: "n", Kind: KindNumber, Command: 0x02, WriteCommand: 0x03, Address: 0x6E, Min: 10, Max: 40, Step: 0.5}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "valid number", mutate: func(c *Config) { c.Endpoints = []EndpointConfig{number} }},
		{
			name:    "missing bridge ID",
			mutate:  func(c *Config) { c.Bridge.ID = "" },
			wantErr: "bridge.id",
		},
		{
			name:    "missing device",
			mutate:  func(c *Config) { c.Serial.Device = "" },
			wantErr: "serial.device",
		},
		{
			name:   "missing device with simulator",
			mutate: func(c *Config) { c.Serial.Device = ""; c.Serial.Simulate = true },
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Scheduler.MaxRetries = -1 },
			wantErr: "scheduler.max_retries",
		},
		{
			name:    "zero response timeout",
			mutate:  func(c *Config) { c.Scheduler.ResponseTimeout = 0 },
			wantErr: "scheduler.response_timeout",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:   "port ignored when api disabled",
			mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 },
		},
		{
			name:    "influx without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Endpoints = []EndpointConfig{{ID: "x", Kind: "thermostat"}} },
			wantErr: "endpoints[x].kind",
		},
		{
			name: "duplicate id",
			mutate: func(c *Config) {
				c.Endpoints = []EndpointConfig{{ID: "x", Kind: KindSensor}, {ID: "x", Kind: KindSensor}}
			},
			wantErr: "duplicate id",
		},
		{
			name:    "address above 0x0300",
			mutate:  func(c *Config) { c.Endpoints = []EndpointConfig{{ID: "x", Kind: KindSensor, Address: 0x0301}} },
			wantErr: "endpoints[x].address",
		},
		{
			name: "number bounds outside -100..100",
			mutate: func(c *Config) {
				n := number
				n.Max = 150
				c.Endpoints = []EndpointConfig{n}
			},
			wantErr: "endpoints[n].min and .max",
		},
		{
			name: "number step too large",
			mutate: func(c *Config) {
				n := number
				n.Step = 5
				c.Endpoints = []EndpointConfig{n}
			},
			wantErr: "endpoints[n].step",
		},
		{
			name:    "missing endpoint id",
			mutate:  func(c *Config) { c.Endpoints = []EndpointConfig{{Kind: KindSensor}} },
			wantErr: "endpoints[0].id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Bridge: BridgeConfig{HealthInterval: 15},
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	if got := cfg.GetHealthInterval(); got != 15*time.Second {
		t.Errorf("GetHealthInterval() = %v, want 15s", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("REGO_SERIAL_DEVICE", "/dev/ttyS1")
	t.Setenv("REGO_SERIAL_SIMULATE", "true")
	t.Setenv("REGO_DATABASE_PATH", "/custom/path.db")
	t.Setenv("REGO_MQTT_HOST", "mqtt.example.com")
	t.Setenv("REGO_MQTT_PORT", "8883")
	t.Setenv("REGO_MQTT_USERNAME", "testuser")
	t.Setenv("REGO_MQTT_PASSWORD", "testpass")
	t.Setenv("REGO_API_HOST", "192.168.1.1")
	t.Setenv("REGO_API_PORT", "9000")
	t.Setenv("REGO_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("REGO_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Serial.Device != "/dev/ttyS1" || !cfg.Serial.Simulate {
		t.Errorf("Serial = %+v", cfg.Serial)
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" || cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}

	if cfg.MQTT.Auth.Username != "testuser" || cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth = %+v", cfg.MQTT.Auth)
	}

	if cfg.API.Host != "192.168.1.1" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v", cfg.API)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_IgnoresMalformed(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("REGO_MQTT_PORT", "not-a-port")
	t.Setenv("REGO_SERIAL_SIMULATE", "maybe")

	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want default kept", cfg.MQTT.Broker.Port)
	}
	if cfg.Serial.Simulate {
		t.Error("Serial.Simulate set from malformed value")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Bridge.ID == "" {
		t.Error("defaultConfig should have non-empty Bridge.ID")
	}

	if cfg.Serial.BaudRate != 19200 {
		t.Errorf("defaultConfig Serial.BaudRate = %d, want 19200", cfg.Serial.BaudRate)
	}

	if cfg.Scheduler.RequestPause != time.Second || cfg.Scheduler.SensorInterval != 2*time.Minute {
		t.Errorf("defaultConfig Scheduler = %+v", cfg.Scheduler)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig is not valid: %v", err)
	}
}
