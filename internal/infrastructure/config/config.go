package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend modes.
const (
	// BackendRemote talks to a WCF bridge process over MQTT.
	BackendRemote = "remote"

	// BackendSimulator serves a local, session-less backend for development.
	BackendSimulator = "simulator"
)

// Config is the root configuration structure for the WCF gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Backend   BackendConfig   `yaml:"backend"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Media     MediaConfig     `yaml:"media"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
//
// Write must leave room for the longest attachment poll (timeout is a uint8,
// so up to 255 one-second attempts).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the captured-message relay.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// BackendConfig selects and tunes the backend capability.
type BackendConfig struct {
	// Mode is "remote" (MQTT bridge) or "simulator".
	Mode string `yaml:"mode"`

	// CallTimeout bounds a single remote backend call (seconds).
	CallTimeout int `yaml:"call_timeout"`

	Simulator SimulatorConfig `yaml:"simulator"`
}

// SimulatorConfig contains the fixture data served by the simulator backend.
type SimulatorConfig struct {
	// DataDir holds the *.db SQLite files exposed through /dbs and /sql.
	DataDir string `yaml:"data_dir"`

	SelfWxid string `yaml:"self_wxid"`
	SelfName string `yaml:"self_name"`

	// DecryptDelay is the number of empty decrypt polls before an
	// attachment resolves.
	DecryptDelay int `yaml:"decrypt_delay"`

	Contacts []SimulatorContact `yaml:"contacts"`
	Rooms    []SimulatorRoom    `yaml:"rooms"`
}

// SimulatorContact is a contact served by the simulator.
type SimulatorContact struct {
	Wxid   string `yaml:"wxid"`
	Name   string `yaml:"name"`
	Remark string `yaml:"remark"`
}

// SimulatorRoom is a chat room and its members served by the simulator.
type SimulatorRoom struct {
	ID      string             `yaml:"id"`
	Members []SimulatorContact `yaml:"members"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
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
}

// InfluxDBConfig contains InfluxDB connection settings for call telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MediaConfig contains settings for staging outbound images.
type MediaConfig struct {
	// StagingDir receives base64 and URL images before they are sent.
	StagingDir string `yaml:"staging_dir"`

	// FetchTimeout bounds remote image downloads (seconds).
	FetchTimeout int `yaml:"fetch_timeout"`

	// MaxFetchBytes caps the size of a remote image.
	MaxFetchBytes int64 `yaml:"max_fetch_bytes"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WCFGATEWAY_SECTION_KEY
// For example: WCFGATEWAY_API_PORT, WCFGATEWAY_BACKEND_MODE
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

// Default returns the built-in configuration with environment overrides
// applied. Used when no configuration file exists.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 10010,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 300,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Backend: BackendConfig{
			Mode:        BackendRemote,
			CallTimeout: 10,
			Simulator: SimulatorConfig{
				DataDir:      "./data/dbs",
				SelfWxid:     "wxid_simulator",
				SelfName:     "Simulator",
				DecryptDelay: 1,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "wcf-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "wcf",
		},
		Media: MediaConfig{
			StagingDir:    "./data/images",
			FetchTimeout:  30,
			MaxFetchBytes: 20 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: WCFGATEWAY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("WCFGATEWAY_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("WCFGATEWAY_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Backend
	if v := os.Getenv("WCFGATEWAY_BACKEND_MODE"); v != "" {
		cfg.Backend.Mode = v
	}
	if v := os.Getenv("WCFGATEWAY_SIMULATOR_DATA_DIR"); v != "" {
		cfg.Backend.Simulator.DataDir = v
	}

	// MQTT
	if v := os.Getenv("WCFGATEWAY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WCFGATEWAY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("WCFGATEWAY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("WCFGATEWAY_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Media
	if v := os.Getenv("WCFGATEWAY_MEDIA_STAGING_DIR"); v != "" {
		cfg.Media.StagingDir = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	switch c.Backend.Mode {
	case BackendRemote:
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required for the remote backend")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required for the remote backend")
		}
		if c.Backend.CallTimeout < 1 {
			errs = append(errs, "backend.call_timeout must be at least 1 second")
		}
	case BackendSimulator:
		if c.Backend.Simulator.DataDir == "" {
			errs = append(errs, "backend.simulator.data_dir is required")
		}
		if c.Backend.Simulator.DecryptDelay < 0 {
			errs = append(errs, "backend.simulator.decrypt_delay cannot be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("backend.mode must be %q or %q", BackendRemote, BackendSimulator))
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Media.StagingDir == "" {
		errs = append(errs, "media.staging_dir is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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

// GetCallTimeout returns the remote backend call timeout as a Duration.
func (c *Config) GetCallTimeout() time.Duration {
	return time.Duration(c.Backend.CallTimeout) * time.Second
}
