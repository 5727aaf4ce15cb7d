package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Catalyst Dashboard.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Broker        BrokerConfig        `yaml:"broker"`
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`
	Buffers       BuffersConfig       `yaml:"buffers"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	ContextAPI    ContextAPIConfig    `yaml:"context_api"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BrokerConfig contains MQTT broker connection settings.
//
// URL accepts ws://, wss://, tcp:// and ssl:// schemes. Durations are in seconds.
type BrokerConfig struct {
	URL               string `yaml:"url"`
	ClientID          string `yaml:"client_id"`
	QoS               int    `yaml:"qos"`
	KeepAlive         int    `yaml:"keep_alive"`
	ConnectTimeout    int    `yaml:"connect_timeout"`
	ReconnectInterval int    `yaml:"reconnect_interval"`
}

// SubscriptionsConfig names the topic patterns each dashboard feed listens on.
type SubscriptionsConfig struct {
	Sensors    string `yaml:"sensors"`
	AgentLogs  string `yaml:"agent_logs"`
	RepoEvents string `yaml:"repo_events"`
	Containers string `yaml:"containers"`
}

// Patterns returns every configured pattern, skipping empty entries.
func (s SubscriptionsConfig) Patterns() []string {
	var out []string
	for _, p := range []string{s.Sensors, s.AgentLogs, s.RepoEvents, s.Containers} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuffersConfig contains the caps for bounded state.
type BuffersConfig struct {
	SensorHistory int `yaml:"sensor_history"`
	AgentLogs     int `yaml:"agent_logs"`
	RepoEvents    int `yaml:"repo_events"`
}

// APIConfig contains the dashboard HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
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

// WebSocketConfig contains WebSocket relay settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// ContextAPIConfig points at the REST service that owns repos, context and agents.
type ContextAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// InfluxDBConfig contains settings for mirroring sensor readings to InfluxDB.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// minReconnectInterval is the floor applied to broker.reconnect_interval.
const minReconnectInterval = 1

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CATALYST_SECTION_KEY
// For example: CATALYST_BROKER_URL, CATALYST_CONTEXT_API_URL
//
// Parameters:
//   - path: Path to the YAML configuration file (may be empty)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration with no file or environment applied.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:               "ws://localhost:30002",
			QoS:               0,
			KeepAlive:         60,
			ConnectTimeout:    30,
			ReconnectInterval: 1,
		},
		Subscriptions: SubscriptionsConfig{
			Sensors:    "sensor/+/+",
			AgentLogs:  "agent/+/log",
			RepoEvents: "repo/#",
			Containers: "infra/docker/state",
		},
		Buffers: BuffersConfig{
			SensorHistory: 20,
			AgentLogs:     50,
			RepoEvents:    50,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		ContextAPI: ContextAPIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CATALYST_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Broker
	if v := os.Getenv("CATALYST_BROKER_URL"); v != "" {
		cfg.Broker.URL = v
	}
	if v := os.Getenv("CATALYST_BROKER_CLIENT_ID"); v != "" {
		cfg.Broker.ClientID = v
	}

	// Context API
	if v := os.Getenv("CATALYST_CONTEXT_API_URL"); v != "" {
		cfg.ContextAPI.BaseURL = v
	}

	// API
	if v := os.Getenv("CATALYST_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("CATALYST_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CATALYST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// A reconnect interval below one second is raised to one second rather than
// rejected, so a zero value in YAML still yields a bounded retry loop.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Broker validation
	if c.Broker.URL == "" {
		errs = append(errs, "broker.url is required")
	} else if u, err := url.Parse(c.Broker.URL); err != nil || u.Host == "" {
		errs = append(errs, "broker.url must be an absolute URL (ws://host:port)")
	} else {
		switch u.Scheme {
		case "ws", "wss", "tcp", "ssl", "tls", "mqtt", "mqtts":
		default:
			errs = append(errs, fmt.Sprintf("broker.url scheme %q is not supported", u.Scheme))
		}
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		errs = append(errs, "broker.qos must be 0, 1, or 2")
	}
	if c.Broker.ConnectTimeout <= 0 {
		errs = append(errs, "broker.connect_timeout must be positive")
	}
	if c.Broker.ReconnectInterval < minReconnectInterval {
		c.Broker.ReconnectInterval = minReconnectInterval
	}

	// Buffer validation
	if c.Buffers.SensorHistory < 1 {
		errs = append(errs, "buffers.sensor_history must be at least 1")
	}
	if c.Buffers.AgentLogs < 1 {
		errs = append(errs, "buffers.agent_logs must be at least 1")
	}
	if c.Buffers.RepoEvents < 1 {
		errs = append(errs, "buffers.repo_events must be at least 1")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation (only when mirroring is enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
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

// GetReconnectInterval returns the broker retry interval as a Duration.
func (c *Config) GetReconnectInterval() time.Duration {
	return time.Duration(c.Broker.ReconnectInterval) * time.Second
}

// GetConnectTimeout returns the broker connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Broker.ConnectTimeout) * time.Second
}

// GetContextAPITimeout returns the REST collaborator timeout as a Duration.
func (c *Config) GetContextAPITimeout() time.Duration {
	return time.Duration(c.ContextAPI.Timeout) * time.Second
}
