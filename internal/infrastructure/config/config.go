package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the listener.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Channels []ChannelConfig `yaml:"channels"`
	Logging  LoggingConfig   `yaml:"logging"`
	Stats    StatsConfig     `yaml:"stats"`
	InfluxDB InfluxDBConfig  `yaml:"influxdb"`
	Journal  JournalConfig   `yaml:"journal"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker         MQTTBrokerConfig    `yaml:"broker"`
	Auth           MQTTAuthConfig      `yaml:"auth"`
	QoS            int                 `yaml:"qos"`
	KeepAlive      int                 `yaml:"keep_alive"`
	ConnectTimeout int                 `yaml:"connect_timeout"`
	QueueSize      int                 `yaml:"queue_size"`
	Reconnect      MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig controls the monitoring loop (seconds).
type MQTTReconnectConfig struct {
	// PollInterval is how often the loop checks the connection flag.
	PollInterval int `yaml:"poll_interval"`

	// Backoff is the wait before each reconnect attempt.
	Backoff int `yaml:"backoff"`
}

// ChannelConfig is one ThingSpeak channel to subscribe to.
type ChannelConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StatsConfig controls periodic reporting of listener counters.
type StatsConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"`
}

// InfluxDBConfig contains InfluxDB connection settings for counter export.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// JournalConfig contains SQLite session journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LISTENER_SECTION_KEY
// For example: LISTENER_MQTT_USERNAME, LISTENER_INFLUXDB_TOKEN
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

// Default returns the built-in configuration with environment overrides applied.
// Used when no config file exists at the default path.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config pointing at the public ThingSpeak broker.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "mqtt3.thingspeak.com",
				Port: 1883,
			},
			QoS:            0,
			KeepAlive:      60,
			ConnectTimeout: 10,
			QueueSize:      256,
			Reconnect: MQTTReconnectConfig{
				PollInterval: 1,
				Backoff:      5,
			},
		},
		Channels: []ChannelConfig{
			{ID: "2718325", Name: "Channel 1"},
			{ID: "2716987", Name: "Channel 2"},
			{ID: "2718316", Name: "Channel 3"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Stats: StatsConfig{
			Enabled:  false,
			Interval: 60,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Bucket:        "listener",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Journal: JournalConfig{
			Enabled:     false,
			Path:        "./data/listener.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("LISTENER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LISTENER_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("LISTENER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LISTENER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LISTENER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Journal
	if v := os.Getenv("LISTENER_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required (set LISTENER_MQTT_CLIENT_ID environment variable)")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive <= 0 {
		errs = append(errs, "mqtt.keep_alive must be positive")
	}
	if c.MQTT.ConnectTimeout <= 0 {
		errs = append(errs, "mqtt.connect_timeout must be positive")
	}
	if c.MQTT.Reconnect.PollInterval <= 0 {
		errs = append(errs, "mqtt.reconnect.poll_interval must be positive")
	}
	if c.MQTT.Reconnect.Backoff < 0 {
		errs = append(errs, "mqtt.reconnect.backoff must not be negative")
	}

	// Channels
	if len(c.Channels) == 0 {
		errs = append(errs, "at least one channel is required")
	}
	for i, ch := range c.Channels {
		if ch.ID == "" {
			errs = append(errs, fmt.Sprintf("channels[%d].id is required", i))
		}
		if strings.ContainsAny(ch.ID, "/+#") {
			errs = append(errs, fmt.Sprintf("channels[%d].id must not contain '/', '+' or '#'", i))
		}
	}

	if c.Stats.Enabled && c.Stats.Interval <= 0 {
		errs = append(errs, "stats.interval must be positive")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerAddress returns host:port for log output.
func (c *Config) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.MQTT.Broker.Host, c.MQTT.Broker.Port)
}

// GetPollInterval returns the monitoring loop poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.MQTT.Reconnect.PollInterval) * time.Second
}

// GetBackoff returns the reconnect backoff as a Duration.
func (c *Config) GetBackoff() time.Duration {
	return time.Duration(c.MQTT.Reconnect.Backoff) * time.Second
}

// GetKeepAlive returns the MQTT keepalive as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.MQTT.KeepAlive) * time.Second
}

// GetConnectTimeout returns the MQTT handshake timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeout) * time.Second
}

// GetStatsInterval returns the stats reporting interval as a Duration.
func (c *Config) GetStatsInterval() time.Duration {
	return time.Duration(c.Stats.Interval) * time.Second
}
