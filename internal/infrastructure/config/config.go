package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Maestro bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	Maestro   MaestroConfig   `yaml:"maestro"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BridgeConfig contains the scheduling settings of the bridge loops.
// All intervals are in seconds.
type BridgeConfig struct {
	// RefreshInterval is the wait before each info retrieval request.
	RefreshInterval int `yaml:"refresh_interval"`

	// RefreshSettle is the extra wait after a retrieval request was emitted.
	RefreshSettle int `yaml:"refresh_settle"`

	// DrainInterval is the period of the command drain loop.
	DrainInterval int `yaml:"drain_interval"`

	// ReconnectWait is how long both loops back off while the cloud session is down.
	ReconnectWait int `yaml:"reconnect_wait"`

	// QueueCapacity bounds the pending command queue. 0 means unbounded.
	QueueCapacity int `yaml:"queue_capacity"`
}

// MaestroConfig contains the cloud session settings.
type MaestroConfig struct {
	URL               string `yaml:"url"`
	SerialNumber      string `yaml:"serial_number"`
	MACAddress        string `yaml:"mac_address"`
	ConnectTimeout    int    `yaml:"connect_timeout"`
	ReconnectInterval int    `yaml:"reconnect_interval"`
	MaxReconnectDelay int    `yaml:"max_reconnect_delay"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
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

// String redacts the password so credentials never reach the logs.
func (a MQTTAuthConfig) String() string {
	if a.Username == "" {
		return "anonymous"
	}
	return fmt.Sprintf("%s:[REDACTED]", a.Username)
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// MQTTTopicsConfig contains the state and command topic bases.
type MQTTTopicsConfig struct {
	State   string `yaml:"state"`
	Command string `yaml:"command"`
}

// DiscoveryConfig contains Home Assistant MQTT discovery settings.
type DiscoveryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Prefix     string `yaml:"prefix"`
	DeviceName string `yaml:"device_name"`
	DeviceID   string `yaml:"device_id"`

	// CommandCodes maps an entity key (e.g. "Power") to the stove parameter
	// code used when a message arrives on that entity's command topic.
	CommandCodes map[string]int `yaml:"command_codes"`
}

// APIConfig contains status API server settings.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MAESTRO_SECTION_KEY
// For example: MAESTRO_MQTT_HOST, MAESTRO_SERIAL_NUMBER
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
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			RefreshInterval: 30,
			RefreshSettle:   15,
			DrainInterval:   5,
			ReconnectWait:   30,
		},
		Maestro: MaestroConfig{
			URL:               "http://app.mcz.it:9000",
			ConnectTimeout:    10,
			ReconnectInterval: 5,
			MaxReconnectDelay: 60,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "maestro-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			Topics: MQTTTopicsConfig{
				State:   "Maestro/State",
				Command: "Maestro/Command",
			},
		},
		Discovery: DiscoveryConfig{
			Prefix:     "homeassistant",
			DeviceName: "MCZ Maestro Stove",
			DeviceID:   "mcz_maestro_stove",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "logs/maestro.log",
				MaxSize:    10,
				MaxBackups: 7,
				MaxAge:     7,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MAESTRO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Cloud session
	if v := os.Getenv("MAESTRO_URL"); v != "" {
		cfg.Maestro.URL = v
	}
	if v := os.Getenv("MAESTRO_SERIAL_NUMBER"); v != "" {
		cfg.Maestro.SerialNumber = v
	}
	if v := os.Getenv("MAESTRO_MAC_ADDRESS"); v != "" {
		cfg.Maestro.MACAddress = v
	}

	// MQTT
	if v := os.Getenv("MAESTRO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MAESTRO_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MAESTRO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MAESTRO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Discovery
	if v := os.Getenv("MAESTRO_DISCOVERY_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Discovery.Enabled = enabled
		}
	}

	// Logging
	if v := os.Getenv("MAESTRO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// normalise strips trailing separators from topic bases so joins stay clean.
func (c *Config) normalise() {
	c.MQTT.Topics.State = strings.TrimRight(c.MQTT.Topics.State, "/")
	c.MQTT.Topics.Command = strings.TrimRight(c.MQTT.Topics.Command, "/")
	c.Discovery.Prefix = strings.TrimRight(c.Discovery.Prefix, "/")
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, c.validateBridge()...)
	errs = append(errs, c.validateMaestro()...)
	errs = append(errs, c.validateMQTT()...)
	errs = append(errs, c.validateDiscovery()...)
	errs = append(errs, c.validateAPI()...)
	errs = append(errs, c.validateLogging()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateBridge() []string {
	var errs []string
	if c.Bridge.RefreshInterval < 1 {
		errs = append(errs, "bridge.refresh_interval must be at least 1")
	}
	if c.Bridge.RefreshSettle < 0 {
		errs = append(errs, "bridge.refresh_settle cannot be negative")
	}
	if c.Bridge.DrainInterval < 1 {
		errs = append(errs, "bridge.drain_interval must be at least 1")
	}
	if c.Bridge.ReconnectWait < 1 {
		errs = append(errs, "bridge.reconnect_wait must be at least 1")
	}
	if c.Bridge.QueueCapacity < 0 {
		errs = append(errs, "bridge.queue_capacity cannot be negative")
	}
	return errs
}

func (c *Config) validateMaestro() []string {
	var errs []string
	if c.Maestro.URL == "" {
		errs = append(errs, "maestro.url is required")
	} else if u, err := url.Parse(c.Maestro.URL); err != nil || u.Host == "" {
		errs = append(errs, "maestro.url must be an absolute URL")
	} else if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, "maestro.url scheme must be http, https, ws or wss")
	}
	if c.Maestro.SerialNumber == "" {
		errs = append(errs, "maestro.serial_number is required (set MAESTRO_SERIAL_NUMBER environment variable)")
	}
	if c.Maestro.MACAddress == "" {
		errs = append(errs, "maestro.mac_address is required (set MAESTRO_MAC_ADDRESS environment variable)")
	}
	if c.Maestro.ConnectTimeout < 1 {
		errs = append(errs, "maestro.connect_timeout must be at least 1")
	}
	if c.Maestro.ReconnectInterval < 1 {
		errs = append(errs, "maestro.reconnect_interval must be at least 1")
	}
	if c.Maestro.MaxReconnectDelay < c.Maestro.ReconnectInterval {
		errs = append(errs, "maestro.max_reconnect_delay must be >= maestro.reconnect_interval")
	}
	return errs
}

func (c *Config) validateMQTT() []string {
	var errs []string
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topics.State == "" {
		errs = append(errs, "mqtt.topics.state is required")
	}
	if c.MQTT.Topics.Command == "" {
		errs = append(errs, "mqtt.topics.command is required")
	}
	if c.MQTT.Topics.State != "" && c.MQTT.Topics.State == c.MQTT.Topics.Command {
		errs = append(errs, "mqtt.topics.state and mqtt.topics.command must differ")
	}
	return errs
}

func (c *Config) validateDiscovery() []string {
	if !c.Discovery.Enabled {
		return nil
	}
	var errs []string
	if c.Discovery.Prefix == "" {
		errs = append(errs, "discovery.prefix is required when discovery is enabled")
	}
	if c.Discovery.DeviceID == "" {
		errs = append(errs, "discovery.device_id is required when discovery is enabled")
	}
	if strings.ContainsAny(c.Discovery.DeviceID, "/+# ") {
		errs = append(errs, "discovery.device_id cannot contain '/', '+', '#' or spaces")
	}
	for key, code := range c.Discovery.CommandCodes {
		if code < 0 {
			errs = append(errs, fmt.Sprintf("discovery.command_codes.%s cannot be negative", key))
		}
	}
	return errs
}

func (c *Config) validateAPI() []string {
	if !c.API.Enabled {
		return nil
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return []string{"api.port must be between 1 and 65535"}
	}
	return nil
}

func (c *Config) validateLogging() []string {
	var errs []string
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, "logging.format must be json or text")
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr or file")
	}
	return errs
}

// RefreshIntervalDuration returns the refresh wait as a Duration.
func (b BridgeConfig) RefreshIntervalDuration() time.Duration {
	return time.Duration(b.RefreshInterval) * time.Second
}

// RefreshSettleDuration returns the post-request wait as a Duration.
func (b BridgeConfig) RefreshSettleDuration() time.Duration {
	return time.Duration(b.RefreshSettle) * time.Second
}

// DrainIntervalDuration returns the drain period as a Duration.
func (b BridgeConfig) DrainIntervalDuration() time.Duration {
	return time.Duration(b.DrainInterval) * time.Second
}

// ReconnectWaitDuration returns the disconnected back-off as a Duration.
func (b BridgeConfig) ReconnectWaitDuration() time.Duration {
	return time.Duration(b.ReconnectWait) * time.Second
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
