package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Link Gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Source   SourceConfig   `yaml:"source"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	TimeSync TimeSyncConfig `yaml:"time_sync"`
	Devices  []DeviceConfig `yaml:"devices"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig contains scheduling settings for the main gateway loop.
// Interval and timeout values are in seconds.
type GatewayConfig struct {
	StartupDelay      int `yaml:"startup_delay"`
	PushInterval      int `yaml:"push_interval"`
	DiscoveryInterval int `yaml:"discovery_interval"`
	ReadinessTimeout  int `yaml:"readiness_timeout"`
	ReadinessPoll     int `yaml:"readiness_poll"`
	VerifyDelay       int `yaml:"verify_delay"`
}

// SourceConfig contains the source state API connection settings.
// The URL and token identify the Home Assistant instance the gateway reads from.
type SourceConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	RequestTimeout int    `yaml:"request_timeout"`
	RetryAttempts  int    `yaml:"retry_attempts"`
	RetryDelay     int    `yaml:"retry_delay"`
}

// MQTTConfig contains broker connection settings for the cloud platform session.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Namespace string              `yaml:"namespace"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// Username and Secret are the gateway's own broker identity. When
	// empty, the first enabled device's routing key and secret are used
	// instead (single-device deployments).
	Username string `yaml:"username"`
	Secret   string `yaml:"secret"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
// Delays are in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// TimeSyncConfig contains reference clock synchronisation settings.
// The session manager uses the synchronised clock when computing rotating
// credentials, so platform-side token validation is not affected by local
// clock skew.
type TimeSyncConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Server   string `yaml:"server"`
	Interval int    `yaml:"interval"`
}

// DeviceConfig describes one platform device and how its source entities
// are discovered. Categories: environmental-sensor, switch, socket, breaker.
type DeviceConfig struct {
	ID                  string             `yaml:"id"`
	Category            string             `yaml:"category"`
	EntityPrefix        string             `yaml:"entity_prefix"`
	SupportedProperties []string           `yaml:"supported_properties"`
	ProductKey          string             `yaml:"product_key"`
	DeviceName          string             `yaml:"device_name"`
	DeviceSecret        string             `yaml:"device_secret"`
	ConversionFactors   map[string]float64 `yaml:"conversion_factors"`
	Enabled             bool               `yaml:"enabled"`
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
// Environment variables follow the pattern: GRAYLINK_SECTION_KEY
// For example: GRAYLINK_SOURCE_TOKEN, GRAYLINK_MQTT_HOST
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			StartupDelay:      0,
			PushInterval:      60,
			DiscoveryInterval: 3600,
			ReadinessTimeout:  15,
			ReadinessPoll:     2,
			VerifyDelay:       1,
		},
		Source: SourceConfig{
			RequestTimeout: 10,
			RetryAttempts:  5,
			RetryDelay:     3,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylink-gateway",
			},
			Namespace: "sys",
			QoS:       1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		TimeSync: TimeSyncConfig{
			Enabled:  true,
			Server:   "pool.ntp.org",
			Interval: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Source API
	if v := os.Getenv("GRAYLINK_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("GRAYLINK_SOURCE_TOKEN"); v != "" {
		cfg.Source.Token = v
	}

	// MQTT
	if v := os.Getenv("GRAYLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLINK_MQTT_NAMESPACE"); v != "" {
		cfg.MQTT.Namespace = v
	}
	if v := os.Getenv("GRAYLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("GRAYLINK_MQTT_SECRET"); v != "" {
		cfg.MQTT.Secret = v
	}
}

// knownCategories are the device categories the resolver understands.
var knownCategories = map[string]bool{
	"environmental-sensor": true,
	"switch":               true,
	"socket":               true,
	"breaker":              true,
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Source validation
	if c.Source.URL == "" {
		errs = append(errs, "source.url is required")
	}
	if c.Source.Token == "" {
		errs = append(errs, "source.token is required (set GRAYLINK_SOURCE_TOKEN environment variable)")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Gateway validation
	if c.Gateway.PushInterval < 1 {
		errs = append(errs, "gateway.push_interval must be at least 1 second")
	}

	// Device validation
	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device must be configured")
	}
	for i, dev := range c.Devices {
		if dev.ID == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].id is required", i))
		}
		if !knownCategories[dev.Category] {
			errs = append(errs, fmt.Sprintf("devices[%d].category %q is not recognised", i, dev.Category))
		}
		if dev.EntityPrefix == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].entity_prefix is required", i))
		}
		if dev.ProductKey == "" || dev.DeviceName == "" {
			errs = append(errs, fmt.Sprintf("devices[%d] requires product_key and device_name", i))
		}
		if dev.Enabled && dev.DeviceSecret == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].device_secret is required for enabled devices", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPushInterval returns the telemetry push interval as a Duration.
func (c *Config) GetPushInterval() time.Duration {
	return time.Duration(c.Gateway.PushInterval) * time.Second
}

// GetDiscoveryInterval returns the entity rediscovery interval as a Duration.
func (c *Config) GetDiscoveryInterval() time.Duration {
	return time.Duration(c.Gateway.DiscoveryInterval) * time.Second
}

// GetStartupDelay returns the startup delay as a Duration.
func (c *Config) GetStartupDelay() time.Duration {
	return time.Duration(c.Gateway.StartupDelay) * time.Second
}

// GetReadinessTimeout returns the entity readiness timeout as a Duration.
func (c *Config) GetReadinessTimeout() time.Duration {
	return time.Duration(c.Gateway.ReadinessTimeout) * time.Second
}

// GetReadinessPoll returns the entity readiness poll interval as a Duration.
func (c *Config) GetReadinessPoll() time.Duration {
	return time.Duration(c.Gateway.ReadinessPoll) * time.Second
}

// GetVerifyDelay returns the command verification delay as a Duration.
func (c *Config) GetVerifyDelay() time.Duration {
	return time.Duration(c.Gateway.VerifyDelay) * time.Second
}

// GetRequestTimeout returns the source API request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Source.RequestTimeout) * time.Second
}

// GetRetryDelay returns the source API retry delay as a Duration.
func (c *Config) GetRetryDelay() time.Duration {
	return time.Duration(c.Source.RetryDelay) * time.Second
}

// GetTimeSyncInterval returns the reference clock sync cadence as a Duration.
func (c *Config) GetTimeSyncInterval() time.Duration {
	return time.Duration(c.TimeSync.Interval) * time.Second
}
