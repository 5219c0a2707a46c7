// Package config loads and validates the linkkeeper YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

// Config is the complete daemon configuration.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Radio       RadioConfig       `yaml:"radio"`
	AccessPoint AccessPointConfig `yaml:"access_point"`
	Supervisor  SupervisorConfig  `yaml:"supervisor"`
	Storage     StorageConfig     `yaml:"storage"`
	Portal      PortalConfig      `yaml:"portal"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Uplink      UplinkConfig      `yaml:"uplink"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies the node.
type DeviceConfig struct {
	Name string `yaml:"name"`
}

// RadioConfig selects and parameterizes the radio driver.
type RadioConfig struct {
	Backend      RadioBackend `yaml:"backend"`
	STAInterface string       `yaml:"sta_interface"`
	APInterface  string       `yaml:"ap_interface"`
	// Simulator knobs, used when Backend is sim.
	SimJoinDelay   time.Duration `yaml:"sim_join_delay"`
	SimUnreachable []string      `yaml:"sim_unreachable,omitempty"`
}

// AccessPointConfig holds the built-in local AP settings. A persisted
// override set through the portal takes precedence.
type AccessPointConfig struct {
	Name            string `yaml:"name"`
	Secret          string `yaml:"secret"`
	MinSecretLength int    `yaml:"min_secret_length"`
}

// SupervisorConfig holds the attach timeout and the two cadences.
type SupervisorConfig struct {
	AttachTimeout  time.Duration `yaml:"attach_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// StorageConfig selects the blob store backend.
type StorageConfig struct {
	Backend StorageBackend `yaml:"backend"`
	Dir     string         `yaml:"dir"`
	DSN     string         `yaml:"dsn"`
	NATSURL string         `yaml:"nats_url"`
	Bucket  string         `yaml:"bucket"`
}

// PortalConfig configures the AP-side HTTP handlers.
type PortalConfig struct {
	Addr string `yaml:"addr"`
}

// DashboardConfig configures the management dashboard.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// UplinkConfig holds the telemetry uplink defaults. Values saved through the
// dashboard API take precedence over these.
type UplinkConfig struct {
	Enabled         bool          `yaml:"enabled"`
	NATSURL         string        `yaml:"nats_url"`
	Subject         string        `yaml:"subject"`
	ClientID        string        `yaml:"client_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	PublishInterval time.Duration `yaml:"publish_interval"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls the slog handler and optional rotated log file.
type LoggingConfig struct {
	Level      LogLevel  `yaml:"level"`
	Format     LogFormat `yaml:"format"`
	File       string    `yaml:"file"`
	MaxSizeMB  int       `yaml:"max_size_mb"`
	MaxBackups int       `yaml:"max_backups"`
	MaxAgeDays int       `yaml:"max_age_days"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = NewDefaultApplier().ApplyDefaults(cfg)
	return cfg
}

// Load reads configPath, expands ${VAR} references, applies defaults and validates.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config file").
			WithContext("path", configPath).Fatal().Build()
	}

	return Parse(data)
}

// Parse decodes YAML bytes into a validated configuration.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "unmarshal config").Fatal().Build()
	}

	normalize(&cfg)

	if err := NewDefaultApplier().ApplyDefaults(&cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConflictError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	example := Default()
	example.Device.Name = "node-01"
	example.AccessPoint.Secret = "${LINKKEEPER_AP_SECRET}"
	example.Uplink.Enabled = true
	example.Uplink.NATSURL = "nats://127.0.0.1:4222"
	example.Uplink.Username = "${LINKKEEPER_UPLINK_USER}"
	example.Uplink.Password = "${LINKKEEPER_UPLINK_PASSWORD}"

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}

	// #nosec G306 -- config contains only env references for secrets
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
