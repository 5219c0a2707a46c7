package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultAttachTimeout   = 15 * time.Second
	DefaultPollInterval    = 10 * time.Millisecond
	DefaultHealthInterval  = 10 * time.Second
	DefaultPublishInterval = 5 * time.Second
	DefaultMinSecretLength = 8
	DefaultAccessPointName = "linkkeeper-setup"
	DefaultDataDir         = "/var/lib/linkkeeper"
)

// DefaultApplier applies defaults for one configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier runs every domain applier in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier chain used by Load.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []DefaultApplier{
			&DeviceDefaultApplier{},
			&RadioDefaultApplier{},
			&AccessPointDefaultApplier{},
			&SupervisorDefaultApplier{},
			&StorageDefaultApplier{},
			&HTTPDefaultApplier{},
			&UplinkDefaultApplier{},
			&LoggingDefaultApplier{},
		},
	}
}

func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// GetApplierByDomain returns a specific domain applier.
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) DefaultApplier {
	for _, applier := range c.appliers {
		if applier.Domain() == domain {
			return applier
		}
	}
	return nil
}

type DeviceDefaultApplier struct{}

func (d *DeviceDefaultApplier) Domain() string { return "device" }

func (d *DeviceDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Device.Name == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.Device.Name = host
		} else {
			cfg.Device.Name = "linkkeeper"
		}
	}
	return nil
}

type RadioDefaultApplier struct{}

func (r *RadioDefaultApplier) Domain() string { return "radio" }

func (r *RadioDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Radio.Backend == "" {
		cfg.Radio.Backend = RadioNetworkManager
	}
	if cfg.Radio.STAInterface == "" {
		cfg.Radio.STAInterface = "wlan0"
	}
	if cfg.Radio.SimJoinDelay <= 0 {
		cfg.Radio.SimJoinDelay = 2 * time.Second
	}
	return nil
}

type AccessPointDefaultApplier struct{}

func (a *AccessPointDefaultApplier) Domain() string { return "access_point" }

func (a *AccessPointDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.AccessPoint.Name == "" {
		cfg.AccessPoint.Name = DefaultAccessPointName
	}
	if cfg.AccessPoint.MinSecretLength <= 0 {
		cfg.AccessPoint.MinSecretLength = DefaultMinSecretLength
	}
	return nil
}

type SupervisorDefaultApplier struct{}

func (s *SupervisorDefaultApplier) Domain() string { return "supervisor" }

func (s *SupervisorDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Supervisor.AttachTimeout <= 0 {
		cfg.Supervisor.AttachTimeout = DefaultAttachTimeout
	}
	if cfg.Supervisor.PollInterval <= 0 {
		cfg.Supervisor.PollInterval = DefaultPollInterval
	}
	if cfg.Supervisor.HealthInterval <= 0 {
		cfg.Supervisor.HealthInterval = DefaultHealthInterval
	}
	return nil
}

type StorageDefaultApplier struct{}

func (s *StorageDefaultApplier) Domain() string { return "storage" }

func (s *StorageDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageFile
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultDataDir
	}
	if cfg.Storage.Backend == StorageSQLite && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = filepath.Join(cfg.Storage.Dir, "linkkeeper.db")
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "linkkeeper"
	}
	return nil
}

type HTTPDefaultApplier struct{}

func (h *HTTPDefaultApplier) Domain() string { return "http" }

func (h *HTTPDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Portal.Addr == "" {
		cfg.Portal.Addr = ":80"
	}
	if cfg.Dashboard.Addr == "" {
		cfg.Dashboard.Addr = ":8080"
	}
	return nil
}

type UplinkDefaultApplier struct{}

func (u *UplinkDefaultApplier) Domain() string { return "uplink" }

func (u *UplinkDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Uplink.Subject == "" {
		cfg.Uplink.Subject = "linkkeeper.telemetry"
	}
	if cfg.Uplink.PublishInterval <= 0 {
		cfg.Uplink.PublishInterval = DefaultPublishInterval
	}
	return nil
}

type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 5
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 14
	}
	return nil
}
