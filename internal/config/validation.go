package config

import (
	"fmt"
	"net"
	"strings"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
)

// Validate checks cross-field constraints. All problems are reported in a
// single config error.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !logLevels.valid(cfg.Logging.Level) {
		add("logging.level %q invalid, valid options: %v", cfg.Logging.Level, logLevels.names())
	}
	if !logFormats.valid(cfg.Logging.Format) {
		add("logging.format %q invalid, valid options: %v", cfg.Logging.Format, logFormats.names())
	}
	if !radioBackends.valid(cfg.Radio.Backend) {
		add("radio.backend %q invalid, valid options: %v", cfg.Radio.Backend, radioBackends.names())
	}

	switch {
	case !storageBackends.valid(cfg.Storage.Backend):
		add("storage.backend %q invalid, valid options: %v", cfg.Storage.Backend, storageBackends.names())
	case cfg.Storage.Backend == StorageNATS && cfg.Storage.NATSURL == "":
		add("storage.nats_url is required for the nats backend")
	case cfg.Storage.Backend == StorageSQLite && cfg.Storage.DSN == "":
		add("storage.dsn is required for the sqlite backend")
	}

	sup := cfg.Supervisor
	if sup.PollInterval >= sup.AttachTimeout {
		add("supervisor.poll_interval (%s) must be shorter than attach_timeout (%s)", sup.PollInterval, sup.AttachTimeout)
	}
	if sup.HealthInterval < sup.PollInterval {
		add("supervisor.health_interval (%s) must not be shorter than poll_interval (%s)", sup.HealthInterval, sup.PollInterval)
	}

	if cfg.Portal.Addr == cfg.Dashboard.Addr && !ephemeralPort(cfg.Portal.Addr) {
		add("portal.addr and dashboard.addr must differ (both %q)", cfg.Portal.Addr)
	}

	if cfg.Uplink.Enabled && cfg.Uplink.Subject == "" {
		add("uplink.subject is required when the uplink is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return ferrors.ConfigError("invalid configuration: "+strings.Join(problems, "; ")).
		WithContext("problems", len(problems)).Build()
}

// ephemeralPort reports whether addr asks the kernel for a free port, in
// which case two listeners on it never collide.
func ephemeralPort(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port == "0"
}
