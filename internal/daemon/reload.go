package daemon

import (
	"context"
	"log/slog"
	"reflect"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
)

// ReloadConfig applies the reloadable subset of newConfig: log level,
// telemetry publish interval and the built-in access point settings. Other
// sections take effect on restart and only produce a warning.
func (d *Daemon) ReloadConfig(ctx context.Context, newConfig *config.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.config
	for _, section := range restartOnlyChanges(old, newConfig) {
		slog.Warn("Configuration change requires a restart", slog.String("section", section))
	}

	if d.logLevel != nil && old.Logging.Level != newConfig.Logging.Level {
		d.logLevel.Set(newConfig.Logging.Level.SlogLevel())
		slog.Info("Log level changed", slog.String("level", string(newConfig.Logging.Level)))
	}

	if ap := newConfig.AccessPoint; ap.Name != old.AccessPoint.Name || ap.Secret != old.AccessPoint.Secret {
		if err := d.supervisor.SetAccessPointDefaults(ctx, ap.Name, ap.Secret); err != nil {
			return err
		}
	}

	if interval := newConfig.Uplink.PublishInterval; interval != old.Uplink.PublishInterval &&
		interval > 0 && d.GetStatus() == StatusRunning {
		if err := d.scheduler.Every(JobPublish, interval, d.publishPass); err != nil {
			return err
		}
		slog.Info("Telemetry publish interval changed", logfields.Job(JobPublish), slog.Duration("interval", interval))
	}

	d.config = newConfig
	slog.Info("Configuration reloaded successfully")
	return nil
}

func restartOnlyChanges(old, next *config.Config) []string {
	var sections []string
	check := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			sections = append(sections, name)
		}
	}
	check("device", old.Device, next.Device)
	check("radio", old.Radio, next.Radio)
	check("supervisor", old.Supervisor, next.Supervisor)
	check("storage", old.Storage, next.Storage)
	check("portal", old.Portal, next.Portal)
	check("dashboard", old.Dashboard, next.Dashboard)
	check("metrics", old.Metrics, next.Metrics)
	check("access_point.min_secret_length", old.AccessPoint.MinSecretLength, next.AccessPoint.MinSecretLength)

	oldUp, nextUp := old.Uplink, next.Uplink
	oldUp.PublishInterval, nextUp.PublishInterval = 0, 0
	check("uplink", oldUp, nextUp)
	return sections
}
