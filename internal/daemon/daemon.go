// Package daemon wires the connectivity supervisor, the service lifecycle
// manager, the portal and the dependent services together and drives them on
// fixed cadences.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	"git.home.luguber.info/inful/linkkeeper/internal/config"
	"git.home.luguber.info/inful/linkkeeper/internal/dashboard"
	"git.home.luguber.info/inful/linkkeeper/internal/lifecycle"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/metrics"
	"git.home.luguber.info/inful/linkkeeper/internal/portal"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
	"git.home.luguber.info/inful/linkkeeper/internal/telemetry"
	"git.home.luguber.info/inful/linkkeeper/internal/uplink"
	"git.home.luguber.info/inful/linkkeeper/internal/version"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Job names.
const (
	JobPoll    = "poll"
	JobHealth  = "health"
	JobPublish = "publish"
)

// Option configures a Daemon.
type Option func(*Daemon)

// WithRadio replaces the radio selected from configuration.
func WithRadio(r radio.Radio) Option {
	return func(d *Daemon) { d.radio = r }
}

// WithStore replaces the blob store opened from configuration. The daemon
// does not close a store it did not open.
func WithStore(s blobstore.Store) Option {
	return func(d *Daemon) { d.store = s }
}

// WithClock injects the clock shared by the supervisor and the scheduler.
func WithClock(c clockwork.Clock) Option {
	return func(d *Daemon) { d.clock = c }
}

// WithConfigFile enables reloading when path changes.
func WithConfigFile(path string) Option {
	return func(d *Daemon) { d.configPath = path }
}

// WithLogLevel lets configuration reloads adjust the log level.
func WithLogLevel(level *slog.LevelVar) Option {
	return func(d *Daemon) { d.logLevel = level }
}

// WithUplinkDialer replaces the NATS dialer of the uplink.
func WithUplinkDialer(dial uplink.Dialer) Option {
	return func(d *Daemon) { d.uplinkDialer = dial }
}

// WithTelemetrySource replaces the default runtime and thermal readings.
func WithTelemetrySource(src telemetry.Source) Option {
	return func(d *Daemon) { d.source = src }
}

// DaemonStatus is the aggregated daemon view.
type DaemonStatus struct {
	Status       Status                  `json:"status"`
	Version      string                  `json:"version"`
	Uptime       time.Duration           `json:"uptime_ns"`
	Connectivity supervisor.Status       `json:"connectivity"`
	Services     []lifecycle.ServiceInfo `json:"services"`
	Uplink       *uplink.Status          `json:"uplink,omitempty"`
	Clients      int                     `json:"dashboard_clients"`
}

// Daemon represents the linkkeeper process.
type Daemon struct {
	mu         sync.RWMutex
	config     *config.Config
	configPath string
	status     atomic.Value
	startTime  time.Time

	clock        clockwork.Clock
	logLevel     *slog.LevelVar
	radio        radio.Radio
	store        blobstore.Store
	ownsStore    bool
	uplinkDialer uplink.Dialer
	source       telemetry.Source

	registry   *prom.Registry
	recorder   metrics.Recorder
	supervisor *supervisor.Supervisor
	services   *lifecycle.Manager
	uplink     *uplink.Client
	dashboard  *dashboard.Server
	portal     *portal.Server
	sampler    *telemetry.Sampler

	scheduler     *Scheduler
	configWatcher *ConfigWatcher
}

// New builds a daemon from cfg. Backends not injected through options are
// selected from cfg; opening the blob store may contact a remote server.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	d := &Daemon{config: cfg, recorder: metrics.NoopRecorder{}}
	d.status.Store(StatusStopped)
	for _, opt := range opts {
		opt(d)
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}

	if cfg.Metrics.Enabled {
		d.registry = metrics.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if d.radio == nil {
		r, err := newRadio(cfg.Radio, d.clock)
		if err != nil {
			return nil, err
		}
		d.radio = r
	}

	if d.store == nil {
		store, err := blobstore.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		d.store, d.ownsStore = store, true
	}

	d.supervisor = supervisor.New(d.radio, d.store,
		supervisor.WithClock(d.clock),
		supervisor.WithAttachTimeout(cfg.Supervisor.AttachTimeout),
		supervisor.WithAccessPointDefaults(cfg.AccessPoint.Name, cfg.AccessPoint.Secret),
		supervisor.WithMinSecretLength(cfg.AccessPoint.MinSecretLength),
		supervisor.WithRecorder(d.recorder),
	)

	d.services = lifecycle.NewManager(
		lifecycle.WithRecorder(d.recorder),
		lifecycle.WithClock(d.clock),
		lifecycle.WithReadiness(d.supervisor.Readiness()),
	)

	if cfg.Uplink.Enabled {
		uopts := []uplink.Option{uplink.WithRecorder(d.recorder)}
		if d.uplinkDialer != nil {
			uopts = append(uopts, uplink.WithDialer(d.uplinkDialer))
		}
		d.uplink = uplink.NewClient(d.store, uplinkDefaults(cfg), uopts...)
		if err := d.services.Register(d.uplink); err != nil {
			return nil, err
		}
	}

	var up dashboard.UplinkController
	if d.uplink != nil {
		up = d.uplink
	}
	d.dashboard = dashboard.New(cfg.Dashboard.Addr, d.supervisor, up, dashboard.WithServices(d.services.Services))
	if err := d.services.Register(d.dashboard); err != nil {
		return nil, err
	}

	if d.source == nil {
		d.source = telemetry.Multi{telemetry.RuntimeSource{}, telemetry.DefaultThermalSource()}
	}
	d.sampler = &telemetry.Sampler{
		Device:  cfg.Device.Name,
		Source:  d.source,
		Started: d.clock.Now(),
		Now:     d.clock.Now,
	}

	popts := []portal.Option{portal.WithSensors(d.source)}
	if d.registry != nil {
		popts = append(popts, portal.WithMetricsHandler(metrics.HTTPHandler(d.registry)))
	}
	d.portal = portal.New(cfg.Portal.Addr, d.supervisor, popts...)

	scheduler, err := NewScheduler(d.clock)
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d)
		if err != nil {
			return nil, err
		}
		d.configWatcher = watcher
	}
	return d, nil
}

func uplinkDefaults(cfg *config.Config) uplink.Settings {
	clientID := cfg.Uplink.ClientID
	if clientID == "" {
		clientID = uplink.DefaultClientID(cfg.Device.Name)
	}
	return uplink.Settings{
		Server:   cfg.Uplink.NATSURL,
		Subject:  cfg.Uplink.Subject,
		ClientID: clientID,
		Username: cfg.Uplink.Username,
		Password: cfg.Uplink.Password,
	}
}

// Start boots the supervisor, serves the portal and schedules the cadences.
// It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s := d.GetStatus(); s != StatusStopped {
		return fmt.Errorf("daemon is not in stopped state: %s", s)
	}
	d.status.Store(StatusStarting)
	d.startTime = d.clock.Now()
	slog.Info("Starting linkkeeper", slog.String("version", version.Version), slog.String("device", d.config.Device.Name))

	if err := d.supervisor.Boot(ctx); err != nil {
		// The node stays reachable only through the AP; keep going so a
		// later health pass or operator request can recover.
		slog.Error("Supervisor boot incomplete", logfields.Error(err))
	}

	if err := d.portal.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to start portal: %w", err)
	}

	if err := d.scheduleLocked(); err != nil {
		d.status.Store(StatusError)
		_ = d.portal.Stop(ctx)
		return err
	}
	d.scheduler.Start(context.WithoutCancel(ctx))

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("linkkeeper started",
		logfields.Addr(d.portal.Addr()),
		logfields.Role(d.supervisor.State().Role.String()))
	return nil
}

func (d *Daemon) scheduleLocked() error {
	sc := d.config.Supervisor
	if err := d.scheduler.Every(JobPoll, sc.PollInterval, d.pollPass); err != nil {
		return err
	}
	if err := d.scheduler.Every(JobHealth, sc.HealthInterval, d.healthPass); err != nil {
		return err
	}
	if interval := d.config.Uplink.PublishInterval; interval > 0 {
		if err := d.scheduler.Every(JobPublish, interval, d.publishPass); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the daemon, blocks until ctx is done, then stops it within
// stopTimeout.
func (d *Daemon) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop shuts components down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.GetStatus() {
	case StatusStopped, StatusStopping:
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping linkkeeper")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			slog.Error("Failed to stop config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(); err != nil {
		slog.Error("Failed to stop scheduler", logfields.Error(err))
	}
	d.services.StopAll(ctx)
	if err := d.portal.Stop(ctx); err != nil {
		slog.Error("Failed to stop portal", logfields.Error(err))
	}
	if d.ownsStore {
		if err := d.store.Close(); err != nil {
			slog.Error("Failed to close blob store", logfields.Error(err))
		}
	}

	d.status.Store(StatusStopped)
	slog.Info("linkkeeper stopped", slog.Duration("uptime", d.clock.Since(d.startTime)))
	return nil
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// Status aggregates connectivity, services and uplink state.
func (d *Daemon) Status() DaemonStatus {
	st := DaemonStatus{
		Status:       d.GetStatus(),
		Version:      version.Version,
		Connectivity: d.supervisor.Status(),
		Services:     d.services.Services(),
		Clients:      d.dashboard.Clients(),
	}
	d.mu.RLock()
	if !d.startTime.IsZero() {
		st.Uptime = d.clock.Since(d.startTime)
	}
	d.mu.RUnlock()
	if d.uplink != nil {
		us := d.uplink.Status()
		st.Uplink = &us
	}
	return st
}

// Supervisor exposes the connectivity supervisor.
func (d *Daemon) Supervisor() *supervisor.Supervisor { return d.supervisor }

// Services exposes the lifecycle manager.
func (d *Daemon) Services() *lifecycle.Manager { return d.services }

// PortalAddr returns the bound portal address.
func (d *Daemon) PortalAddr() string { return d.portal.Addr() }

// MetricsHandler returns the Prometheus handler, or nil when metrics are off.
func (d *Daemon) MetricsHandler() http.Handler {
	if d.registry == nil {
		return nil
	}
	return metrics.HTTPHandler(d.registry)
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}
