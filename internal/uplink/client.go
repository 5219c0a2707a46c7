// Package uplink publishes telemetry samples to a NATS server while the node
// is attached upstream.
package uplink

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/lifecycle"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/metrics"
	"git.home.luguber.info/inful/linkkeeper/internal/telemetry"
)

// ServiceName is the lifecycle name of the uplink.
const ServiceName = "uplink"

var _ lifecycle.Service = (*Client)(nil)

// ErrNotRunning rejects publishes while the uplink is stopped.
var ErrNotRunning = ferrors.UplinkError("uplink is not running").Build()

// Status is the operator view of the uplink.
type Status struct {
	Running     bool       `json:"running"`
	Connected   bool       `json:"connected"`
	Server      string     `json:"server"`
	Subject     string     `json:"subject"`
	ClientID    string     `json:"client_id"`
	Published   uint64     `json:"published"`
	Failed      uint64     `json:"failed"`
	LastPublish *time.Time `json:"last_publish,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the NATS dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Client is the telemetry uplink service.
type Client struct {
	store    blobstore.Store
	defaults Settings
	dial     Dialer
	recorder metrics.Recorder

	mu          sync.Mutex
	settings    Settings
	loaded      bool
	transport   Transport
	active      Settings // what transport was dialled with
	running     bool
	published   uint64
	failed      uint64
	lastPublish time.Time
	lastErr     error
}

// NewClient returns a stopped uplink. defaults apply until settings are saved.
func NewClient(store blobstore.Store, defaults Settings, opts ...Option) *Client {
	c := &Client{
		store:    store,
		defaults: defaults,
		settings: defaults,
		dial:     NATSDialer,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string           { return ServiceName }
func (c *Client) Dependencies() []string { return nil }

// Load reads persisted settings. Start calls it when it has not run yet.
func (c *Client) Load(ctx context.Context) error {
	s, err := LoadSettings(ctx, c.store, c.defaults)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return err
	}
	c.settings = s
	c.loaded = true
	return nil
}

// Start connects to the configured server. On a running client it retries a
// reconnect that an earlier settings update could not complete.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.loaded
	c.mu.Unlock()
	if !loaded {
		if err := c.Load(ctx); err != nil {
			slog.Warn("Using default uplink settings", logfields.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.transport != nil && c.active == c.settings {
		return nil
	}
	if err := c.connectLocked(ctx); err != nil {
		return err
	}
	c.running = true
	return nil
}

// Stop drains and closes the transport.
func (c *Client) Stop(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return c.closeLocked()
}

// IsRunning reports whether Start succeeded and Stop has not been called since.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Client) Health() lifecycle.HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.running:
		return lifecycle.Stopped()
	case c.transport == nil || !c.transport.Connected():
		return lifecycle.Unhealthy("not connected to " + c.active.Server)
	case c.lastErr != nil:
		return lifecycle.Unhealthy(c.lastErr.Error())
	default:
		return lifecycle.Healthy()
	}
}

// Publish sends one sample.
func (c *Client) Publish(_ context.Context, sample telemetry.Sample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return ferrors.InternalError("encode telemetry sample").WithCause(err).Build()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.transport == nil {
		return ErrNotRunning
	}

	if err := c.transport.Publish(c.active.Subject, data); err != nil {
		c.failed++
		c.lastErr = err
		c.recorder.IncUplinkPublish(false)
		return ferrors.UplinkError("publish telemetry").
			WithCause(err).
			WithContext("subject", c.active.Subject).
			Build()
	}
	c.published++
	c.lastErr = nil
	c.lastPublish = time.Now()
	c.recorder.IncUplinkPublish(true)
	return nil
}

// Settings returns the active settings with the password redacted.
func (c *Client) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Redacted()
}

// UpdateSettings merges, validates and persists update. A running uplink
// reconnects with the new settings; when that dial fails the previous
// connection stays in use and Start retries the switch. Persistence failures
// leave the active settings unchanged.
func (c *Client) UpdateSettings(ctx context.Context, update Settings) (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.settings.Merge(update)
	if err := next.Validate(); err != nil {
		return c.settings.Redacted(), err
	}
	if err := SaveSettings(ctx, c.store, next); err != nil {
		return c.settings.Redacted(), err
	}
	c.settings = next
	c.loaded = true
	slog.Info("Uplink settings updated", logfields.Addr(next.Server), logfields.Subject(next.Subject))

	if c.running {
		if err := c.connectLocked(ctx); err != nil {
			slog.Warn("Uplink reconnect failed, keeping previous connection",
				logfields.Addr(c.active.Server), logfields.Error(err))
			return next.Redacted(), err
		}
	}
	return next.Redacted(), nil
}

// Status reports connection and publish counters.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Running:   c.running,
		Connected: c.transport != nil && c.transport.Connected(),
		Server:    c.settings.Server,
		Subject:   c.settings.Subject,
		ClientID:  c.settings.ClientID,
		Published: c.published,
		Failed:    c.failed,
	}
	if !c.lastPublish.IsZero() {
		t := c.lastPublish
		st.LastPublish = &t
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// connectLocked dials the current settings and swaps the new transport in.
// On failure the existing transport, if any, is left untouched.
func (c *Client) connectLocked(ctx context.Context) error {
	if err := c.settings.Validate(); err != nil {
		return err
	}
	t, err := c.dial(ctx, c.settings)
	if err != nil {
		c.lastErr = err
		return ferrors.UplinkError("connect uplink").
			WithCause(err).
			WithContext("server", c.settings.Server).
			Build()
	}
	if err := c.closeLocked(); err != nil {
		slog.Debug("Closing previous uplink transport", logfields.Error(err))
	}
	c.transport, c.active = t, c.settings
	c.lastErr = nil
	slog.Info("Uplink connected", logfields.Addr(c.settings.Server), logfields.Subject(c.settings.Subject))
	return nil
}

func (c *Client) closeLocked() error {
	if c.transport == nil {
		return nil
	}
	err := c.transport.Close()
	c.transport = nil
	return err
}
