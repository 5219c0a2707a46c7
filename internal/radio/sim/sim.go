// Package sim is a simulated radio used when running off-device. Networks come
// up after a configurable delay unless they are marked unreachable.
package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

var _ radio.Radio = (*Radio)(nil)

// DefaultJoinDelay is how long a reachable network takes to report a link.
const DefaultJoinDelay = 2 * time.Second

// Option configures a simulated radio.
type Option func(*Radio)

// WithClock injects the clock used to time joins.
func WithClock(c clockwork.Clock) Option {
	return func(r *Radio) { r.clock = c }
}

// WithJoinDelay sets how long joins take to complete.
func WithJoinDelay(d time.Duration) Option {
	return func(r *Radio) { r.joinDelay = d }
}

// WithUnreachable marks SSIDs that never produce a link.
func WithUnreachable(ssids ...string) Option {
	return func(r *Radio) {
		for _, s := range ssids {
			r.unreachable[s] = struct{}{}
		}
	}
}

// WithNetworks sets what a scan reports. Unreachable SSIDs are listed too,
// as a network that is visible but never accepts the join.
func WithNetworks(nets ...radio.Network) Option {
	return func(r *Radio) { r.networks = nets }
}

// Radio simulates one Wi-Fi chip with an AP side and a client side.
type Radio struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	joinDelay   time.Duration
	unreachable map[string]struct{}
	networks    []radio.Network

	mode     radio.Mode
	ssid     string
	joinedAt time.Time
	dropped  bool
	apName   string
}

// New returns a simulated radio with both sides off.
func New(opts ...Option) *Radio {
	r := &Radio{
		clock:       clockwork.NewRealClock(),
		joinDelay:   DefaultJoinDelay,
		unreachable: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Radio) JoinNetwork(_ context.Context, ssid, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode |= radio.ModeSTA
	r.ssid = ssid
	r.joinedAt = r.clock.Now()
	r.dropped = false
	slog.Debug("sim: join requested", logfields.SSID(ssid))
	return nil
}

func (r *Radio) Disconnect(_ context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode &^= radio.ModeSTA
	r.ssid = ""
	slog.Debug("sim: disconnected", slog.Bool("force", force))
	return nil
}

func (r *Radio) StartAccessPoint(_ context.Context, name, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode |= radio.ModeAP
	r.apName = name
	slog.Debug("sim: access point up", logfields.APName(name), logfields.APOpen(secret == ""))
	return nil
}

func (r *Radio) LinkStatus(context.Context) (radio.LinkStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mode.HasSTA() || r.dropped || r.ssid == "" {
		return radio.LinkDown, nil
	}
	if _, ok := r.unreachable[r.ssid]; ok {
		return radio.LinkDown, nil
	}
	if r.clock.Since(r.joinedAt) < r.joinDelay {
		return radio.LinkDown, nil
	}
	return radio.LinkUp, nil
}

func (r *Radio) CurrentMode(context.Context) (radio.Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode, nil
}

// Scan reports the configured networks plus every unreachable SSID.
func (r *Radio) Scan(context.Context) ([]radio.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nets := append([]radio.Network(nil), r.networks...)
	for ssid := range r.unreachable {
		nets = append(nets, radio.Network{SSID: ssid, RSSI: -90, Security: radio.SecurityWPA2})
	}
	return radio.SortNetworks(nets), nil
}

// Drop makes an established link disappear until the next join.
func (r *Radio) Drop() {
	r.mu.Lock()
	r.dropped = true
	r.mu.Unlock()
}
