// Package fake provides a scriptable in-memory radio for tests.
package fake

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

var _ radio.Radio = (*Radio)(nil)

// AccessPoint records one StartAccessPoint call.
type AccessPoint struct {
	Name   string
	Secret string
}

// Radio is a deterministic radio. The link never comes up on its own: tests
// drive it with SetLink.
type Radio struct {
	mu sync.Mutex

	mode   radio.Mode
	link   radio.LinkStatus
	ssid   string
	secret string

	joins       []string
	disconnects []bool
	aps         []AccessPoint
	networks    []radio.Network
	scans       int

	// Injected failures, returned once set.
	JoinErr   error
	APErr     error
	StatusErr error
	ScanErr   error
}

// New returns a radio with both sides off.
func New() *Radio {
	return &Radio{}
}

func (r *Radio) JoinNetwork(_ context.Context, ssid, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.JoinErr != nil {
		return r.JoinErr
	}
	r.mode |= radio.ModeSTA
	r.ssid, r.secret = ssid, secret
	r.joins = append(r.joins, ssid)
	return nil
}

func (r *Radio) Disconnect(_ context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.link = radio.LinkDown
	r.mode &^= radio.ModeSTA
	r.disconnects = append(r.disconnects, force)
	return nil
}

func (r *Radio) StartAccessPoint(_ context.Context, name, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.APErr != nil {
		return r.APErr
	}
	r.mode |= radio.ModeAP
	r.aps = append(r.aps, AccessPoint{Name: name, Secret: secret})
	return nil
}

func (r *Radio) LinkStatus(context.Context) (radio.LinkStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StatusErr != nil {
		return radio.LinkDown, r.StatusErr
	}
	return r.link, nil
}

func (r *Radio) CurrentMode(context.Context) (radio.Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode, nil
}

func (r *Radio) Scan(context.Context) ([]radio.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans++
	if r.ScanErr != nil {
		return nil, r.ScanErr
	}
	return append([]radio.Network(nil), r.networks...), nil
}

// SetNetworks scripts the next scan results.
func (r *Radio) SetNetworks(nets ...radio.Network) {
	r.mu.Lock()
	r.networks = nets
	r.mu.Unlock()
}

// Scans returns how many times Scan was called.
func (r *Radio) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

// SetLink changes the reported client link state.
func (r *Radio) SetLink(s radio.LinkStatus) {
	r.mu.Lock()
	r.link = s
	r.mu.Unlock()
}

// StopAccessPoint simulates the AP side going away underneath the supervisor.
func (r *Radio) StopAccessPoint() {
	r.mu.Lock()
	r.mode &^= radio.ModeAP
	r.mu.Unlock()
}

// Joined returns the SSID and secret of the last join request.
func (r *Radio) Joined() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ssid, r.secret
}

// Joins returns the SSIDs of every join request, oldest first.
func (r *Radio) Joins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.joins...)
}

// Disconnects returns the force flag of every Disconnect call.
func (r *Radio) Disconnects() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.disconnects...)
}

// AccessPoints returns every StartAccessPoint call.
func (r *Radio) AccessPoints() []AccessPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AccessPoint(nil), r.aps...)
}
