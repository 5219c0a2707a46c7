//go:build linux

package nm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/vishvananda/netlink"

	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

var _ radio.Radio = (*Radio)(nil)

// Radio controls NetworkManager-managed Wi-Fi interfaces.
type Radio struct {
	cfg Config
	run Runner

	mu        sync.Mutex
	staWanted bool
	apWanted  bool
}

// New returns a radio for cfg. A nil runner uses ExecRunner.
func New(cfg Config, run Runner) (*Radio, error) {
	if run == nil {
		run = ExecRunner
	}
	return &Radio{cfg: cfg.withDefaults(), run: run}, nil
}

func (r *Radio) nmcli(ctx context.Context, args []string) error {
	_, err := r.run(ctx, "nmcli", args...)
	return err
}

func (r *Radio) JoinNetwork(ctx context.Context, ssid, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.nmcli(ctx, autoconnectArgs(r.cfg.STAInterface, true)); err != nil {
		slog.Debug("nm: enabling autoconnect failed", logfields.Error(err))
	}
	if err := r.nmcli(ctx, joinArgs(r.cfg.STAInterface, ssid, secret)); err != nil {
		return fmt.Errorf("join %q: %w", ssid, err)
	}
	r.staWanted = true
	return nil
}

func (r *Radio) Disconnect(ctx context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staWanted = false
	if force {
		if err := r.nmcli(ctx, autoconnectArgs(r.cfg.STAInterface, false)); err != nil {
			slog.Debug("nm: disabling autoconnect failed", logfields.Error(err))
		}
	}
	// nmcli fails when the device is already disconnected.
	if err := r.nmcli(ctx, disconnectArgs(r.cfg.STAInterface)); err != nil {
		slog.Debug("nm: disconnect", logfields.Error(err))
	}
	return nil
}

func (r *Radio) StartAccessPoint(ctx context.Context, name, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.nmcli(ctx, apDeleteArgs(r.cfg.APProfile))
	if err := r.nmcli(ctx, apAddArgs(r.cfg, name, secret)); err != nil {
		return fmt.Errorf("create access point profile: %w", err)
	}
	if err := r.nmcli(ctx, apUpArgs(r.cfg.APProfile)); err != nil {
		return fmt.Errorf("activate access point: %w", err)
	}
	r.apWanted = true
	return nil
}

// LinkStatus reports up once the client interface is operationally up and
// holds an IPv4 address.
func (r *Radio) LinkStatus(context.Context) (radio.LinkStatus, error) {
	link, err := netlink.LinkByName(r.cfg.STAInterface)
	if err != nil {
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return radio.LinkDown, nil
		}
		return radio.LinkDown, fmt.Errorf("lookup %s: %w", r.cfg.STAInterface, err)
	}
	if link.Attrs().OperState != netlink.OperUp {
		return radio.LinkDown, nil
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return radio.LinkDown, fmt.Errorf("list addresses on %s: %w", r.cfg.STAInterface, err)
	}
	if len(addrs) == 0 {
		return radio.LinkDown, nil
	}
	return radio.LinkUp, nil
}

func (r *Radio) CurrentMode(context.Context) (radio.Mode, error) {
	r.mu.Lock()
	staWanted, apWanted := r.staWanted, r.apWanted
	r.mu.Unlock()

	mode := radio.ModeOff
	if staWanted {
		mode |= radio.ModeSTA
	}
	if apWanted && adminUp(r.cfg.APInterface) {
		mode |= radio.ModeAP
	}
	return mode, nil
}

// Scan lists networks seen by the client interface.
func (r *Radio) Scan(ctx context.Context) ([]radio.Network, error) {
	out, err := r.run(ctx, "nmcli", scanArgs(r.cfg.STAInterface)...)
	if err != nil {
		return nil, fmt.Errorf("scan on %s: %w", r.cfg.STAInterface, err)
	}
	return parseScan(out), nil
}

func adminUp(iface string) bool {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return false
	}
	return link.Attrs().Flags&net.FlagUp != 0
}
