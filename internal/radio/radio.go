// Package radio defines the contract between the connectivity supervisor and the
// Wi-Fi hardware. Implementations treat join/disconnect/AP operations as
// asynchronous requests; completion is observed through LinkStatus and CurrentMode.
package radio

import (
	"cmp"
	"context"
	"slices"
)

// Mode is a bitmask of the roles the radio is currently serving.
type Mode uint8

const (
	ModeOff   Mode = 0
	ModeAP    Mode = 1 << 0
	ModeSTA   Mode = 1 << 1
	ModeAPSTA      = ModeAP | ModeSTA
)

// HasAP reports whether the access point side is up.
func (m Mode) HasAP() bool { return m&ModeAP != 0 }

// HasSTA reports whether the client side is enabled.
func (m Mode) HasSTA() bool { return m&ModeSTA != 0 }

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeAP:
		return "ap"
	case ModeSTA:
		return "sta"
	case ModeAPSTA:
		return "ap_sta"
	default:
		return "unknown"
	}
}

// LinkStatus is the state of the upstream client link.
type LinkStatus uint8

const (
	LinkDown LinkStatus = iota
	LinkUp
)

func (s LinkStatus) String() string {
	if s == LinkUp {
		return "up"
	}
	return "down"
}

// Radio is the hardware primitive owned exclusively by the supervisor.
type Radio interface {
	// JoinNetwork asks the radio to attach to ssid. An empty secret means an open network.
	// It returns once the request is issued, not when the link is up.
	JoinNetwork(ctx context.Context, ssid, secret string) error
	// Disconnect drops the client link. force also stops the radio from retrying on its own.
	Disconnect(ctx context.Context, force bool) error
	// StartAccessPoint brings up the local AP. An empty secret starts an open AP.
	StartAccessPoint(ctx context.Context, name, secret string) error
	LinkStatus(ctx context.Context) (LinkStatus, error)
	CurrentMode(ctx context.Context) (Mode, error)
	// Scan lists nearby networks. It does not change the mode.
	Scan(ctx context.Context) ([]Network, error)
}

// Security is the coarse protection class shown to the operator.
type Security string

const (
	SecurityOpen      Security = "Open"
	SecurityWPA2      Security = "WPA2"
	SecurityProtected Security = "Protected"
)

// Network is one scan result. RSSI is in dBm.
type Network struct {
	SSID     string   `json:"ssid"`
	RSSI     int      `json:"rssi"`
	Security Security `json:"encryption"`
}

// SortNetworks drops hidden networks, keeps the strongest entry per SSID and
// orders the result strongest first.
func SortNetworks(nets []Network) []Network {
	best := make(map[string]Network, len(nets))
	for _, n := range nets {
		if n.SSID == "" {
			continue
		}
		if prev, ok := best[n.SSID]; !ok || n.RSSI > prev.RSSI {
			best[n.SSID] = n
		}
	}
	out := make([]Network, 0, len(best))
	for _, n := range best {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b Network) int {
		if c := cmp.Compare(b.RSSI, a.RSSI); c != 0 {
			return c
		}
		return cmp.Compare(a.SSID, b.SSID)
	})
	return out
}
