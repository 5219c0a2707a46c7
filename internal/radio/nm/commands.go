// Package nm drives a Linux Wi-Fi chip through NetworkManager (nmcli) and reads
// link state from the kernel over netlink.
package nm

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

// DefaultAPProfile is the NetworkManager connection name used for the local AP.
const DefaultAPProfile = "linkkeeper-ap"

// Config names the interfaces the radio operates on. The AP usually runs on a
// virtual interface sharing the same phy as the client interface.
type Config struct {
	STAInterface string
	APInterface  string
	APProfile    string
}

func (c Config) withDefaults() Config {
	if c.STAInterface == "" {
		c.STAInterface = "wlan0"
	}
	if c.APInterface == "" {
		c.APInterface = c.STAInterface
	}
	if c.APProfile == "" {
		c.APProfile = DefaultAPProfile
	}
	return c
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// --wait 0 returns as soon as NetworkManager accepted the request.
func joinArgs(iface, ssid, secret string) []string {
	args := []string{"--wait", "0", "device", "wifi", "connect", ssid}
	if secret != "" {
		args = append(args, "password", secret)
	}
	return append(args, "ifname", iface)
}

func disconnectArgs(iface string) []string {
	return []string{"--wait", "0", "device", "disconnect", iface}
}

// Non-forced disconnects leave autoconnect on so NetworkManager may rejoin later.
func autoconnectArgs(iface string, on bool) []string {
	v := "no"
	if on {
		v = "yes"
	}
	return []string{"device", "set", iface, "autoconnect", v}
}

func apDeleteArgs(profile string) []string {
	return []string{"connection", "delete", "id", profile}
}

func apAddArgs(cfg Config, name, secret string) []string {
	args := []string{
		"connection", "add", "type", "wifi",
		"ifname", cfg.APInterface,
		"con-name", cfg.APProfile,
		"autoconnect", "no",
		"ssid", name,
		"802-11-wireless.mode", "ap",
		"ipv4.method", "shared",
	}
	if secret != "" {
		args = append(args, "wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", secret)
	}
	return args
}

func apUpArgs(profile string) []string {
	return []string{"--wait", "0", "connection", "up", "id", profile}
}

// --rescan auto lets NetworkManager reuse a recent scan instead of blocking.
func scanArgs(iface string) []string {
	return []string{"-t", "-f", "SSID,SIGNAL,SECURITY", "device", "wifi", "list", "ifname", iface, "--rescan", "auto"}
}

// parseScan reads terse nmcli output, where ':' separates fields and a
// literal ':' or '\' inside a field is escaped with '\'.
func parseScan(out []byte) []radio.Network {
	var nets []radio.Network
	for _, line := range strings.Split(string(out), "\n") {
		fields := splitTerse(strings.TrimRight(line, "\r"))
		if len(fields) != 3 || fields[0] == "" {
			continue
		}
		signal, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		nets = append(nets, radio.Network{
			SSID:     fields[0],
			RSSI:     signal/2 - 100,
			Security: security(fields[2]),
		})
	}
	return radio.SortNetworks(nets)
}

func splitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

func security(s string) radio.Security {
	switch {
	case s == "" || s == "--":
		return radio.SecurityOpen
	case strings.Contains(s, "WPA2"):
		return radio.SecurityWPA2
	default:
		return radio.SecurityProtected
	}
}
