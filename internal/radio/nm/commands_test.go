package nm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, "wlan0", cfg.STAInterface)
	assert.Equal(t, "wlan0", cfg.APInterface)
	assert.Equal(t, DefaultAPProfile, cfg.APProfile)

	cfg = Config{STAInterface: "wlp2s0", APInterface: "ap0"}.withDefaults()
	assert.Equal(t, "ap0", cfg.APInterface)
}

func TestJoinArgs(t *testing.T) {
	t.Run("secured", func(t *testing.T) {
		assert.Equal(t,
			[]string{"--wait", "0", "device", "wifi", "connect", "home", "password", "pw", "ifname", "wlan0"},
			joinArgs("wlan0", "home", "pw"))
	})
	t.Run("open", func(t *testing.T) {
		assert.Equal(t,
			[]string{"--wait", "0", "device", "wifi", "connect", "cafe", "ifname", "wlan0"},
			joinArgs("wlan0", "cafe", ""))
	})
}

func TestAPAddArgs(t *testing.T) {
	cfg := Config{APInterface: "ap0"}.withDefaults()

	open := apAddArgs(cfg, "setup", "")
	assert.NotContains(t, open, "wifi-sec.psk")
	assert.Contains(t, open, "ap")
	assert.Contains(t, open, "setup")

	secured := apAddArgs(cfg, "setup", "longenough")
	assert.Equal(t, []string{"wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", "longenough"}, secured[len(secured)-4:])
}

func TestAutoconnectArgs(t *testing.T) {
	assert.Equal(t, []string{"device", "set", "wlan0", "autoconnect", "no"}, autoconnectArgs("wlan0", false))
	assert.Equal(t, []string{"device", "set", "wlan0", "autoconnect", "yes"}, autoconnectArgs("wlan0", true))
}

func TestParseScan(t *testing.T) {
	out := []byte(`home:70:WPA2
home:40:WPA2
:90:WPA2
cafe:50:
guest:30:--
attic:60:WPA1 802.1X
cafe\:bar:55:WPA2 WPA3
garbled:line
bad:x:WPA2
`)
	assert.Equal(t, []radio.Network{
		{SSID: "home", RSSI: -65, Security: radio.SecurityWPA2},
		{SSID: "attic", RSSI: -70, Security: radio.SecurityProtected},
		{SSID: "cafe:bar", RSSI: -73, Security: radio.SecurityWPA2},
		{SSID: "cafe", RSSI: -75, Security: radio.SecurityOpen},
		{SSID: "guest", RSSI: -85, Security: radio.SecurityOpen},
	}, parseScan(out))
	assert.Empty(t, parseScan(nil))
}

func TestScanArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-t", "-f", "SSID,SIGNAL,SECURITY", "device", "wifi", "list", "ifname", "wlan0", "--rescan", "auto"},
		scanArgs("wlan0"))
}
