package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMode(t *testing.T) {
	assert.True(t, ModeAPSTA.HasAP())
	assert.True(t, ModeAPSTA.HasSTA())
	assert.False(t, ModeSTA.HasAP())
	assert.False(t, ModeOff.HasSTA())
	assert.Equal(t, "ap_sta", ModeAPSTA.String())
	assert.Equal(t, "up", LinkUp.String())
}

func TestSortNetworks(t *testing.T) {
	got := SortNetworks([]Network{
		{SSID: "cafe", RSSI: -80, Security: SecurityOpen},
		{SSID: "", RSSI: -30},
		{SSID: "home", RSSI: -70, Security: SecurityWPA2},
		{SSID: "home", RSSI: -50, Security: SecurityWPA2},
		{SSID: "attic", RSSI: -80, Security: SecurityProtected},
	})
	assert.Equal(t, []Network{
		{SSID: "home", RSSI: -50, Security: SecurityWPA2},
		{SSID: "attic", RSSI: -80, Security: SecurityProtected},
		{SSID: "cafe", RSSI: -80, Security: SecurityOpen},
	}, got)
	assert.Empty(t, SortNetworks(nil))
}
