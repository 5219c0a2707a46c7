package fake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

func TestRadio_ModeTracking(t *testing.T) {
	ctx := context.Background()
	r := New()

	require.NoError(t, r.StartAccessPoint(ctx, "setup", ""))
	require.NoError(t, r.JoinNetwork(ctx, "home", "pw"))
	mode, _ := r.CurrentMode(ctx)
	assert.Equal(t, radio.ModeAPSTA, mode)

	link, _ := r.LinkStatus(ctx)
	assert.Equal(t, radio.LinkDown, link)
	r.SetLink(radio.LinkUp)
	link, _ = r.LinkStatus(ctx)
	assert.Equal(t, radio.LinkUp, link)

	require.NoError(t, r.Disconnect(ctx, true))
	mode, _ = r.CurrentMode(ctx)
	assert.Equal(t, radio.ModeAP, mode)
	link, _ = r.LinkStatus(ctx)
	assert.Equal(t, radio.LinkDown, link)

	assert.Equal(t, []string{"home"}, r.Joins())
	assert.Equal(t, []bool{true}, r.Disconnects())
	assert.Equal(t, []AccessPoint{{Name: "setup"}}, r.AccessPoints())
}
