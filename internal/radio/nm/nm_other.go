//go:build !linux

package nm

import (
	"context"
	"errors"

	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

// ErrUnsupported is returned on platforms without NetworkManager and netlink.
var ErrUnsupported = errors.New("nm radio is only supported on linux")

var _ radio.Radio = (*Radio)(nil)

type Radio struct{}

func New(Config, Runner) (*Radio, error) { return nil, ErrUnsupported }

func (*Radio) JoinNetwork(context.Context, string, string) error      { return ErrUnsupported }
func (*Radio) Disconnect(context.Context, bool) error                 { return ErrUnsupported }
func (*Radio) StartAccessPoint(context.Context, string, string) error { return ErrUnsupported }
func (*Radio) LinkStatus(context.Context) (radio.LinkStatus, error) {
	return radio.LinkDown, ErrUnsupported
}
func (*Radio) CurrentMode(context.Context) (radio.Mode, error) { return radio.ModeOff, ErrUnsupported }
func (*Radio) Scan(context.Context) ([]radio.Network, error)   { return nil, ErrUnsupported }
