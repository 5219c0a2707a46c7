package daemon

import (
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
	"git.home.luguber.info/inful/linkkeeper/internal/radio/nm"
	"git.home.luguber.info/inful/linkkeeper/internal/radio/sim"
)

func newRadio(cfg config.RadioConfig, clock clockwork.Clock) (radio.Radio, error) {
	switch cfg.Backend {
	case config.RadioSimulated:
		return sim.New(
			sim.WithClock(clock),
			sim.WithJoinDelay(cfg.SimJoinDelay),
			sim.WithUnreachable(cfg.SimUnreachable...),
		), nil
	case config.RadioNetworkManager, "":
		r, err := nm.New(nm.Config{STAInterface: cfg.STAInterface, APInterface: cfg.APInterface}, nm.ExecRunner)
		if err != nil {
			return nil, ferrors.RadioError("initialize NetworkManager radio").
				WithCause(err).
				WithContext("interface", cfg.STAInterface).
				UserAction().
				Build()
		}
		return r, nil
	default:
		return nil, ferrors.ConfigError("unknown radio backend").
			WithContext("backend", string(cfg.Backend)).
			Build()
	}
}
