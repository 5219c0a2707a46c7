package supervisor

import (
	"context"
	"log/slog"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

// Scan lists networks in range, strongest first. The supervisor lock is not
// held while the radio scans, so an attach in flight is never delayed and the
// role is left as it is.
func (s *Supervisor) Scan(ctx context.Context) ([]radio.Network, error) {
	nets, err := s.radio.Scan(ctx)
	if err != nil {
		return nil, ferrors.RadioError("scan for networks").
			WithCause(err).
			WithContext("role", s.State().Role.String()).
			Build()
	}
	nets = radio.SortNetworks(nets)
	slog.Debug("Network scan complete", slog.Int("networks", len(nets)))
	return nets, nil
}
