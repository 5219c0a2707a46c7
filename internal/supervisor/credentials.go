package supervisor

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
)

// SetCredentials validates and persists the upstream network. It does not
// touch the radio: callers follow up with AttemptAttach once they have
// answered their own client. Upstream secrets have no length rule.
func (s *Supervisor) SetCredentials(ctx context.Context, ssid, secret string) error {
	if ssid == "" {
		return invalidInput("ssid is required")
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	creds := Credentials{SSID: ssid, Secret: secret}
	if err := s.saveJSON(ctx, blobstore.KeyCredentials, creds); err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = &creds
	s.mu.Unlock()

	slog.Info("Upstream credentials updated", logfields.SSID(ssid))
	return nil
}
