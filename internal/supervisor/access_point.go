package supervisor

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
)

// StartLocalAccessPoint brings up the configuration AP and makes it the
// active role. It is a no-op while the AP is already up with the same
// settings.
//
// An attach in flight is not cancelled: the AP comes up alongside it and the
// role stays RoleAttaching. RoleFallback is kept as is, since it already means
// the local AP is serving. From RoleAttached the client link is dropped.
func (s *Supervisor) StartLocalAccessPoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Role == RoleAttached {
		if err := s.radio.Disconnect(ctx, true); err != nil {
			slog.Warn("Disconnect before local AP failed", logfields.Error(err))
		}
	}

	if err := s.ensureAccessPointLocked(ctx, false); err != nil {
		return err
	}

	switch s.state.Role {
	case RoleAttaching, RoleFallback:
	default:
		s.setRoleLocked(RoleLocalAP)
	}
	return nil
}

// SetAccessPointConfig validates and persists a local AP override. The
// secret must be empty (open AP) or at least the minimum length. When the
// local AP is the serving role it is restarted with the new settings;
// otherwise they apply the next time it starts.
func (s *Supervisor) SetAccessPointConfig(ctx context.Context, name, secret string) error {
	if name == "" {
		return invalidInput("access point name is required")
	}
	if secret != "" && len(secret) < s.minSecretLength {
		return invalidInput("access point password is too short")
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	settings := AccessPointSettings{Name: name, Secret: secret}
	if err := s.saveJSON(ctx, blobstore.KeyAccessPoint, settings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apOverride = &settings
	slog.Info("Access point settings updated", logfields.APName(name), logfields.APOpen(secret == ""))

	if s.state.Role == RoleLocalAP || s.state.Role == RoleFallback {
		return s.ensureAccessPointLocked(ctx, true)
	}
	return nil
}

// effectiveAccessPointLocked resolves the persisted override or the built-in
// defaults. A secret shorter than the minimum starts the AP open.
func (s *Supervisor) effectiveAccessPointLocked() AccessPointSettings {
	ap := s.apDefaults
	if s.apOverride != nil {
		ap = *s.apOverride
	}
	if ap.Secret != "" && len(ap.Secret) < s.minSecretLength {
		ap.Secret = ""
	}
	return ap
}

func (s *Supervisor) ensureAccessPointLocked(ctx context.Context, force bool) error {
	want := s.effectiveAccessPointLocked()

	if !force && s.apApplied != nil && *s.apApplied == want {
		mode, err := s.radio.CurrentMode(ctx)
		if err == nil && mode.HasAP() {
			return nil
		}
	}

	if err := s.radio.StartAccessPoint(ctx, want.Name, want.Secret); err != nil {
		return ferrors.RadioError("start access point").
			WithCause(err).
			WithContext("ap_name", want.Name).
			Build()
	}
	s.apApplied = &want
	slog.Info("Local access point started", logfields.APName(want.Name), logfields.APOpen(want.Secret == ""))
	return nil
}

// SetAccessPointDefaults replaces the built-in AP settings used when no
// override is persisted, for configuration reloads. A serving AP without an
// override picks the change up immediately.
func (s *Supervisor) SetAccessPointDefaults(ctx context.Context, name, secret string) error {
	if name == "" {
		return invalidInput("access point name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apDefaults = AccessPointSettings{Name: name, Secret: secret}
	if s.apOverride == nil && (s.state.Role == RoleLocalAP || s.state.Role == RoleFallback) {
		return s.ensureAccessPointLocked(ctx, false)
	}
	return nil
}
