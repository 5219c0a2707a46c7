package supervisor

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/metrics"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
)

// AttemptAttach starts joining the stored upstream network and returns
// immediately; Poll observes the outcome. It is rejected, with state left
// unchanged, when no credentials are stored or an attach is already in flight.
func (s *Supervisor) AttemptAttach(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptAttachLocked(ctx, ErrNone)
}

// attemptAttachLocked performs the check-then-set under mu. reason becomes
// LastError for the duration of the attempt.
func (s *Supervisor) attemptAttachLocked(ctx context.Context, reason ErrorKind) error {
	if s.creds == nil {
		s.recorder.IncAttachResult(metrics.AttachNoCredentials)
		return ErrCredentialsMissing
	}
	if s.state.Role == RoleAttaching {
		s.recorder.IncAttachResult(metrics.AttachRejected)
		return ErrAttachInFlight
	}

	prev := s.state.Role
	now := s.clock.Now()
	s.state.LastError = reason
	s.state.AttachDeadline = now.Add(s.attachTimeout)
	s.attachStarted = now
	s.setRoleLocked(RoleAttaching)
	s.recorder.IncAttachResult(metrics.AttachStarted)

	if prev == RoleAttached {
		if err := s.radio.Disconnect(ctx, false); err != nil {
			slog.Debug("Disconnect before re-attach failed", logfields.Error(err))
		}
	}

	// A join that cannot even be issued is left to the deadline.
	if err := s.radio.JoinNetwork(ctx, s.creds.SSID, s.creds.Secret); err != nil {
		slog.Warn("Join request failed", logfields.SSID(s.creds.SSID), logfields.Error(err))
	}
	slog.Info("Attach started",
		logfields.SSID(s.creds.SSID),
		logfields.Deadline(s.state.AttachDeadline))
	return nil
}

// Poll advances an in-flight attach: link up moves to RoleAttached and
// raises readiness; an expired deadline moves to RoleFallback with the
// local AP restored. Outside RoleAttaching it does nothing.
func (s *Supervisor) Poll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Role != RoleAttaching {
		return
	}

	link, err := s.radio.LinkStatus(ctx)
	if err != nil {
		slog.Debug("Link status unavailable", logfields.Error(err))
		link = radio.LinkDown
	}

	if link == radio.LinkUp {
		s.state.LastError = ErrNone
		s.setRoleLocked(RoleAttached)
		s.recorder.IncAttachResult(metrics.AttachSucceeded)
		s.recorder.ObserveAttachDuration(s.clock.Since(s.attachStarted))
		s.ready.Release()
		return
	}

	if s.clock.Now().After(s.state.AttachDeadline) {
		s.fallbackLocked(ctx, ErrTimeout)
		s.recorder.IncAttachResult(metrics.AttachTimedOut)
	}
}

// CheckHealth watches an established link. When the link has dropped it
// records ErrLinkLost, starts a fresh attach and returns true so the caller
// can stop dependent services. In RoleFallback with credentials stored it
// retries the attach.
func (s *Supervisor) CheckHealth(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.Role {
	case RoleAttached:
		link, err := s.radio.LinkStatus(ctx)
		if err != nil {
			slog.Debug("Health check skipped", logfields.Error(err))
			return false
		}
		if link == radio.LinkUp {
			return false
		}
		slog.Warn("Upstream link lost")
		s.recorder.IncLinkLost()
		s.state.LastError = ErrLinkLost
		if err := s.attemptAttachLocked(ctx, ErrLinkLost); err != nil {
			s.fallbackLocked(ctx, ErrLinkLost)
		}
		return true

	case RoleFallback:
		if s.creds != nil {
			slog.Info("Retrying attach from fallback", logfields.SSID(s.creds.SSID))
			_ = s.attemptAttachLocked(ctx, s.state.LastError)
		}
	}
	return false
}

func (s *Supervisor) fallbackLocked(ctx context.Context, reason ErrorKind) {
	s.state.LastError = reason
	s.setRoleLocked(RoleFallback)

	if err := s.radio.Disconnect(ctx, true); err != nil {
		slog.Warn("Forced disconnect failed", logfields.Error(err))
	}
	if err := s.ensureAccessPointLocked(ctx, false); err != nil {
		slog.Error("Failed to restore local access point", logfields.Error(err))
	}
}
