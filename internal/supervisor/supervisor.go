// Package supervisor implements the connectivity supervisor: it owns the
// radio, selects between the local access point and the upstream attachment,
// and runs the timeout-bounded attach protocol with fallback to the local AP.
//
// All state lives in one record guarded by a mutex. The HTTP layer may call
// only SetCredentials, AttemptAttach, SetAccessPointConfig, Scan and the
// read-only State/Status accessors; the daemon drives Poll and CheckHealth on
// their cadences.
package supervisor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/linkkeeper/internal/blobstore"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/metrics"
	"git.home.luguber.info/inful/linkkeeper/internal/radio"
	"git.home.luguber.info/inful/linkkeeper/internal/readiness"
)

const (
	DefaultAttachTimeout   = 15 * time.Second
	DefaultMinSecretLength = 8
	DefaultAccessPointName = "linkkeeper-setup"
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithClock injects the clock used for attach deadlines.
func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithAttachTimeout bounds how long an attach may stay in flight.
func WithAttachTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.attachTimeout = d
		}
	}
}

// WithAccessPointDefaults sets the built-in AP settings used when nothing is persisted.
func WithAccessPointDefaults(name, secret string) Option {
	return func(s *Supervisor) {
		if name != "" {
			s.apDefaults = AccessPointSettings{Name: name, Secret: secret}
		}
	}
}

// WithMinSecretLength sets the minimum local AP password length.
func WithMinSecretLength(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.minSecretLength = n
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Supervisor) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Supervisor is the single writer of the connectivity state.
type Supervisor struct {
	radio    radio.Radio
	store    blobstore.Store
	clock    clockwork.Clock
	recorder metrics.Recorder
	ready    *readiness.Signal

	attachTimeout   time.Duration
	minSecretLength int
	apDefaults      AccessPointSettings

	// cfgMu serializes persisted configuration writes so a slow store never
	// holds mu across a Poll.
	cfgMu sync.Mutex

	mu            sync.Mutex
	state         State
	creds         *Credentials
	apOverride    *AccessPointSettings
	apApplied     *AccessPointSettings
	attachStarted time.Time
}

// New returns a supervisor in RoleLocalAP. Call Boot to load persisted
// configuration and bring the radio up.
func New(r radio.Radio, store blobstore.Store, opts ...Option) *Supervisor {
	s := &Supervisor{
		radio:           r,
		store:           store,
		clock:           clockwork.NewRealClock(),
		recorder:        metrics.NoopRecorder{},
		ready:           readiness.New(),
		attachTimeout:   DefaultAttachTimeout,
		minSecretLength: DefaultMinSecretLength,
		apDefaults:      AccessPointSettings{Name: DefaultAccessPointName},
		state:           State{Role: RoleLocalAP},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Boot loads persisted credentials and AP settings, starts the local AP and,
// when credentials exist, begins the first attach. Store failures are logged
// and treated as absent configuration so the AP still comes up.
func (s *Supervisor) Boot(ctx context.Context) error {
	s.loadPersisted(ctx)

	if err := s.StartLocalAccessPoint(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	hasCreds := s.creds != nil
	s.mu.Unlock()
	if !hasCreds {
		slog.Info("No upstream credentials stored; serving local access point only")
		return nil
	}
	if err := s.AttemptAttach(ctx); err != nil && !IsAttachInFlight(err) {
		return err
	}
	return nil
}

func (s *Supervisor) loadPersisted(ctx context.Context) {
	var creds Credentials
	if ok := s.loadJSON(ctx, blobstore.KeyCredentials, &creds); ok && creds.SSID != "" {
		s.mu.Lock()
		s.creds = &creds
		s.mu.Unlock()
		slog.Info("Loaded upstream credentials", logfields.SSID(creds.SSID))
	}

	var ap AccessPointSettings
	if ok := s.loadJSON(ctx, blobstore.KeyAccessPoint, &ap); ok && ap.Name != "" {
		s.mu.Lock()
		s.apOverride = &ap
		s.mu.Unlock()
		slog.Info("Loaded access point override", logfields.APName(ap.Name))
	}
}

func (s *Supervisor) loadJSON(ctx context.Context, key string, into any) bool {
	data, ok, err := s.store.Load(ctx, key)
	if err != nil {
		slog.Error("Failed to load persisted configuration", logfields.Key(key), logfields.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		slog.Warn("Ignoring malformed persisted configuration", logfields.Key(key), logfields.Error(err))
		return false
	}
	return true
}

func (s *Supervisor) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ferrors.InternalError("encode configuration").WithCause(err).WithContext("key", key).Build()
	}
	return s.store.Save(ctx, key, data)
}

// State returns a snapshot of the connectivity record.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the operator-facing view of the supervisor.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	ap := s.effectiveAccessPointLocked()
	st := Status{
		Role:             s.state.Role,
		LastError:        s.state.LastError,
		ReadinessPending: s.ready.Pending(),
		AccessPoint:      ap.Name,
		AccessPointOpen:  ap.Secret == "",
	}
	if !s.state.AttachDeadline.IsZero() {
		d := s.state.AttachDeadline
		st.AttachDeadline = &d
	}
	if s.creds != nil {
		st.SSID = s.creds.SSID
	}
	return st
}

// Readiness returns the signal raised on every successful attach.
func (s *Supervisor) Readiness() *readiness.Signal {
	return s.ready
}

// HasCredentials reports whether an upstream network is configured.
func (s *Supervisor) HasCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds != nil
}

// setRoleLocked moves to role and keeps the deadline invariant: the deadline
// is cleared on every transition away from RoleAttaching.
func (s *Supervisor) setRoleLocked(role Role) {
	prev := s.state.Role
	s.state.Role = role
	if role != RoleAttaching {
		s.state.AttachDeadline = time.Time{}
	}
	if prev == role {
		return
	}
	s.recorder.ObserveRoleTransition(prev.String(), role.String())
	slog.Info("Connectivity role changed",
		logfields.PrevRole(prev.String()),
		logfields.Role(role.String()),
		logfields.LastError(s.state.LastError.String()))
}
