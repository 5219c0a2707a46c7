package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/metrics"
	"git.home.luguber.info/inful/linkkeeper/internal/readiness"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
)

// handle is the manager-owned record of one service. running is the only
// source of truth for start/stop decisions; services are never probed.
type handle struct {
	running   bool
	status    Status
	starts    int
	failures  int
	startedAt time.Time
	stoppedAt time.Time
	lastErr   error
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeouts bounds each Start and Stop call.
func WithTimeouts(start, stop time.Duration) Option {
	return func(m *Manager) {
		m.startTimeout = start
		m.stopTimeout = stop
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithClock injects the clock used for start/stop timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithReadiness makes the manager the consumer of the supervisor's
// "became attached" signal: an attached pass takes the pending notification
// before starting services.
func WithReadiness(sig *readiness.Signal) Option {
	return func(m *Manager) { m.ready = sig }
}

// Manager starts and stops registered services as a function of the
// supervisor's role. It never touches the radio.
type Manager struct {
	mu       sync.Mutex
	services map[string]Service
	handles  map[string]*handle
	order    []string // start order; nil when it must be recomputed
	names    []string // registration order

	startTimeout time.Duration
	stopTimeout  time.Duration
	clock        clockwork.Clock
	recorder     metrics.Recorder
	ready        *readiness.Signal
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		services:     make(map[string]Service),
		handles:      make(map[string]*handle),
		startTimeout: 10 * time.Second,
		stopTimeout:  5 * time.Second,
		clock:        clockwork.NewRealClock(),
		recorder:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a service in the stopped state.
func (m *Manager) Register(svc Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := svc.Name()
	if name == "" {
		return ferrors.ValidationError("service name cannot be empty").Build()
	}
	if _, exists := m.services[name]; exists {
		return ferrors.ValidationError(fmt.Sprintf("service %s already registered", name)).Build()
	}

	m.services[name] = svc
	m.handles[name] = &handle{status: StatusNotStarted}
	m.names = append(m.names, name)
	m.order = nil

	slog.Debug("Service registered", logfields.Service(name), slog.Any("dependencies", svc.Dependencies()))
	return nil
}

// Reconcile makes every service's running flag equal (role == RoleAttached).
// Services are handled independently: a failed start is reported in the
// returned error and retried on the next pass without blocking the others.
// A service whose dependencies are not running is skipped. When no start
// order can be computed, registration order is used.
func (m *Manager) Reconcile(ctx context.Context, state supervisor.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, orderErr := m.startOrderLocked()
	if orderErr != nil {
		order = m.names
	}

	if state.Role != supervisor.RoleAttached {
		for i := len(order) - 1; i >= 0; i-- {
			if m.handles[order[i]].running {
				m.stopLocked(ctx, order[i])
			}
		}
		return orderErr
	}

	if m.ready != nil && m.ready.TryTake() {
		slog.Debug("Upstream ready, starting dependent services", slog.Int("services", len(order)))
	}

	errs := []error{orderErr}
	for _, name := range order {
		if m.handles[name].running {
			continue
		}
		if dep, ok := m.missingDependencyLocked(name); !ok {
			errs = append(errs, ferrors.RuntimeError(fmt.Sprintf("service %s waits for %s", name, dep)).
				WithContext("service", name).
				WithContext("dependency", dep).
				Build())
			continue
		}
		if err := m.startLocked(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// missingDependencyLocked returns the first dependency of name that is not
// registered and running.
func (m *Manager) missingDependencyLocked(name string) (string, bool) {
	for _, dep := range m.services[name].Dependencies() {
		if h, ok := m.handles[dep]; !ok || !h.running {
			return dep, false
		}
	}
	return "", true
}

// StopAll stops every running service in reverse start order.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, err := m.startOrderLocked()
	if err != nil {
		order = m.names
	}
	for i := len(order) - 1; i >= 0; i-- {
		if m.handles[order[i]].running {
			m.stopLocked(ctx, order[i])
		}
	}
}

// Running reports the handle flag of a service.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[name]
	return ok && h.running
}

// Services returns information about every registered service, by name.
func (m *Manager) Services() []ServiceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]ServiceInfo, 0, len(m.services))
	for _, name := range m.names {
		svc, h := m.services[name], m.handles[name]
		info := ServiceInfo{
			Name:         name,
			Status:       h.status,
			Running:      h.running,
			Health:       svc.Health(),
			Dependencies: svc.Dependencies(),
			Starts:       h.starts,
		}
		if !h.startedAt.IsZero() {
			t := h.startedAt
			info.StartedAt = &t
		}
		if !h.stoppedAt.IsZero() {
			t := h.stoppedAt
			info.StoppedAt = &t
		}
		if h.lastErr != nil {
			info.LastError = h.lastErr.Error()
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b ServiceInfo) int { return strings.Compare(a.Name, b.Name) })
	return infos
}

func (m *Manager) startLocked(ctx context.Context, name string) error {
	svc, h := m.services[name], m.handles[name]

	startCtx, cancel := context.WithTimeout(ctx, m.startTimeout)
	defer cancel()

	began := m.clock.Now()
	if err := svc.Start(startCtx); err != nil {
		h.status = StatusFailed
		h.lastErr = err
		h.failures++
		m.recorder.IncServiceStartFailure(name)
		// Retried every pass; only the first failure of a streak is loud.
		level := slog.LevelDebug
		if h.failures == 1 {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "Service failed to start", logfields.Service(name), logfields.Error(err))
		return ferrors.RuntimeError(fmt.Sprintf("failed to start service %s", name)).
			WithCause(err).
			WithContext("service", name).
			Build()
	}

	h.running = true
	h.status = StatusRunning
	h.starts++
	h.failures = 0
	h.lastErr = nil
	h.startedAt = began
	m.recorder.SetServiceRunning(name, true)
	slog.Info("Service started", logfields.Service(name), logfields.DurationMS(m.clock.Since(began)))
	return nil
}

// stopLocked always ends with the handle not running; a Stop error is logged
// and kept as LastError.
func (m *Manager) stopLocked(ctx context.Context, name string) {
	svc, h := m.services[name], m.handles[name]

	stopCtx, cancel := context.WithTimeout(ctx, m.stopTimeout)
	defer cancel()

	began := m.clock.Now()
	err := svc.Stop(stopCtx)

	h.running = false
	h.stoppedAt = began
	h.status = StatusStopped
	m.recorder.SetServiceRunning(name, false)

	if err != nil {
		h.lastErr = err
		slog.Error("Error stopping service", logfields.Service(name), logfields.Error(err))
		return
	}
	slog.Info("Service stopped", logfields.Service(name), logfields.DurationMS(m.clock.Since(began)))
}

// startOrderLocked returns a dependency-respecting order, cached until the
// next Register.
func (m *Manager) startOrderLocked() ([]string, error) {
	if m.order != nil {
		return m.order, nil
	}

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	order := make([]string, 0, len(m.names))

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving service: %s", name)
		}
		if visited[name] {
			return nil
		}
		svc, exists := m.services[name]
		if !exists {
			return fmt.Errorf("service not found: %s", name)
		}
		visiting[name] = true
		for _, dep := range svc.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range m.names {
		if err := visit(name); err != nil {
			return nil, ferrors.InternalError("failed to calculate service start order").WithCause(err).Build()
		}
	}
	m.order = order
	return order, nil
}
