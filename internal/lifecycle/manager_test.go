package lifecycle

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linkkeeper/internal/readiness"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
)

// MockService is a test implementation of Service.
type MockService struct {
	name         string
	dependencies []string
	failStart    bool
	failStop     bool
	startDelay   time.Duration

	mu      sync.Mutex
	running bool
	starts  int
	stops   int
	log     *[]string
}

func NewMockService(name string, deps ...string) *MockService {
	return &MockService{name: name, dependencies: deps}
}

func (m *MockService) WithStartFailure() *MockService { m.failStart = true; return m }
func (m *MockService) WithStopFailure() *MockService  { m.failStop = true; return m }
func (m *MockService) WithLog(log *[]string) *MockService {
	m.log = log
	return m
}

func (m *MockService) WithStartDelay(d time.Duration) *MockService {
	m.startDelay = d
	return m
}

func (m *MockService) Name() string           { return m.name }
func (m *MockService) Dependencies() []string { return m.dependencies }

func (m *MockService) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startDelay > 0 {
		select {
		case <-time.After(m.startDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.failStart {
		return errors.New("mock start failure")
	}
	m.running = true
	m.starts++
	if m.log != nil {
		*m.log = append(*m.log, "start:"+m.name)
	}
	return nil
}

func (m *MockService) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.stops++
	if m.log != nil {
		*m.log = append(*m.log, "stop:"+m.name)
	}
	if m.failStop {
		return errors.New("mock stop failure")
	}
	return nil
}

func (m *MockService) Health() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return Healthy()
	}
	return Stopped()
}

func (m *MockService) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

func attached() supervisor.State { return supervisor.State{Role: supervisor.RoleAttached} }
func role(r supervisor.Role) supervisor.State {
	st := supervisor.State{Role: r}
	if r == supervisor.RoleAttaching {
		st.AttachDeadline = time.Now().Add(time.Second)
	}
	return st
}

func TestManager_Register(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("dashboard")))

	err := m.Register(NewMockService("dashboard"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	require.Error(t, m.Register(NewMockService("")))
}

func TestManager_StartsOnAttachedOnly(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	dash := NewMockService("dashboard")
	require.NoError(t, m.Register(dash))

	for _, r := range []supervisor.Role{supervisor.RoleLocalAP, supervisor.RoleAttaching, supervisor.RoleFallback} {
		require.NoError(t, m.Reconcile(ctx, role(r)))
		assert.False(t, m.Running("dashboard"), "role %s", r)
	}

	require.NoError(t, m.Reconcile(ctx, attached()))
	assert.True(t, m.Running("dashboard"))
}

func TestManager_StartIsGuardedByHandle(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	dash := NewMockService("dashboard")
	require.NoError(t, m.Register(dash))

	for range 5 {
		require.NoError(t, m.Reconcile(ctx, attached()))
	}
	starts, stops := dash.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 0, stops)
}

func TestManager_LinkDropCycle(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	dash := NewMockService("dashboard")
	up := NewMockService("uplink")
	require.NoError(t, m.Register(dash))
	require.NoError(t, m.Register(up))

	require.NoError(t, m.Reconcile(ctx, attached()))
	require.NoError(t, m.Reconcile(ctx, role(supervisor.RoleAttaching)))
	assert.False(t, m.Running("dashboard"))
	assert.False(t, m.Running("uplink"))

	require.NoError(t, m.Reconcile(ctx, role(supervisor.RoleAttaching)))
	require.NoError(t, m.Reconcile(ctx, attached()))
	assert.True(t, m.Running("dashboard"))
	assert.True(t, m.Running("uplink"))

	starts, stops := dash.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestManager_IndependentFailures(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	broken := NewMockService("broken").WithStartFailure()
	ok := NewMockService("ok")
	require.NoError(t, m.Register(broken))
	require.NoError(t, m.Register(ok))

	err := m.Reconcile(ctx, attached())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, m.Running("ok"))
	assert.False(t, m.Running("broken"))

	infos := m.Services()
	require.Len(t, infos, 2)
	assert.Equal(t, "broken", infos[0].Name)
	assert.Equal(t, StatusFailed, infos[0].Status)
	assert.Equal(t, "mock start failure", infos[0].LastError)
	assert.Equal(t, StatusRunning, infos[1].Status)
}

func TestManager_StopFailureStillMarksStopped(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("sticky").WithStopFailure()))

	require.NoError(t, m.Reconcile(ctx, attached()))
	require.NoError(t, m.Reconcile(ctx, role(supervisor.RoleFallback)))
	assert.False(t, m.Running("sticky"))
	assert.Equal(t, "mock stop failure", m.Services()[0].LastError)
}

func TestManager_StartTimeout(t *testing.T) {
	m := NewManager(WithTimeouts(20*time.Millisecond, time.Second))
	require.NoError(t, m.Register(NewMockService("slow").WithStartDelay(time.Second)))

	err := m.Reconcile(context.Background(), attached())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, m.Running("slow"))
}

func TestManager_DependencyOrder(t *testing.T) {
	ctx := context.Background()
	var log []string
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("uplink", "dashboard").WithLog(&log)))
	require.NoError(t, m.Register(NewMockService("dashboard").WithLog(&log)))

	require.NoError(t, m.Reconcile(ctx, attached()))
	m.StopAll(ctx)

	assert.Equal(t, []string{"start:dashboard", "start:uplink", "stop:uplink", "stop:dashboard"}, log)
}

func TestManager_CircularDependency(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("a", "b")))
	require.NoError(t, m.Register(NewMockService("b", "a")))

	err := m.Reconcile(context.Background(), attached())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestManager_UnregisteredDependencyDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("dashboard")))
	require.NoError(t, m.Register(NewMockService("uplink", "broker")))

	err := m.Reconcile(ctx, attached())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker")
	assert.True(t, m.Running("dashboard"))
	assert.False(t, m.Running("uplink"))

	require.NoError(t, m.Register(NewMockService("broker")))
	require.NoError(t, m.Reconcile(ctx, attached()))
	assert.True(t, m.Running("uplink"))
	assert.True(t, m.Running("broker"))

	require.NoError(t, m.Reconcile(ctx, role(supervisor.RoleFallback)))
	for _, name := range []string{"dashboard", "uplink", "broker"} {
		assert.False(t, m.Running(name), name)
	}
}

func TestManager_DependentWaitsForFailedDependency(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NewMockService("broker").WithStartFailure()))
	require.NoError(t, m.Register(NewMockService("uplink", "broker")))

	err := m.Reconcile(context.Background(), attached())
	require.Error(t, err)
	assert.False(t, m.Running("broker"))
	assert.False(t, m.Running("uplink"))
}

func TestManager_ConsumesReadiness(t *testing.T) {
	ctx := context.Background()
	sig := readiness.New()
	m := NewManager(WithReadiness(sig))
	require.NoError(t, m.Register(NewMockService("dashboard")))

	sig.Release()
	require.NoError(t, m.Reconcile(ctx, role(supervisor.RoleAttaching)))
	assert.True(t, sig.Pending())

	require.NoError(t, m.Reconcile(ctx, attached()))
	assert.False(t, sig.Pending())
	assert.True(t, m.Running("dashboard"))
}

// After every Reconcile each running flag must equal (role == attached).
func TestManager_ReconciliationProperty(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	names := []string{"dashboard", "uplink", "flaky"}
	require.NoError(t, m.Register(NewMockService("dashboard")))
	require.NoError(t, m.Register(NewMockService("uplink")))
	require.NoError(t, m.Register(NewMockService("flaky").WithStopFailure()))

	roles := []supervisor.Role{supervisor.RoleLocalAP, supervisor.RoleAttaching, supervisor.RoleAttached, supervisor.RoleFallback}
	rng := rand.New(rand.NewSource(42))
	for range 500 {
		r := roles[rng.Intn(len(roles))]
		require.NoError(t, m.Reconcile(ctx, role(r)))
		for _, n := range names {
			require.Equal(t, r == supervisor.RoleAttached, m.Running(n), "service %s in role %s", n, r)
		}
	}
}
