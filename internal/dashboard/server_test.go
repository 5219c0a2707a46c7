package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/lifecycle"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
	"git.home.luguber.info/inful/linkkeeper/internal/uplink"
)

type staticStatus supervisor.Status

func (s staticStatus) Status() supervisor.Status { return supervisor.Status(s) }

type fakeUplink struct {
	mu        sync.Mutex
	settings  uplink.Settings
	updateErr error
}

func (f *fakeUplink) Settings() uplink.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings.Redacted()
}

func (f *fakeUplink) UpdateSettings(_ context.Context, update uplink.Settings) (uplink.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil && !ferrors.HasCategory(f.updateErr, ferrors.CategoryUplink) {
		return f.settings.Redacted(), f.updateErr
	}
	f.settings = f.settings.Merge(update)
	return f.settings.Redacted(), f.updateErr
}

func (f *fakeUplink) Status() uplink.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uplink.Status{Server: f.settings.Server, Subject: f.settings.Subject, Published: 3}
}

func newTestServer(t *testing.T) (*Server, *fakeUplink, *httptest.Server) {
	t.Helper()
	up := &fakeUplink{settings: uplink.Settings{Server: "nats://a:4222", Subject: "t", Password: "pw"}}
	status := staticStatus{Role: supervisor.RoleAttached, LastError: supervisor.ErrNone}
	s := New("127.0.0.1:0", status, up, WithServices(func() []lifecycle.ServiceInfo {
		return []lifecycle.ServiceInfo{{Name: "uplink", Running: true}}
	}))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, up, ts
}

func dialWS(t *testing.T, base string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/ws"
	c, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestStatusEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	conn := body["connectivity"].(map[string]any)
	assert.Equal(t, "attached", conn["role"])
	assert.Equal(t, "none", conn["last_error"])
	assert.Len(t, body["services"], 1)
}

func TestIndexPage(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp2, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestUplinkConfigRedactsPassword(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/uplink/config")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got uplink.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, uplink.RedactedPassword, got.Password)
	assert.Equal(t, "nats://a:4222", got.Server)
}

func TestUplinkConfigUpdate(t *testing.T) {
	_, up, ts := newTestServer(t)

	body := `{"server":"nats://b:4222","password":"***"}`
	resp, err := http.Post(ts.URL+"/api/uplink/config", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "nats://b:4222", up.settings.Server)
	assert.Equal(t, "pw", up.settings.Password)
}

func TestUplinkConfigUpdateErrors(t *testing.T) {
	_, up, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/uplink/config", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	up.updateErr = ferrors.ValidationError("uplink subject must be a literal subject").Build()
	resp, err = http.Post(ts.URL+"/api/uplink/config", "application/json", strings.NewReader(`{"subject":"a.>"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	up.updateErr = ferrors.UplinkError("connect uplink").WithCause(errors.New("refused")).Build()
	resp, err = http.Post(ts.URL+"/api/uplink/config", "application/json", bytes.NewBufferString(`{"subject":"a.b"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "a.b", got["subject"])
	assert.Contains(t, got["warning"], "connect uplink")
}

func TestUplinkStatusEndpoint(t *testing.T) {
	_, _, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/uplink/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var st uplink.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, uint64(3), st.Published)
}

func TestWebsocketReceivesStatusThenBroadcasts(t *testing.T) {
	s, _, ts := newTestServer(t)
	c := dialWS(t, ts.URL)

	var first supervisor.Status
	require.NoError(t, websocket.JSON.Receive(c, &first))
	assert.Equal(t, supervisor.RoleAttached, first.Role)
	assert.Equal(t, 1, s.Clients())

	assert.Equal(t, 1, s.Broadcast(map[string]int{"uptime_s": 5}))

	var msg map[string]int
	require.NoError(t, websocket.JSON.Receive(c, &msg))
	assert.Equal(t, 5, msg["uptime_s"])
}

func TestStartStopClosesConnections(t *testing.T) {
	s := New("127.0.0.1:0", staticStatus{Role: supervisor.RoleAttached}, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.Equal(t, "healthy", s.Health().Status)

	c, err := websocket.Dial("ws://"+s.Addr()+"/ws", "", "http://localhost/")
	require.NoError(t, err)
	defer c.Close()
	var first supervisor.Status
	require.NoError(t, websocket.JSON.Receive(c, &first))

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.Addr())
	assert.Equal(t, 0, s.Clients())
	assert.Equal(t, "stopped", s.Health().Status)

	var next string
	assert.Error(t, websocket.Message.Receive(c, &next))

	// restartable after a stop
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestUplinkRoutesWithoutUplink(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/uplink/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
