package commands

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	"git.home.luguber.info/inful/linkkeeper/internal/dashboard"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/lifecycle"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("linkkeeper"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, ctx
}

func TestCLI_ParsesRunFlags(t *testing.T) {
	cli, ctx := parse(t, "-c", "/tmp/lk.yaml", "run", "--simulate", "--data-dir", "/data")
	assert.Equal(t, "run", ctx.Command())
	assert.Equal(t, "/tmp/lk.yaml", cli.Config)
	assert.True(t, cli.Run.Simulate)
	assert.Equal(t, "/data", cli.Run.DataDir)
}

func TestCLI_ParsesStatusDefaults(t *testing.T) {
	cli, ctx := parse(t, "status")
	assert.Equal(t, "status", ctx.Command())
	assert.Equal(t, "http://127.0.0.1:80", cli.Status.Addr)
	assert.Equal(t, 3*time.Second, cli.Status.Timeout)
}

func TestRunCmd_Apply(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageSQLite
	(&RunCmd{Simulate: true, DataDir: "/data"}).apply(cfg)
	assert.Equal(t, config.RadioSimulated, cfg.Radio.Backend)
	assert.Equal(t, "/data", cfg.Storage.Dir)
	assert.Equal(t, filepath.Join("/data", "linkkeeper.db"), cfg.Storage.DSN)

	cfg = config.Default()
	(&RunCmd{}).apply(cfg)
	assert.Equal(t, config.RadioNetworkManager, cfg.Radio.Backend)
}

func TestLoadRunConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, watch, err := loadRunConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, watch)
	assert.Equal(t, config.DefaultAccessPointName, cfg.AccessPoint.Name)

	path := filepath.Join(dir, "linkkeeper.yaml")
	require.NoError(t, config.Init(path, false))
	cfg, watch, err = loadRunConfig(path)
	require.NoError(t, err)
	assert.True(t, watch)
	assert.Equal(t, "node-01", cfg.Device.Name)

	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o600))
	_, _, err = loadRunConfig(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	level, closer := setupLogging(config.LoggingConfig{Level: config.LogLevelWarn, Format: config.LogFormatJSON}, false, &buf)
	assert.Nil(t, closer)
	assert.Equal(t, slog.LevelWarn, level.Level())

	slog.Info("hidden")
	slog.Warn("shown", slog.String("ssid", "home"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "home", line["ssid"])

	level, _ = setupLogging(config.LoggingConfig{Level: config.LogLevelError}, true, &buf)
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestSetupLogging_RotatedFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	file := filepath.Join(t.TempDir(), "linkkeeper.log")
	var buf bytes.Buffer
	_, closer := setupLogging(config.LoggingConfig{Level: config.LogLevelInfo, File: file, MaxSizeMB: 1}, false, &buf)
	require.NotNil(t, closer)

	slog.Info("to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.Contains(t, buf.String(), "to both")
}

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkkeeper.yaml")
	root := &CLI{Config: path}

	require.NoError(t, (&InitCmd{}).Run(nil, root))
	err := (&InitCmd{}).Run(nil, root)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConflict))
	require.NoError(t, (&InitCmd{Force: true}).Run(nil, root))
}

func TestRenderStatus(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	out := renderStatus(supervisor.Status{
		Role:            supervisor.RoleAttaching,
		LastError:       supervisor.ErrLinkLost,
		SSID:            "home",
		AccessPoint:     "linkkeeper-setup",
		AccessPointOpen: true,
		AttachDeadline:  &deadline,
	}, nil)
	assert.Contains(t, out, "attaching")
	assert.Contains(t, out, "link_lost")
	assert.Contains(t, out, "home")
	assert.Contains(t, out, "linkkeeper-setup (open)")
	assert.Contains(t, out, "attach deadline")

	out = renderStatus(supervisor.Status{Role: supervisor.RoleAttached}, &dashboard.StatusResponse{
		Services: []lifecycle.ServiceInfo{{Name: "uplink", Running: true, Starts: 2, Health: lifecycle.Healthy()}},
	})
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "uplink")
	assert.Contains(t, out, "healthy")
}

func TestStatusCmd(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(supervisor.Status{Role: supervisor.RoleLocalAP, AccessPoint: "setup"})
	}))
	defer portal.Close()

	cmd := &StatusCmd{Addr: portal.URL + "/", Timeout: time.Second}
	require.NoError(t, cmd.Run(nil, nil))
	cmd.JSON = true
	require.NoError(t, cmd.Run(nil, nil))
}

func TestStatusCmd_Errors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	err := (&StatusCmd{Addr: failing.URL, Timeout: time.Second}).Run(nil, nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))

	failing.Close()
	err = (&StatusCmd{Addr: failing.URL, Timeout: time.Second}).Run(nil, nil)
	require.Error(t, err)
}
