package commands

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	"git.home.luguber.info/inful/linkkeeper/internal/daemon"
)

// shutdownTimeout bounds the graceful stop after a signal.
const shutdownTimeout = 30 * time.Second

// RunCmd implements the 'run' command.
type RunCmd struct {
	Simulate bool   `help:"Use the simulated radio instead of NetworkManager"`
	DataDir  string `short:"d" name:"data-dir" help:"Directory for persisted credentials and settings (overrides storage.dir)"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, watch, err := loadRunConfig(root.Config)
	if err != nil {
		return err
	}
	r.apply(cfg)

	level, closer := setupLogging(cfg.Logging, root.Verbose, os.Stderr)
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []daemon.Option{daemon.WithLogLevel(level)}
	if watch {
		opts = append(opts, daemon.WithConfigFile(root.Config))
	}
	d, err := daemon.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx, shutdownTimeout)
}

// apply folds command-line overrides into cfg.
func (r *RunCmd) apply(cfg *config.Config) {
	if r.Simulate {
		cfg.Radio.Backend = config.RadioSimulated
	}
	if r.DataDir != "" {
		cfg.Storage.Dir = r.DataDir
		if cfg.Storage.Backend == config.StorageSQLite {
			cfg.Storage.DSN = filepath.Join(r.DataDir, "linkkeeper.db")
		}
	}
}

// loadRunConfig loads path, or falls back to defaults when the file does not
// exist so a fresh node still comes up with its setup AP. watch reports
// whether the file should be watched for reloads.
func loadRunConfig(path string) (cfg *config.Config, watch bool, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		slog.Warn("Configuration file not found, using defaults", slog.String("path", path))
		return config.Default(), false, nil
	}
	cfg, err = config.Load(path)
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}
