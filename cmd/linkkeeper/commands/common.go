// Package commands implements the linkkeeper CLI commands.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"gopkg.in/natefinch/lumberjack.v2"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command with its global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"/etc/linkkeeper/linkkeeper.yaml" env:"LINKKEEPER_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run        RunCmd     `cmd:"" help:"Run the connectivity supervisor"`
	Init       InitCmd    `cmd:"" help:"Write an example configuration file"`
	Status     StatusCmd  `cmd:"" help:"Show the status of a running node"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print build information"`
}

// AfterApply installs a stderr logger once flags are parsed. Commands that
// load a configuration replace it through setupLogging.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// setupLogging builds the daemon logger from cfg. The returned LevelVar lets
// configuration reloads change the level. --verbose pins debug.
func setupLogging(cfg config.LoggingConfig, verbose bool, stderr io.Writer) (*slog.LevelVar, io.Closer) {
	level := new(slog.LevelVar)
	level.Set(cfg.Level.SlogLevel())
	if verbose {
		level.Set(slog.LevelDebug)
	}

	var (
		out    = stderr
		closer io.Closer
	)
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out, closer = io.MultiWriter(stderr, rotated), rotated
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
	return level, closer
}
