package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/linkkeeper/cmd/linkkeeper/commands"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("linkkeeper"),
		kong.Description("Keeps an embedded node reachable: local setup access point, upstream attach and fallback."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default()}
	if err := parser.Run(global, &cli); err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Report(os.Stderr, err))
	}
}
