// Package version carries build metadata, set at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/linkkeeper/internal/version.Version=v0.3.0"
package version

import "fmt"

var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return fmt.Sprintf("linkkeeper %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
