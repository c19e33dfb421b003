package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cicore/types"
)

// NewApp assembles the cicore CLI. The caller sets ExitErrHandler.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "cicore",
		Usage:   "CI pipeline status, runner matching and quota checks",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Commands: []*cli.Command{
			StatusCommand(),
			MatchCommand(),
			QuotaCommand(),
			ServeCommand(),
			VersionCommand(commit),
		},
	}
}
