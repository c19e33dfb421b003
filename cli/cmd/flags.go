// Package cmd provides CLI commands for the cicore binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at a cicore.yaml file. Without it, ./cicore.yaml is
	// read when present.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to cicore.yaml",
		EnvVars: []string{"CICORE_CONFIG"},
	}

	// LogLevelFlag overrides log.level from the config file.
	LogLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error",
	}
)

// OutputFlags returns the flags shared by every command that renders
// a result.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// EngineFlags returns OutputFlags plus the config and logging flags.
func EngineFlags() []cli.Flag {
	return append(OutputFlags(), ConfigFlag, LogLevelFlag)
}
