package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cicore/cli/config"
	"github.com/pithecene-io/cicore/log"
)

// Exit codes.
const (
	exitSuccess  = 0
	exitError    = 1
	exitConfig   = 2
	exitRejected = 3
)

// loadConfig reads --config, or ./cicore.yaml when it exists, and
// validates it. No config file yields an empty config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		if _, err := os.Stat(config.DefaultPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &config.Config{}, nil
			}
			return nil, cli.Exit(fmt.Sprintf("cannot stat %s: %v", config.DefaultPath, err), exitConfig)
		}
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid config %s: %v", path, err), exitConfig)
	}
	return cfg, nil
}

// newLogger builds a logger writing to the app's error writer.
// --log-level wins over log.level from the config.
func newLogger(c *cli.Context, cfg *config.Config, scope log.Scope) (*log.Logger, error) {
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger, err := log.NewLoggerWithLevel(scope, errWriter(c), level)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}
	return logger, nil
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}

func inReader(c *cli.Context) io.Reader {
	if c.App != nil && c.App.Reader != nil {
		return c.App.Reader
	}
	return os.Stdin
}

func outWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}
