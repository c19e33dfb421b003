package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cicore/admission"
	"github.com/pithecene-io/cicore/ipc"
	"github.com/pithecene-io/cicore/log"
	"github.com/pithecene-io/cicore/metrics"
)

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Answer framed msgpack requests on stdin/stdout",
		Description: "Each frame is a 4-byte big-endian length followed by a msgpack map\n" +
			"with a `type` of aggregate, match or quota and an `id` echoed on the\n" +
			"response. The loop ends at EOF, SIGINT or SIGTERM.",
		Flags:  []cli.Flag{ConfigFlag, LogLevelFlag},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg, log.Scope{Component: "ipc"})
	if err != nil {
		return err
	}

	publisher, err := cfg.BuildAdapter()
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	pol, err := admission.New(cfg.Admission.Policy, admission.Options{Logger: logger, Publisher: publisher})
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	defer func() {
		if err := pol.Close(); err != nil {
			logger.Warn("failed to close publisher", map[string]any{"error": err.Error()})
		}
	}()

	m := metrics.NewCollector(pol.Name(), "ipc")
	pipelines, jobs, size := cfg.LimitValues()
	srv := ipc.NewServer(ipc.ServerOptions{
		Runners: cfg.Runners,
		Limits:  ipc.Limits{ActivePipelines: pipelines, ActiveJobs: jobs, PipelineSize: size},
		Policy:  pol,
		Logger:  logger,
		Metrics: m,
	})

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serving", map[string]any{"policy": pol.Name(), "runners": len(cfg.Runners)})
	err = srv.Serve(ctx, inReader(c), outWriter(c))
	logger.Info("stopped", map[string]any{"metrics": m.Snapshot()})

	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit(err.Error(), exitError)
	}
	return nil
}
