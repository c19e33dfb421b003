package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cicore/admission"
	"github.com/pithecene-io/cicore/cli/render"
	"github.com/pithecene-io/cicore/ipc"
	"github.com/pithecene-io/cicore/log"
	"github.com/pithecene-io/cicore/metrics"
	"github.com/pithecene-io/cicore/quota"
)

// QuotaResponse is the result of the quota command.
type QuotaResponse struct {
	Policy   string          `json:"policy" yaml:"policy"`
	Admitted bool            `json:"admitted" yaml:"admitted"`
	Reason   string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Verdicts []quota.Verdict `json:"verdicts" yaml:"verdicts"`
}

// QuotaCommand returns the quota command.
func QuotaCommand() *cli.Command {
	return &cli.Command{
		Name:  "quota",
		Usage: "Check whether a pipeline may be created under the namespace limits",
		Description: "Limits come from the `limits` section of cicore.yaml unless overridden.\n" +
			"Exits 3 when the pipeline is rejected.",
		Flags: append(EngineFlags(),
			&cli.Int64Flag{Name: "active-pipelines", Usage: "Current number of alive pipelines in the namespace"},
			&cli.Int64Flag{Name: "active-jobs", Usage: "Jobs created in active pipelines in the past 24 hours"},
			&cli.Int64Flag{Name: "pipeline-size", Usage: "Number of jobs in the pipeline being created"},
			&cli.Int64Flag{Name: "limit-active-pipelines", Usage: "Override ci_active_pipelines"},
			&cli.Int64Flag{Name: "limit-active-jobs", Usage: "Override ci_active_jobs"},
			&cli.Int64Flag{Name: "limit-pipeline-size", Usage: "Override ci_pipeline_size"},
			&cli.StringFlag{Name: "policy", Usage: "Admission policy: strict, advisory, noop"},
			&cli.Int64Flag{Name: "namespace-id", Usage: "Namespace ID for logs and rejection events"},
			&cli.Int64Flag{Name: "project-id", Usage: "Project ID for logs and rejection events"},
			&cli.StringFlag{Name: "ref", Usage: "Git ref the pipeline runs for"},
		),
		Action: quotaAction,
	}
}

func quotaAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg, log.Scope{
		Component:   "quota",
		NamespaceID: c.Int64("namespace-id"),
		ProjectID:   c.Int64("project-id"),
	})
	if err != nil {
		return err
	}

	policyName := cfg.Admission.Policy
	if c.IsSet("policy") {
		policyName = c.String("policy")
	}

	publisher, err := cfg.BuildAdapter()
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	pol, err := admission.New(policyName, admission.Options{Logger: logger, Publisher: publisher})
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	defer func() {
		if err := pol.Close(); err != nil {
			logger.Warn("failed to close publisher", map[string]any{"error": err.Error()})
		}
	}()

	pipelines, jobs, size := cfg.LimitValues()
	limits := ipc.Limits{
		ActivePipelines: overrideInt64(c, "limit-active-pipelines", pipelines),
		ActiveJobs:      overrideInt64(c, "limit-active-jobs", jobs),
		PipelineSize:    overrideInt64(c, "limit-pipeline-size", size),
	}
	limiters := ipc.Limiters(limits, ipc.Counts{
		ActivePipelines: c.Int64("active-pipelines"),
		ActiveJobs:      c.Int64("active-jobs"),
		PipelineSize:    c.Int64("pipeline-size"),
	})

	verdicts := make([]quota.Verdict, 0, len(limiters))
	for _, l := range limiters {
		v, err := l.Evaluate(c.Context)
		if err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		verdicts = append(verdicts, v)
	}

	d, err := pol.Admit(c.Context, admission.Request{
		NamespaceID: c.Int64("namespace-id"),
		ProjectID:   c.Int64("project-id"),
		Ref:         c.String("ref"),
		Limiters:    limiters,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	m := metrics.NewCollector(pol.Name(), "cli")
	st := pol.Stats()
	m.AbsorbAdmissionStats(st.Checks, st.Admitted, st.Rejected, st.KindCounts())
	logger.Debug("admission stats", map[string]any{"metrics": m.Snapshot()})

	if err := r.Render(QuotaResponse{
		Policy:   pol.Name(),
		Admitted: d.Admitted,
		Reason:   d.Reason(),
		Verdicts: verdicts,
	}); err != nil {
		return err
	}

	if !d.Admitted {
		return cli.Exit("", exitRejected)
	}
	return nil
}

func overrideInt64(c *cli.Context, name string, fallback int64) int64 {
	if c.IsSet(name) {
		return c.Int64(name)
	}
	return fallback
}
