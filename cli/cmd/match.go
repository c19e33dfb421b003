package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/cicore/cli/render"
	"github.com/pithecene-io/cicore/iox"
	"github.com/pithecene-io/cicore/log"
	"github.com/pithecene-io/cicore/matching"
	"github.com/pithecene-io/cicore/types"
)

// MatcherRow is one deduplicated runner shape in match output.
type MatcherRow struct {
	RunnerIDs   []int64           `json:"runner_ids" yaml:"runner_ids"`
	RunnerType  types.RunnerType  `json:"runner_type" yaml:"runner_type"`
	AccessLevel types.AccessLevel `json:"access_level" yaml:"access_level"`
	RunUntagged bool              `json:"run_untagged" yaml:"run_untagged"`
	Tags        types.TagSet      `json:"tags" yaml:"tags"`
	Eligible    bool              `json:"eligible" yaml:"eligible"`
}

// MatchCommand returns the match command.
func MatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "List the runners that may pick up a job",
		Description: "Runners come from --runners (a JSON or YAML list of runner records)\n" +
			"or from the `runners` section of cicore.yaml. Runners with identical\n" +
			"matching attributes are grouped into one row.",
		Flags: append(EngineFlags(),
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Job tag (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "protected",
				Usage: "Job runs on a protected ref",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Job belongs to a public project",
			},
			&cli.BoolFlag{
				Name:  "minutes-exhausted",
				Usage: "Namespace has used up its compute minutes",
			},
			&cli.StringFlag{
				Name:  "runners",
				Usage: "Read runner records from `PATH` (- for stdin)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Also list runner shapes that do not match",
			},
		),
		Action: matchAction,
	}
}

func matchAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c, cfg, log.Scope{Component: "match"})
	if err != nil {
		return err
	}

	records := cfg.Runners
	if c.IsSet("runners") {
		records, err = readRunnerRecords(c)
		if err != nil {
			return cli.Exit(err.Error(), exitError)
		}
	}

	matchers, err := matching.Build(matching.FromRelation(records))
	if err != nil {
		return cli.Exit(fmt.Sprintf("build matchers: %v", err), exitConfig)
	}
	logger.Debug("matchers built", map[string]any{"runners": len(records), "matchers": len(matchers)})

	job := types.JobRequirement{
		Tags:             types.NewTagSet(c.StringSlice("tag")...),
		Protected:        c.Bool("protected"),
		PublicProject:    c.Bool("public"),
		MinutesExhausted: c.Bool("minutes-exhausted"),
	}

	rows := make([]MatcherRow, 0, len(matchers))
	for _, m := range matchers {
		ok := m.Matches(job)
		if !ok && !c.Bool("all") {
			continue
		}
		rows = append(rows, MatcherRow{
			RunnerIDs:   m.RunnerIDs,
			RunnerType:  m.Capability.RunnerType,
			AccessLevel: m.Capability.AccessLevel,
			RunUntagged: m.Capability.RunUntagged,
			Tags:        m.Capability.Tags,
			Eligible:    ok,
		})
	}

	return r.Render(rows)
}

func readRunnerRecords(c *cli.Context) ([]types.RunnerRecord, error) {
	data, err := iox.ReadInput(c.String("runners"), inReader(c))
	if err != nil {
		return nil, err
	}
	var records []types.RunnerRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("invalid runner records: %w", err)
	}
	return records, nil
}
