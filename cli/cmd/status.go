package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/cicore/cli/render"
	"github.com/pithecene-io/cicore/iox"
	"github.com/pithecene-io/cicore/status"
	"github.com/pithecene-io/cicore/types"
)

// allowFailureSuffix marks a positional entry as allowed to fail.
const allowFailureSuffix = ":allow_failure"

// StatusResponse is the result of the status command.
type StatusResponse struct {
	Status types.Status         `json:"status" yaml:"status"`
	Stages []status.StageStatus `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// statusInput is the document accepted on --file or stdin: either a bare
// list of entries or a mapping with entries or stages.
type statusInput struct {
	Entries []status.Entry `yaml:"entries"`
	Stages  []status.Stage `yaml:"stages"`
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Aggregate job statuses into a composite status",
		ArgsUsage: "[STATUS[:allow_failure] ...]",
		Description: "Entries come from positional arguments, from --file, or from stdin.\n" +
			"Files are JSON or YAML: a list of {status, allow_failure} entries, or a\n" +
			"mapping with `entries` or `stages` (each stage has a name and entries).",
		Flags: append(OutputFlags(), &cli.StringFlag{
			Name:    "file",
			Aliases: []string{"i"},
			Usage:   "Read entries or stages from `PATH` (- for stdin)",
		}),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	in, err := readStatusInput(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if len(in.Stages) > 0 {
		res, err := status.AggregateStages(in.Stages)
		if err != nil {
			return cli.Exit(fmt.Sprintf("aggregate: %v", err), exitError)
		}
		if r.Format() == render.FormatTable {
			rows := append(res.Stages, status.StageStatus{Name: "(pipeline)", Status: res.Status})
			return r.Render(rows)
		}
		return r.Render(StatusResponse{Status: res.Status, Stages: res.Stages})
	}

	st, err := status.Aggregate(in.Entries)
	if err != nil {
		return cli.Exit(fmt.Sprintf("aggregate: %v", err), exitError)
	}
	return r.Render(StatusResponse{Status: st})
}

func readStatusInput(c *cli.Context) (statusInput, error) {
	if c.NArg() > 0 {
		entries, err := parseEntryArgs(c.Args().Slice())
		return statusInput{Entries: entries}, err
	}

	data, err := iox.ReadInput(c.String("file"), inReader(c))
	if err != nil {
		return statusInput{}, err
	}
	return parseStatusInput(data)
}

// parseEntryArgs turns "failed" or "failed:allow_failure" into entries.
func parseEntryArgs(args []string) ([]status.Entry, error) {
	entries := make([]status.Entry, 0, len(args))
	for _, arg := range args {
		name, allowFailure := strings.CutSuffix(arg, allowFailureSuffix)
		st, err := types.ParseStatus(name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, status.Entry{Status: st, AllowFailure: allowFailure})
	}
	return entries, nil
}

// parseStatusInput decodes JSON or YAML. JSON parses as YAML.
func parseStatusInput(data []byte) (statusInput, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return statusInput{}, fmt.Errorf("invalid input: %w", err)
	}
	if len(doc.Content) == 0 {
		return statusInput{}, nil
	}

	var in statusInput
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		if err := root.Decode(&in.Entries); err != nil {
			return statusInput{}, fmt.Errorf("invalid entries: %w", err)
		}
		return in, nil
	}
	if err := root.Decode(&in); err != nil {
		return statusInput{}, fmt.Errorf("invalid input: %w", err)
	}
	return in, nil
}
