package status

import (
	"fmt"

	"github.com/pithecene-io/cicore/types"
)

// Stage is a named group of job entries within a pipeline.
type Stage struct {
	Name    string  `json:"name" yaml:"name" msgpack:"name"`
	Entries []Entry `json:"entries" yaml:"entries" msgpack:"entries"`
}

// StageStatus is the aggregate status of one stage.
type StageStatus struct {
	Name   string       `json:"name" yaml:"name" msgpack:"name"`
	Status types.Status `json:"status" yaml:"status" msgpack:"status"`
}

// PipelineResult holds per-stage statuses and the pipeline status.
type PipelineResult struct {
	Stages []StageStatus `json:"stages" yaml:"stages" msgpack:"stages"`
	Status types.Status  `json:"status" yaml:"status" msgpack:"status"`
}

// AggregateStages computes each stage's status, then the pipeline status
// from the stage statuses. Stages without jobs are skipped entirely.
// Stage statuses enter the pipeline aggregate as blocking entries: a stage
// that resolved to warning already absorbed its allow-failure jobs.
//
// Returns ErrEmptyStatusSet when no stage has any job.
func AggregateStages(stages []Stage) (PipelineResult, error) {
	var (
		result   PipelineResult
		pipeline Composite
	)

	for _, st := range stages {
		if len(st.Entries) == 0 {
			continue
		}
		s, err := Aggregate(st.Entries)
		if err != nil {
			return PipelineResult{}, fmt.Errorf("stage %q: %w", st.Name, err)
		}
		result.Stages = append(result.Stages, StageStatus{Name: st.Name, Status: s})
		if err := pipeline.Add(Entry{Status: s}); err != nil {
			return PipelineResult{}, err
		}
	}

	s, err := pipeline.Result()
	if err != nil {
		return PipelineResult{}, err
	}
	result.Status = s
	return result, nil
}
