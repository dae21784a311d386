// Package runner turns workflow definitions into runs: it plans the job
// dependency graph into parallel stages, executes jobs with the platform
// failure policy (continue-on-error at step and job level, transitive
// skipping, timeouts, cancellation), and produces JSON run reports.
package runner

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	sluiceerrors "github.com/sluiceworks/sluice/errors"
	"github.com/sluiceworks/sluice/workflow"
)

// Plan is the deterministic execution order for a workflow's jobs. Jobs
// inside a stage have no dependencies on each other and may run
// concurrently; stages run in order.
type Plan struct {
	// Workflow is the definition the plan was built from.
	Workflow *workflow.Workflow

	// Stages holds job IDs grouped into parallel waves, each wave sorted
	// lexicographically.
	Stages [][]string

	dag graph.Graph[string, string]
}

// NewPlan builds an execution plan from the workflow's needs graph.
// Unknown needs references and dependency cycles are reported as plan
// errors; everything else Validate covers is assumed to have been checked
// already.
func NewPlan(wf *workflow.Workflow) (*Plan, error) {
	if wf == nil || len(wf.Jobs) == 0 {
		return nil, sluiceerrors.New(sluiceerrors.CodeWorkflowInvalid, "workflow has no jobs")
	}

	dag := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	ids := wf.JobIDs()
	for _, id := range ids {
		if err := dag.AddVertex(id); err != nil {
			return nil, sluiceerrors.Wrap(err, sluiceerrors.CodeInternal,
				fmt.Sprintf("adding job %q to the plan", id))
		}
	}

	for _, id := range ids {
		for _, need := range wf.Jobs[id].Needs {
			if _, ok := wf.Jobs[need]; !ok {
				return nil, sluiceerrors.Newf(sluiceerrors.CodePlanUnknownJob,
					"job %q needs unknown job %q", id, need)
			}
			if err := dag.AddEdge(need, id); err != nil {
				if errors.Is(err, graph.ErrEdgeCreatesCycle) {
					return nil, sluiceerrors.Newf(sluiceerrors.CodePlanCycle,
						"job %q needs %q, which already depends on it", id, need)
				}
				return nil, sluiceerrors.Wrap(err, sluiceerrors.CodeInternal,
					fmt.Sprintf("adding dependency %q -> %q", need, id))
			}
		}
	}

	stages, err := buildStages(wf)
	if err != nil {
		return nil, err
	}

	return &Plan{Workflow: wf, Stages: stages, dag: dag}, nil
}

// JobCount returns the number of jobs in the plan.
func (p *Plan) JobCount() int {
	n := 0
	for _, stage := range p.Stages {
		n += len(stage)
	}
	return n
}

// DOT writes the needs graph in Graphviz DOT format.
func (p *Plan) DOT(w io.Writer) error {
	return draw.DOT(p.dag, w)
}

// buildStages groups jobs into waves by repeatedly taking every job whose
// remaining needs are satisfied. Ties inside a wave break
// lexicographically so plans are stable across runs.
func buildStages(wf *workflow.Workflow) ([][]string, error) {
	remaining := make(map[string]int, len(wf.Jobs))
	dependents := make(map[string][]string, len(wf.Jobs))
	for id, job := range wf.Jobs {
		remaining[id] = len(job.Needs)
		for _, need := range job.Needs {
			dependents[need] = append(dependents[need], id)
		}
	}

	var stages [][]string
	placed := 0
	for placed < len(wf.Jobs) {
		var wave []string
		for id, degree := range remaining {
			if degree == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			return nil, sluiceerrors.New(sluiceerrors.CodePlanCycle,
				"job dependency graph contains a cycle")
		}
		sort.Strings(wave)

		for _, id := range wave {
			delete(remaining, id)
			for _, dep := range dependents[id] {
				remaining[dep]--
			}
		}
		placed += len(wave)
		stages = append(stages, wave)
	}

	return stages, nil
}
