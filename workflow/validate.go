package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sluiceworks/sluice/errors"
)

var jobIDPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Validate performs the structural checks the schema cannot express:
// trigger presence, job ID shape, step shape (exactly one of uses/run),
// and needs references. All problems are collected into a single error
// rather than failing on the first. Validate never mutates the workflow.
//
// Cycle detection on the needs graph is the planner's job; Validate only
// checks that references resolve.
func (w *Workflow) Validate() error {
	var problems []string

	if !w.On.HasTriggers() {
		problems = append(problems, "no triggers declared: at least one of 'push', 'pull_request' is required")
	}
	if p := w.On.Push; p != nil && len(p.Branches) > 0 && len(p.BranchesIgnore) > 0 {
		problems = append(problems, "push trigger: 'branches' and 'branches-ignore' cannot both be set")
	}
	if pr := w.On.PullRequest; pr != nil && len(pr.Branches) > 0 && len(pr.BranchesIgnore) > 0 {
		problems = append(problems, "pull_request trigger: 'branches' and 'branches-ignore' cannot both be set")
	}
	if len(w.Jobs) == 0 {
		problems = append(problems, "no jobs declared")
	}

	for _, id := range w.JobIDs() {
		job := w.Jobs[id]

		if !jobIDPattern.MatchString(id) {
			problems = append(problems, fmt.Sprintf("job %q: invalid ID, want [a-zA-Z_][a-zA-Z0-9_-]*", id))
		}
		if job == nil {
			problems = append(problems, fmt.Sprintf("job %q: empty definition", id))
			continue
		}

		if len(job.Steps) == 0 {
			problems = append(problems, fmt.Sprintf("job %q: no steps", id))
		}
		for i, step := range job.Steps {
			problems = append(problems, validateStep(id, i, step)...)
		}

		for _, need := range job.Needs {
			if need == id {
				problems = append(problems, fmt.Sprintf("job %q: needs itself", id))
				continue
			}
			if _, ok := w.Jobs[need]; !ok {
				problems = append(problems, fmt.Sprintf("job %q: needs unknown job %q", id, need))
			}
		}

		if job.TimeoutMinutes < 0 {
			problems = append(problems, fmt.Sprintf("job %q: negative timeout-minutes", id))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.CodeWorkflowInvalid,
			fmt.Sprintf("workflow validation failed: %s", strings.Join(problems, "; ")))
	}
	return nil
}

func validateStep(jobID string, index int, step *Step) []string {
	at := fmt.Sprintf("job %q step %d", jobID, index+1)

	if step == nil {
		return []string{at + ": empty definition"}
	}

	var problems []string
	switch {
	case step.Uses != "" && step.Run != "":
		problems = append(problems, at+": both 'uses' and 'run' set")
	case step.Uses == "" && step.Run == "":
		problems = append(problems, at+": one of 'uses' or 'run' is required")
	}

	if step.Run != "" && len(step.With) > 0 {
		problems = append(problems, at+": 'with' is only valid on 'uses' steps")
	}
	return problems
}
