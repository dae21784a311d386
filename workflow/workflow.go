// Package workflow models CI workflow definitions: the YAML document
// that names triggers and jobs, its decoding, and its validation.
//
// Definitions are validated twice: the raw document against an embedded
// CUE schema (field names, types, closed structs), then the decoded form
// structurally (job IDs, step shape, needs references). Trigger
// evaluation and job orchestration live in the event and runner
// packages.
package workflow

import (
	"sort"
	"strings"
)

// DefaultRunsOn is the runner label jobs receive when the definition
// names none. Jobs always execute on the local host; the label is
// recorded for reporting.
const DefaultRunsOn = "local"

// Workflow is a complete workflow definition.
type Workflow struct {
	// Name is the display name; defaults to the file name at load time.
	Name string `yaml:"name,omitempty"`
	// On declares the events that trigger this workflow.
	On Triggers `yaml:"on"`
	// Env is exported into every job's environment.
	Env map[string]string `yaml:"env,omitempty"`
	// Jobs maps job IDs to definitions.
	Jobs map[string]*Job `yaml:"jobs"`
}

// Triggers declares the events a workflow responds to.
type Triggers struct {
	Push        *PushTrigger        `yaml:"push,omitempty"`
	PullRequest *PullRequestTrigger `yaml:"pull_request,omitempty"`
}

// PushTrigger filters push events by branch or tag.
// Empty filter lists match every push.
type PushTrigger struct {
	Branches       StringList `yaml:"branches,omitempty"`
	BranchesIgnore StringList `yaml:"branches-ignore,omitempty"`
	Tags           StringList `yaml:"tags,omitempty"`
}

// PullRequestTrigger filters pull request events by target branch.
// Empty filter lists match every pull request.
type PullRequestTrigger struct {
	Branches       StringList `yaml:"branches,omitempty"`
	BranchesIgnore StringList `yaml:"branches-ignore,omitempty"`
}

// Job is one unit of parallel work: a sequence of steps sharing a
// workspace.
type Job struct {
	// Name is the display name; defaults to the job ID.
	Name string `yaml:"name,omitempty"`
	// RunsOn is the runner label. Recorded, not scheduled on: every job
	// runs on the local host.
	RunsOn string `yaml:"runs-on,omitempty"`
	// Needs lists job IDs that must succeed before this job starts.
	Needs StringList `yaml:"needs,omitempty"`
	// Env is exported into every step of this job.
	Env map[string]string `yaml:"env,omitempty"`
	// ContinueOnError keeps the run's conclusion unaffected when this
	// job fails.
	ContinueOnError bool `yaml:"continue-on-error,omitempty"`
	// TimeoutMinutes bounds the job's wall-clock time. Zero means no
	// job-level timeout.
	TimeoutMinutes int `yaml:"timeout-minutes,omitempty"`
	// Steps run sequentially in the job's workspace.
	Steps []*Step `yaml:"steps"`
	// Artifacts lists workspace globs collected after the job succeeds.
	Artifacts StringList `yaml:"artifacts,omitempty"`
}

// Step is a single action within a job: either a built-in (`uses`) or a
// shell script (`run`), never both.
type Step struct {
	// Name is the display name; defaults to the uses target or the
	// run script.
	Name string `yaml:"name,omitempty"`
	// Uses names a built-in step, e.g. "checkout" or "setup-python".
	Uses string `yaml:"uses,omitempty"`
	// Run is a shell script executed in the job workspace.
	Run string `yaml:"run,omitempty"`
	// With passes parameters to a built-in step.
	With map[string]string `yaml:"with,omitempty"`
	// Env is exported for this step only.
	Env map[string]string `yaml:"env,omitempty"`
	// WorkingDirectory overrides the step's working directory, relative
	// to the job workspace.
	WorkingDirectory string `yaml:"working-directory,omitempty"`
	// ContinueOnError records the step's failure without failing the job.
	ContinueOnError bool `yaml:"continue-on-error,omitempty"`
	// Shell overrides the shell for run steps.
	Shell string `yaml:"shell,omitempty"`
}

// JobIDs returns the workflow's job IDs in lexicographic order.
// YAML maps carry no order, so a stable order is imposed here.
func (w *Workflow) JobIDs() []string {
	ids := make([]string, 0, len(w.Jobs))
	for id := range w.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Job returns the job with the given ID.
func (w *Workflow) Job(id string) (*Job, bool) {
	job, ok := w.Jobs[id]
	return job, ok
}

// HasTriggers reports whether the workflow declares at least one
// trigger.
func (t Triggers) HasTriggers() bool {
	return t.Push != nil || t.PullRequest != nil
}

// DisplayName returns the step's name, falling back to the uses target
// or the first line of the run script.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Uses != "" {
		return s.Uses
	}
	line := s.Run
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// applyDefaults fills derived fields after decoding.
func (w *Workflow) applyDefaults() {
	for id, job := range w.Jobs {
		if job == nil {
			continue
		}
		if job.Name == "" {
			job.Name = id
		}
		if job.RunsOn == "" {
			job.RunsOn = DefaultRunsOn
		}
	}
}
