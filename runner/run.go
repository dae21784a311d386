package runner

import (
	"time"
)

// Conclusion classifies how a run, job, or step ended after
// continue-on-error neutralization is applied.
type Conclusion string

const (
	// ConclusionSuccess means the work completed with a zero exit code,
	// or its failure was neutralized by continue-on-error.
	ConclusionSuccess Conclusion = "success"

	// ConclusionFailure means the work failed and the failure counts.
	ConclusionFailure Conclusion = "failure"

	// ConclusionSkipped means the work never started because a needed
	// job did not succeed.
	ConclusionSkipped Conclusion = "skipped"

	// ConclusionCancelled means the run was cancelled before the work
	// completed.
	ConclusionCancelled Conclusion = "cancelled"
)

// Run is the record of one workflow execution.
type Run struct {
	// ID is the run's UUID.
	ID string

	// WorkflowName is the definition's display name.
	WorkflowName string

	// Event is a one-line summary of the event that triggered the run.
	Event string

	// Commit describes the checked-out head, when a checkout step ran.
	Commit *Commit

	// Jobs holds per-job results in plan order.
	Jobs []JobResult

	// Conclusion is the run's overall outcome: failure when any job
	// without continue-on-error failed, cancelled when the run was
	// interrupted, success otherwise.
	Conclusion Conclusion

	StartedAt   time.Time
	CompletedAt time.Time
}

// Commit is the head commit a run checked out, with its
// conventional-commit classification when the message parses as one.
type Commit struct {
	SHA     string
	Message string

	// Type and Scope come from the conventional-commit header; both are
	// empty when the message is not a conventional commit.
	Type  string
	Scope string
}

// JobResult records one job's execution.
type JobResult struct {
	// JobID is the definition key.
	JobID string

	// Name is the job's display name.
	Name string

	// Outcome is the raw result before continue-on-error neutralization.
	Outcome Conclusion

	// Conclusion is the result after neutralization: a failed job with
	// continue-on-error concludes success and its dependents run.
	Conclusion Conclusion

	// Steps holds per-step results in definition order. Skipped jobs
	// have none.
	Steps []StepResult

	// Artifacts lists the store keys of artifacts collected after the
	// job succeeded.
	Artifacts []string

	StartedAt   time.Time
	CompletedAt time.Time
}

// StepResult records one step's execution.
type StepResult struct {
	// Name is the step's display name.
	Name string

	// Outcome is the raw result before continue-on-error neutralization.
	Outcome Conclusion

	// Conclusion is the result after neutralization.
	Conclusion Conclusion

	// ExitCode is the command's exit code; zero for built-in steps that
	// succeed, -1 when the step never produced one.
	ExitCode int

	// Output is the step's captured combined output with secret values
	// redacted.
	Output string

	// Error describes a failure in terms safe to report.
	Error string

	StartedAt   time.Time
	CompletedAt time.Time
}

// Success reports whether the run concluded successfully.
func (r *Run) Success() bool {
	return r.Conclusion == ConclusionSuccess
}

// Job returns the result for the given job ID.
func (r *Run) Job(id string) (*JobResult, bool) {
	for i := range r.Jobs {
		if r.Jobs[i].JobID == id {
			return &r.Jobs[i], true
		}
	}
	return nil, false
}
