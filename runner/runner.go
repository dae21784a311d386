package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sluiceworks/sluice/artifact"
	"github.com/sluiceworks/sluice/checkout"
	sluiceerrors "github.com/sluiceworks/sluice/errors"
	"github.com/sluiceworks/sluice/event"
	"github.com/sluiceworks/sluice/executor"
	"github.com/sluiceworks/sluice/fs"
	billyfs "github.com/sluiceworks/sluice/fs/billy"
	"github.com/sluiceworks/sluice/secrets"
	"github.com/sluiceworks/sluice/workflow"
)

// DefaultMaxParallel bounds how many jobs of one stage run concurrently
// when the configuration leaves it unset.
const DefaultMaxParallel = 4

// Config configures a Runner.
type Config struct {
	// DataDir is the directory run workspaces live beneath. Required
	// unless FS is set.
	DataDir string

	// FS overrides the filesystem workspaces are created in. Defaults to
	// an OS filesystem rooted at DataDir. Run steps execute through the
	// host shell, so a non-OS filesystem only suits workflows whose jobs
	// are entirely built-in steps, as some tests are.
	FS fs.Filesystem

	// MaxParallel bounds concurrent jobs within a stage.
	// Defaults to DefaultMaxParallel.
	MaxParallel int

	// Shell is the shell for run steps that name none.
	// Defaults to executor.DefaultShell.
	Shell string

	// Env is injected into every job's environment, below the
	// definition's env blocks.
	Env map[string]string

	// Secrets resolves SecretRefs when non-nil.
	Secrets *secrets.Manager

	// SecretRefs names the secrets resolved at run start and injected
	// into every job's environment under the ref path. Every resolved
	// value is registered with the output redactor.
	SecretRefs []secrets.SecretRef

	// Store receives job artifacts when non-nil.
	Store artifact.Store

	// Logger receives run progress events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Runner executes workflow runs on the local host.
type Runner struct {
	dataDir     string
	fsys        fs.Filesystem
	maxParallel int
	shell       string
	env         map[string]string
	secrets     *secrets.Manager
	secretRefs  []secrets.SecretRef
	store       artifact.Store
	logger      *slog.Logger
}

// New creates a Runner from the configuration.
func New(cfg Config) (*Runner, error) {
	fsys := cfg.FS
	if fsys == nil {
		if cfg.DataDir == "" {
			return nil, sluiceerrors.New(sluiceerrors.CodeInvalidConfig,
				"either DataDir or FS is required")
		}
		fsys = billyfs.NewOSFS(cfg.DataDir)
	}

	maxParallel := cfg.MaxParallel
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}

	shell := cfg.Shell
	if shell == "" {
		shell = executor.DefaultShell
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		dataDir:     cfg.DataDir,
		fsys:        fsys,
		maxParallel: maxParallel,
		shell:       shell,
		env:         cfg.Env,
		secrets:     cfg.Secrets,
		secretRefs:  cfg.SecretRefs,
		store:       cfg.Store,
		logger:      logger,
	}, nil
}

// Run executes a workflow for the given event and returns the run record.
// The returned error covers runner failures (invalid definition, secret
// resolution, workspace setup); job and step failures are reported through
// the run's conclusions, not the error.
func (r *Runner) Run(ctx context.Context, wf *workflow.Workflow, ev event.Event) (*Run, error) {
	if err := wf.Validate(); err != nil {
		return nil, sluiceerrors.Wrap(err, sluiceerrors.CodeWorkflowInvalid, "invalid workflow")
	}

	plan, err := NewPlan(wf)
	if err != nil {
		return nil, err
	}

	secretEnv, redactor, err := r.resolveSecrets(ctx)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:           uuid.NewString(),
		WorkflowName: wf.Name,
		Event:        ev.Describe(),
		StartedAt:    time.Now().UTC(),
	}

	logger := r.logger.With("run_id", run.ID, "workflow", wf.Name)
	logger.Info("run started", "event", run.Event, "jobs", plan.JobCount())

	exec := &runExecution{
		runner:    r,
		run:       run,
		workflow:  wf,
		event:     ev,
		secretEnv: secretEnv,
		redactor:  redactor,
		logger:    logger,
		results:   make(map[string]*JobResult, len(wf.Jobs)),
	}

	for _, stage := range plan.Stages {
		exec.runStage(ctx, stage)
	}

	for _, stage := range plan.Stages {
		for _, id := range stage {
			run.Jobs = append(run.Jobs, *exec.results[id])
		}
	}
	run.Conclusion = concludeRun(ctx, run.Jobs)
	run.CompletedAt = time.Now().UTC()

	logger.Info("run finished", "conclusion", run.Conclusion,
		"duration", run.CompletedAt.Sub(run.StartedAt))
	return run, nil
}

// resolveSecrets resolves the configured refs into an env map and seeds
// the redactor with every resolved value.
func (r *Runner) resolveSecrets(ctx context.Context) (map[string]string, *secrets.Redactor, error) {
	redactor := secrets.NewRedactor()
	if len(r.secretRefs) == 0 {
		return nil, redactor, nil
	}
	if r.secrets == nil {
		return nil, nil, sluiceerrors.New(sluiceerrors.CodeInvalidConfig,
			"secret refs configured without a secrets manager")
	}

	env := make(map[string]string, len(r.secretRefs))
	for _, ref := range r.secretRefs {
		secret, err := r.secrets.Resolve(ctx, ref)
		if err != nil {
			return nil, nil, sluiceerrors.Wrap(err, sluiceerrors.CodeSecretNotFound,
				fmt.Sprintf("resolving secret %q", ref.Path))
		}
		value := secret.String()
		env[ref.Path] = value
		redactor.Add(value)
	}
	return env, redactor, nil
}

// runExecution carries the mutable state of one run.
type runExecution struct {
	runner    *Runner
	run       *Run
	workflow  *workflow.Workflow
	event     event.Event
	secretEnv map[string]string
	redactor  *secrets.Redactor
	logger    *slog.Logger

	// mu protects results and run.Commit across stage goroutines.
	mu      sync.Mutex
	results map[string]*JobResult
}

// runStage executes one wave of jobs concurrently, bounded by the
// runner's parallelism limit. Job failures are recorded, never returned:
// a failed job must not cancel its siblings.
func (e *runExecution) runStage(ctx context.Context, stage []string) {
	var eg errgroup.Group
	eg.SetLimit(e.runner.maxParallel)

	for _, id := range stage {
		id := id
		eg.Go(func() error {
			result := e.runJob(ctx, id)
			e.mu.Lock()
			e.results[id] = result
			e.mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
}

// runJob executes one job: skip checks, workspace setup, the step loop,
// artifact collection, and continue-on-error neutralization.
func (e *runExecution) runJob(ctx context.Context, id string) *JobResult {
	job := e.workflow.Jobs[id]
	result := &JobResult{JobID: id, Name: job.Name, StartedAt: time.Now().UTC()}
	logger := e.logger.With("job", id)

	finish := func(outcome Conclusion) *JobResult {
		result.Outcome = outcome
		result.Conclusion = outcome
		if outcome == ConclusionFailure && job.ContinueOnError {
			result.Conclusion = ConclusionSuccess
		}
		result.CompletedAt = time.Now().UTC()
		logger.Info("job finished", "outcome", result.Outcome, "conclusion", result.Conclusion)
		return result
	}

	if ctx.Err() != nil {
		return finish(ConclusionCancelled)
	}

	if unmet := e.unmetNeeds(job); len(unmet) > 0 {
		logger.Info("job skipped", "unmet", unmet)
		return finish(ConclusionSkipped)
	}

	workspace := path.Join("runs", e.run.ID, id, "workspace")
	if err := e.runner.fsys.MkdirAll(workspace, 0o755); err != nil {
		result.Steps = append(result.Steps, StepResult{
			Name:       "workspace",
			Outcome:    ConclusionFailure,
			Conclusion: ConclusionFailure,
			ExitCode:   -1,
			Error:      fmt.Sprintf("creating workspace: %v", err),
		})
		return finish(ConclusionFailure)
	}

	jobCtx := ctx
	if job.TimeoutMinutes > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(job.TimeoutMinutes)*time.Minute)
		defer cancel()
	}

	logger.Info("job started", "steps", len(job.Steps))

	outcome := ConclusionSuccess
	for _, step := range job.Steps {
		stepResult := e.runStep(jobCtx, ctx, job, step, workspace, logger)
		result.Steps = append(result.Steps, stepResult)

		if stepResult.Conclusion == ConclusionCancelled {
			outcome = ConclusionCancelled
			break
		}
		if stepResult.Conclusion == ConclusionFailure {
			outcome = ConclusionFailure
			break
		}
	}

	if outcome == ConclusionSuccess && !e.collectArtifacts(ctx, job, id, workspace, result, logger) {
		outcome = ConclusionFailure
	}
	return finish(outcome)
}

// unmetNeeds returns the needed jobs that did not conclude successfully.
func (e *runExecution) unmetNeeds(job *workflow.Job) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var unmet []string
	for _, need := range job.Needs {
		dep, ok := e.results[need]
		if !ok || dep.Conclusion != ConclusionSuccess {
			unmet = append(unmet, need)
		}
	}
	return unmet
}

// runStep executes one step. jobCtx carries the job timeout; parentCtx
// distinguishes run cancellation from a job deadline.
func (e *runExecution) runStep(
	jobCtx, parentCtx context.Context,
	job *workflow.Job,
	step *workflow.Step,
	workspace string,
	logger *slog.Logger,
) StepResult {
	result := StepResult{Name: step.DisplayName(), ExitCode: -1, StartedAt: time.Now().UTC()}
	logger = logger.With("step", result.Name)
	logger.Info("step started")

	var err error
	if step.Uses != "" {
		err = e.runBuiltin(jobCtx, step, workspace, &result)
	} else {
		err = e.runScript(jobCtx, job, step, workspace, &result)
	}

	result.Outcome = ConclusionSuccess
	if err != nil {
		result.Outcome = ConclusionFailure
		result.Error = e.redactor.Redact(err.Error())
		switch {
		case parentCtx.Err() != nil:
			result.Outcome = ConclusionCancelled
			result.Error = "run cancelled"
		case jobCtx.Err() != nil:
			result.Error = fmt.Sprintf("job timed out after %dm", job.TimeoutMinutes)
		}
	}

	result.Conclusion = result.Outcome
	if result.Outcome == ConclusionFailure && step.ContinueOnError {
		result.Conclusion = ConclusionSuccess
	}
	result.CompletedAt = time.Now().UTC()
	logger.Info("step finished", "outcome", result.Outcome,
		"conclusion", result.Conclusion, "exit_code", result.ExitCode)
	return result
}

// runBuiltin dispatches a uses step to its built-in implementation.
func (e *runExecution) runBuiltin(ctx context.Context, step *workflow.Step, workspace string, result *StepResult) error {
	switch name := builtinName(step.Uses); name {
	case "checkout":
		return e.runCheckout(ctx, workspace, result)

	case "setup-python":
		info, err := checkout.SetupPython(ctx, step.With["python-version"])
		if err != nil {
			return err
		}
		result.ExitCode = 0
		result.Output = fmt.Sprintf("using %s %s at %s\n", info.Name, info.Version, info.Path)
		return nil

	case "setup":
		info, err := checkout.SetupTool(ctx, checkout.ToolRequest{
			Name:    step.With["tool"],
			Version: step.With["version"],
		})
		if err != nil {
			return err
		}
		result.ExitCode = 0
		result.Output = fmt.Sprintf("using %s %s at %s\n", info.Name, info.Version, info.Path)
		return nil

	default:
		return sluiceerrors.Newf(sluiceerrors.CodeExecutionFailed,
			"unknown built-in step %q", step.Uses)
	}
}

// runCheckout materializes the event's repository into the workspace and
// records the head commit on the run. The first checkout wins; later jobs
// check out the same commit.
func (e *runExecution) runCheckout(ctx context.Context, workspace string, result *StepResult) error {
	repo := e.event.Repository()
	if repo.URL == "" {
		return sluiceerrors.New(sluiceerrors.CodeCheckoutFailed,
			"event carries no repository URL")
	}

	co, err := checkout.Materialize(ctx,
		checkout.Source{URL: repo.URL, Ref: e.event.CheckoutRef()},
		&checkout.Options{FS: e.runner.fsys, Workdir: workspace},
	)
	if err != nil {
		return err
	}

	result.ExitCode = 0
	result.Output = fmt.Sprintf("checked out %s\n", co.Head.SHA)

	e.mu.Lock()
	if e.run.Commit == nil {
		commit := &Commit{SHA: co.Head.SHA, Message: co.Head.Message}
		if co.Head.Label != nil {
			commit.Type = co.Head.Label.Type
			commit.Scope = co.Head.Label.Scope
		}
		e.run.Commit = commit
	}
	e.mu.Unlock()
	return nil
}

// runScript executes a run step through the shell with the job's merged
// environment. Captured output is redacted before it is stored.
func (e *runExecution) runScript(
	ctx context.Context,
	job *workflow.Job,
	step *workflow.Step,
	workspace string,
	result *StepResult,
) error {
	shell := step.Shell
	if shell == "" {
		shell = e.runner.shell
	}

	workdir := filepath.Join(e.runner.dataDir, filepath.FromSlash(workspace))
	if step.WorkingDirectory != "" {
		workdir = filepath.Join(workdir, filepath.FromSlash(step.WorkingDirectory))
	}

	res, err := executor.NewShell(shell, step.Run).Execute(ctx,
		executor.WithWorkingDir(workdir),
		executor.WithEnv(e.stepEnv(job, step)),
		executor.WithInheritEnv(true),
		executor.WithCapture(true, true, true),
	)
	if res != nil {
		result.ExitCode = res.ExitCode
		result.Output = e.redactor.Redact(res.Combined)
	}
	if err != nil {
		return sluiceerrors.Wrap(err, sluiceerrors.CodeExecutionFailed,
			fmt.Sprintf("step %q", result.Name))
	}
	return nil
}

// stepEnv merges the environment layers for one step: runner env below
// the workflow's, the job's, and the step's blocks, with resolved secrets
// on top.
func (e *runExecution) stepEnv(job *workflow.Job, step *workflow.Step) map[string]string {
	env := make(map[string]string)
	for _, layer := range []map[string]string{
		e.runner.env, e.workflow.Env, job.Env, step.Env, e.secretEnv,
	} {
		for k, v := range layer {
			env[k] = v
		}
	}
	return env
}

// collectArtifacts stores the job's declared artifacts after a successful
// job. Collection failures fail the job: a definition that asks for
// artifacts expects them to exist.
func (e *runExecution) collectArtifacts(
	ctx context.Context,
	job *workflow.Job,
	id, workspace string,
	result *JobResult,
	logger *slog.Logger,
) bool {
	if e.runner.store == nil || len(job.Artifacts) == 0 {
		return true
	}

	collected, err := artifact.Collect(ctx, e.runner.fsys, workspace,
		job.Artifacts, e.runner.store, e.run.ID, id)
	if err != nil {
		logger.Error("artifact collection failed", "error", err)
		result.Steps = append(result.Steps, StepResult{
			Name:       "collect artifacts",
			Outcome:    ConclusionFailure,
			Conclusion: ConclusionFailure,
			ExitCode:   -1,
			Error:      e.redactor.Redact(err.Error()),
		})
		return false
	}

	for _, c := range collected {
		result.Artifacts = append(result.Artifacts, c.Info.Key)
	}
	if len(collected) > 0 {
		logger.Info("artifacts collected", "count", len(collected))
	}
	return true
}

// concludeRun folds job conclusions into the run's conclusion.
func concludeRun(ctx context.Context, jobs []JobResult) Conclusion {
	conclusion := ConclusionSuccess
	for _, job := range jobs {
		switch job.Conclusion {
		case ConclusionCancelled:
			return ConclusionCancelled
		case ConclusionFailure:
			conclusion = ConclusionFailure
		}
	}
	if ctx.Err() != nil {
		return ConclusionCancelled
	}
	return conclusion
}

// builtinName normalizes a uses target to its built-in name:
// "actions/checkout@v4" and "checkout" both name the checkout step.
func builtinName(uses string) string {
	name := uses
	if idx := strings.IndexByte(name, '@'); idx >= 0 {
		name = name[:idx]
	}
	name = strings.TrimPrefix(name, "actions/")
	return name
}
