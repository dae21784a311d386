package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sluiceworks/sluice/artifact"
	"github.com/sluiceworks/sluice/config"
	"github.com/sluiceworks/sluice/envseal"
	"github.com/sluiceworks/sluice/event"
	billyfs "github.com/sluiceworks/sluice/fs/billy"
	"github.com/sluiceworks/sluice/runner"
	"github.com/sluiceworks/sluice/secrets"
	"github.com/sluiceworks/sluice/secrets/providers/envfile"
	"github.com/sluiceworks/sluice/workflow"
)

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "workflow definition file")
	eventKind := fs.String("event", "", "event kind: push or pull_request")
	ref := fs.String("ref", "", "pushed branch, tag, or full ref (push events)")
	message := fs.String("message", "", "head commit message (push events)")
	base := fs.String("base", "", "target branch (pull request events)")
	head := fs.String("head", "", "source branch (pull request events)")
	repo := fs.String("repo", ".", "repository URL or local path for checkout steps")
	configPath := fs.String("config", "", "runner config file")
	reportPath := fs.String("report", "", "write a JSON run report to this file")
	dryRun := fs.Bool("dry-run", false, "print the plan without running jobs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *workflowPath == "" {
		return usagef("-workflow is required")
	}

	ev, err := buildEvent(*eventKind, *ref, *message, *base, *head, *repo)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hostFS := billyfs.NewOSFS("/")

	wf, err := loadWorkflow(hostFS, *workflowPath)
	if err != nil {
		return err
	}

	match, err := event.Evaluate(wf.On, ev)
	if err != nil {
		return err
	}
	if !match.Triggered {
		fmt.Printf("workflow %q not triggered: %s\n", wf.Name, match.Reason)
		return nil
	}
	fmt.Printf("workflow %q triggered: %s\n", wf.Name, match.Reason)

	if *dryRun {
		return printPlan(wf, false)
	}

	cfg, err := config.Resolve(hostFS, hostPath(*configPath))
	if err != nil {
		return usageError{err: err}
	}

	runnerCfg, err := buildRunnerConfig(ctx, hostFS, cfg, logger)
	if err != nil {
		return usageError{err: err}
	}

	r, err := runner.New(runnerCfg)
	if err != nil {
		return usageError{err: err}
	}

	run, err := r.Run(ctx, wf, ev)
	if err != nil {
		return err
	}

	printRun(run)

	if *reportPath != "" {
		raw, err := runner.MarshalReport(run)
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		if err := os.WriteFile(*reportPath, raw, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if !run.Success() {
		return fmt.Errorf("run concluded %s", run.Conclusion)
	}
	return nil
}

// buildEvent constructs the repository event named by the run flags.
func buildEvent(kind, ref, message, base, head, repo string) (event.Event, error) {
	repoURL := repo
	if abs, err := filepath.Abs(repo); err == nil && !isRemote(repo) {
		repoURL = abs
	}
	repository := event.Repository{URL: repoURL}

	switch kind {
	case "push":
		if ref == "" {
			return nil, usagef("push events require -ref")
		}
		return event.PushEvent{
			Ref:        ref,
			HeadCommit: event.Commit{Message: message},
			Repo:       repository,
		}, nil

	case "pull_request":
		if base == "" {
			return nil, usagef("pull request events require -base")
		}
		return event.PullRequestEvent{
			BaseRef: base,
			HeadRef: head,
			Repo:    repository,
		}, nil

	case "":
		return nil, usagef("-event is required (push or pull_request)")

	default:
		return nil, usagef("unknown event kind %q (push or pull_request)", kind)
	}
}

// buildRunnerConfig assembles the runner's dependencies from the resolved
// configuration: artifact store backend and the sealed env file secrets.
func buildRunnerConfig(ctx context.Context, hostFS *billyfs.FS, cfg config.Config, logger *slog.Logger) (runner.Config, error) {
	runnerCfg := runner.Config{
		DataDir:     hostPath(cfg.DataDir),
		MaxParallel: cfg.MaxParallel,
		Shell:       cfg.Shell,
		Logger:      logger,
	}

	switch cfg.Store.Backend {
	case config.StoreLocal:
		store, err := artifact.NewLocalStore(billyfs.NewOSFS(hostPath(cfg.Store.Dir)), ".")
		if err != nil {
			return runner.Config{}, fmt.Errorf("opening artifact store: %w", err)
		}
		runnerCfg.Store = store

	case config.StoreMinio:
		minioCfg, err := artifact.MinioConfigFromEnv()
		if err != nil {
			return runner.Config{}, err
		}
		store, err := artifact.NewMinioStore(ctx, minioCfg)
		if err != nil {
			return runner.Config{}, fmt.Errorf("opening artifact store: %w", err)
		}
		runnerCfg.Store = store
	}

	if cfg.EnvFile != "" {
		key, err := envseal.LoadKey(hostFS, hostPath(cfg.KeyFile))
		if err != nil {
			return runner.Config{}, fmt.Errorf("loading key file: %w", err)
		}

		provider, err := envfile.New(hostFS, hostPath(cfg.EnvFile), key)
		if err != nil {
			return runner.Config{}, fmt.Errorf("opening sealed env file: %w", err)
		}

		manager := secrets.NewManager(&secrets.Config{DefaultProvider: provider.Name()})
		if err := manager.RegisterProvider(provider.Name(), provider); err != nil {
			return runner.Config{}, err
		}

		refs := make([]secrets.SecretRef, 0, len(provider.Keys()))
		for _, k := range provider.Keys() {
			refs = append(refs, secrets.SecretRef{Path: k})
		}
		runnerCfg.Secrets = manager
		runnerCfg.SecretRefs = refs
	}

	return runnerCfg, nil
}

// loadWorkflow reads and fully validates a definition.
func loadWorkflow(hostFS *billyfs.FS, path string) (*workflow.Workflow, error) {
	wf, err := workflow.Load(hostFS, hostPath(path))
	if err != nil {
		return nil, err
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return wf, nil
}

// printRun writes a human summary of the run to stdout.
func printRun(run *runner.Run) {
	fmt.Printf("run %s: %s\n", run.ID, run.Conclusion)
	if run.Commit != nil {
		fmt.Printf("  commit %s", shortSHA(run.Commit.SHA))
		if run.Commit.Type != "" {
			fmt.Printf(" (%s)", run.Commit.Type)
		}
		fmt.Println()
	}
	for _, job := range run.Jobs {
		fmt.Printf("  job %-20s %s\n", job.JobID, job.Conclusion)
		for _, step := range job.Steps {
			fmt.Printf("    step %-20s %s\n", step.Name, step.Conclusion)
		}
		for _, key := range job.Artifacts {
			fmt.Printf("    artifact %s\n", key)
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

// hostPath makes a host filesystem path absolute so it resolves inside
// the root-anchored filesystem abstraction. Empty paths pass through.
func hostPath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// isRemote reports whether a repository source is a URL rather than a
// local path.
func isRemote(repo string) bool {
	for _, prefix := range []string{"http://", "https://", "ssh://", "git://", "git@"} {
		if len(repo) >= len(prefix) && repo[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
