package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	billyfs "github.com/sluiceworks/sluice/fs/billy"
	"github.com/sluiceworks/sluice/runner"
	"github.com/sluiceworks/sluice/workflow"
)

func planCommand(args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "workflow definition file")
	dot := fs.Bool("dot", false, "emit the needs graph as Graphviz DOT")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *workflowPath == "" {
		return usagef("-workflow is required")
	}

	wf, err := loadWorkflow(billyfs.NewOSFS("/"), *workflowPath)
	if err != nil {
		return err
	}

	return printPlan(wf, *dot)
}

// printPlan writes the workflow's stages, or its needs graph as DOT, to
// stdout.
func printPlan(wf *workflow.Workflow, dot bool) error {
	plan, err := runner.NewPlan(wf)
	if err != nil {
		return err
	}

	if dot {
		return plan.DOT(os.Stdout)
	}

	fmt.Printf("workflow %q: %d job(s) in %d stage(s)\n", wf.Name, plan.JobCount(), len(plan.Stages))
	for i, stage := range plan.Stages {
		fmt.Printf("  stage %d: %s\n", i+1, strings.Join(stage, ", "))
	}
	return nil
}
