package main

import (
	"flag"
	"fmt"

	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "workflow definition file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Accept the file as a positional argument too.
	if *workflowPath == "" && fs.NArg() > 0 {
		*workflowPath = fs.Arg(0)
	}
	if *workflowPath == "" {
		return usagef("-workflow is required")
	}

	wf, err := loadWorkflow(billyfs.NewOSFS("/"), *workflowPath)
	if err != nil {
		return err
	}

	fmt.Printf("workflow %q is valid: %d job(s)\n", wf.Name, len(wf.Jobs))
	return nil
}
