// Command sluice runs CI workflow definitions on the local host: it
// evaluates a workflow's triggers against a repository event, executes
// the triggered jobs with the platform failure policy, and manages the
// sealed env files that feed secrets into job environments.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	registry := NewRegistry()
	registerCommands(registry)

	if err := registry.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// usageError marks invocation and configuration problems, which exit with
// a distinct code so scripts can tell them from run failures.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...interface{}) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func registerCommands(r *Registry) {
	r.Register(&Command{
		Name:        "run",
		Description: "Evaluate a workflow's triggers against an event and run it",
		Usage:       "sluice run -workflow <file> -event <push|pull_request> [flags]",
		Examples: []string{
			"sluice run -workflow ci.yaml -event push -ref refs/heads/develop",
			"sluice run -workflow ci.yaml -event pull_request -base main -head feature/x",
			"sluice run -workflow ci.yaml -event push -ref develop -repo . -report run.json",
			"sluice run -workflow ci.yaml -event push -ref develop -dry-run",
		},
		Run: runCommand,
	})

	r.Register(&Command{
		Name:        "validate",
		Description: "Validate a workflow definition",
		Usage:       "sluice validate -workflow <file>",
		Examples: []string{
			"sluice validate -workflow ci.yaml",
		},
		Run: validateCommand,
	})

	r.Register(&Command{
		Name:        "plan",
		Description: "Show a workflow's execution stages or needs graph",
		Usage:       "sluice plan -workflow <file> [-dot]",
		Examples: []string{
			"sluice plan -workflow ci.yaml",
			"sluice plan -workflow ci.yaml -dot | dot -Tsvg -o plan.svg",
		},
		Run: planCommand,
	})

	r.Register(&Command{
		Name:        "seal",
		Description: "Encrypt an env file",
		Usage:       "sluice seal -in <file> [-out <file>] (-key-file <file> | -password <pw> -salt-file <file>)",
		Examples: []string{
			"sluice seal -in .env -key-file sluice.key",
			"sluice seal -in .env -out secrets.env.enc -password s3cret -salt-file sluice.salt",
		},
		Run: sealCommand,
	})

	r.Register(&Command{
		Name:        "unseal",
		Description: "Decrypt a sealed env file",
		Usage:       "sluice unseal -in <file> [-out <file>] (-key-file <file> | -password <pw> -salt-file <file>)",
		Examples: []string{
			"sluice unseal -in .env.enc -key-file sluice.key",
			"sluice unseal -in secrets.env.enc -out .env -password s3cret -salt-file sluice.salt",
		},
		Run: unsealCommand,
	})

	r.Register(&Command{
		Name:        "keygen",
		Description: "Generate an encryption key file",
		Usage:       "sluice keygen -out <file> [-password <pw> -salt-file <file>]",
		Examples: []string{
			"sluice keygen -out sluice.key",
			"sluice keygen -out sluice.key -password s3cret -salt-file sluice.salt",
		},
		Run: keygenCommand,
	})

	r.Register(&Command{
		Name:        "version",
		Description: "Show version information",
		Usage:       "sluice version",
		Run:         versionCommand,
	})

	r.Register(&Command{
		Name:        "help",
		Description: "Show help",
		Usage:       "sluice help",
		Run: func(args []string) error {
			r.PrintHelp(os.Stdout)
			return nil
		},
	})
}
