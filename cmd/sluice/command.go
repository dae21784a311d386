package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Command is one sluice subcommand.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(args []string) error
}

// NewFlagSet creates the command's flag set with usage wired up.
func (c *Command) NewFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ExitOnError)
	fs.Usage = func() { c.PrintUsage(os.Stderr) }
	return fs
}

// PrintUsage prints the command's usage block.
func (c *Command) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\n", c.Description)
	fmt.Fprintf(w, "USAGE:\n    %s\n", c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nEXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(w, "    %s\n", example)
		}
	}
}

// Registry holds the sluice subcommands.
type Registry struct {
	commands map[string]*Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]*Command)}
}

// Register adds a command.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
}

// Execute dispatches to the named command.
func (r *Registry) Execute(args []string) error {
	if len(args) == 0 {
		r.PrintHelp(os.Stderr)
		return fmt.Errorf("no command given")
	}

	name := args[0]
	if name == "-h" || name == "--help" {
		r.PrintHelp(os.Stdout)
		return nil
	}

	cmd, ok := r.commands[name]
	if !ok {
		r.PrintHelp(os.Stderr)
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd.Run(args[1:])
}

// PrintHelp lists the registered commands.
func (r *Registry) PrintHelp(w io.Writer) {
	fmt.Fprintf(w, "sluice — workflow runner with sealed environment support\n\n")
	fmt.Fprintf(w, "USAGE:\n    sluice <command> [flags]\n\nCOMMANDS:\n")

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	width := 0
	for _, name := range names {
		if len(name) > width {
			width = len(name)
		}
	}
	for _, name := range names {
		cmd := r.commands[name]
		fmt.Fprintf(w, "    %s%s  %s\n", name, strings.Repeat(" ", width-len(name)), cmd.Description)
	}
	fmt.Fprintf(w, "\nRun 'sluice <command> -h' for command details.\n")
}
