package main

import "fmt"

func versionCommand(args []string) error {
	fmt.Printf("sluice %s (commit %s, built %s)\n", version, commit, date)
	return nil
}
