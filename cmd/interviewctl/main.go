// Package main is the entry point for interviewctl, the operator tool for the
// interview sync service.
package main

import (
	"os"

	"interview-sync/cmd/interviewctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
