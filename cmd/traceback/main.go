// Package main provides the entry point for the traceback CLI.
// Traceback turns raw server logs into structured threat reports by way
// of a hosted language-model oracle, and lets the user interrogate the
// findings interactively.
package main

import (
	"os"

	"github.com/yughpatel/TraceBack/cmd/traceback/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
