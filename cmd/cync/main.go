// Package main is the entry point for the cync CLI.
//
// It delegates all functionality to the internal/cli package, which
// defines the cobra commands. Build-time variables (version, commit,
// date) are injected via ldflags during release builds and default to
// development placeholders otherwise.
package main

import (
	"github.com/goodCoderXD/cync/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
