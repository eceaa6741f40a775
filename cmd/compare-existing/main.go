// Package main provides the compare-existing CLI entry point.
//
// compare-existing reruns the new trigger components against each baseline
// data file already present in the target directory.
package main

import (
	"os"

	"github.com/randomizedcoder/go-trigger-testbed/internal/cli"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	os.Exit(cli.RunBatch(config.ModeCompare, version, os.Args[1:], os.Stdout, os.Stderr))
}
