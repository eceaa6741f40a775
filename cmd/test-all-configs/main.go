// Package main provides the test-all-configs CLI entry point.
//
// test-all-configs runs the old and new trigger components against every
// run configuration in the configuration directory, recording baseline data
// with the old components and comparing the new components against it.
package main

import (
	"os"

	"github.com/randomizedcoder/go-trigger-testbed/internal/cli"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/test-all-configs
var version = "dev"

func main() {
	os.Exit(cli.RunBatch(config.ModeBatch, version, os.Args[1:], os.Stdout, os.Stderr))
}
