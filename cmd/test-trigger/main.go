// Package main provides the test-trigger CLI entry point.
//
// test-trigger runs the trigger testbed once, passing every argument through
// to it, and exits with the testbed's exit status. Set DEBUG to print the
// command first.
package main

import (
	"context"
	"os"

	"github.com/randomizedcoder/go-trigger-testbed/internal/cli"
)

func main() {
	os.Exit(cli.SingleRunFromEnv().Run(context.Background(), os.Args[1:]))
}
