// Package main provides the CLI for dress.
package main

import (
	"os"

	"github.com/leapstack-labs/dress/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
