// Package main is the entry point for the erdash CLI.
package main

import (
	"os"

	"github.com/sabrimoh/erdash/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
