// Package main is the entry point for the projctl CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/projtrack/cmd/projctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
