// Package main is the entry point for the pseudotest-update CLI.
package main

import (
	"os"

	"github.com/pseudotest/pseudotest/internal/cli"
)

func main() {
	os.Exit(cli.RunUpdate(os.Args[1:]))
}
