// Package main is the entry point for the pseudotest CLI.
package main

import (
	"os"

	"github.com/pseudotest/pseudotest/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
