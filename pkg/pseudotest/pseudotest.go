// Package pseudotest exposes the pseudotest commands to programs that embed
// them, typically to register additional match handlers before running.
//
//	func main() {
//		if err := pseudotest.Register(myHandler); err != nil {
//			log.Fatal(err)
//		}
//		os.Exit(pseudotest.Main(os.Args[1:]))
//	}
package pseudotest

import (
	"github.com/pseudotest/pseudotest/internal/cli"
	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// Exit codes returned by the pseudotest commands.
// These constants allow external tools to check exit codes symbolically
// rather than using magic numbers.
const (
	// ExitSuccess indicates that every execution and match passed.
	ExitSuccess = errors.ExitSuccess

	// ExitTestFailure indicates a failed execution or match.
	ExitTestFailure = errors.ExitTestFailure

	// ExitConfigError indicates an invalid test file, match definition or
	// command line.
	ExitConfigError = errors.ExitConfigError

	// ExitRuntimeError indicates a problem running the test, such as a
	// missing executable or input file.
	ExitRuntimeError = errors.ExitRuntimeError

	// ExitInternalError indicates a bug.
	ExitInternalError = errors.ExitInternalError
)

// Register adds a match handler to the default registry. Handlers are
// tried after the built-in ones, in registration order.
func Register(reg match.Registration) error {
	return match.Register(reg)
}

// ConfigError returns the error a handler reports for a malformed match
// definition. The match fails and the run exits with ExitConfigError; any
// other handler error aborts the run.
func ConfigError(format string, args ...interface{}) error {
	return match.ConfigError(format, args...)
}

// Main runs the pseudotest command and returns its exit code.
func Main(args []string) int {
	return cli.Run(args)
}

// MainUpdate runs the pseudotest-update command and returns its exit code.
func MainUpdate(args []string) int {
	return cli.RunUpdate(args)
}
