// Package cli implements the pseudotest and pseudotest-update commands.
package cli

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/internal/output"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// Version is set at build time.
var Version = "dev"

// Env holds the process streams and the match registry used by a command.
// Zero fields fall back to os.Stdout, os.Stderr and match.Default.
type Env struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Registry *match.Registry
}

func (e Env) withDefaults() Env {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Registry == nil {
		e.Registry = match.Default
	}
	return e
}

func (e Env) writer() *output.Writer {
	if e.Stdout == os.Stdout && e.Stderr == os.Stderr {
		return output.New()
	}
	return output.NewWithWriters(e.Stdout, e.Stderr, false)
}

// Run executes pseudotest with the given arguments and returns an exit code.
func Run(args []string) int {
	return RunWith(Env{}, args)
}

// RunUpdate executes pseudotest-update with the given arguments and returns
// an exit code.
func RunUpdate(args []string) int {
	return RunUpdateWith(Env{}, args)
}

// RunWith is Run with explicit streams and registry.
func RunWith(env Env, args []string) int {
	env = env.withDefaults()
	st := &state{env: env}
	return st.execute(newTestCommand(st), args)
}

// RunUpdateWith is RunUpdate with explicit streams and registry.
func RunUpdateWith(env Env, args []string) int {
	env = env.withDefaults()
	st := &state{env: env}
	return st.execute(newUpdateCommand(st), args)
}

// state carries the outcome of one command invocation.
type state struct {
	env     Env
	opts    options
	started bool
	code    int
}

// execute runs cmd and maps its outcome to an exit code. Errors raised before
// the command body runs come from argument parsing and are usage errors.
func (st *state) execute(cmd *cobra.Command, args []string) (code int) {
	out := st.env.writer()
	defer func() {
		if r := recover(); r != nil {
			out.ErrorPrefix("internal error: %v (use -vv for a stack trace)", r)
			if st.opts.verbose >= 2 {
				out.Error("%s", debug.Stack())
			}
			code = errors.ExitInternalError
		}
	}()

	cmd.SetArgs(args)
	cmd.SetOut(st.env.Stdout)
	cmd.SetErr(st.env.Stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return st.code
	}
	out.ErrorPrefix("%v", err)
	var classified *errors.Error
	if !st.started && !stderrors.As(err, &classified) {
		out.Errorln("%s", cmd.UsageString())
		return errors.ExitConfigError
	}
	return errors.GetExitCode(err)
}
