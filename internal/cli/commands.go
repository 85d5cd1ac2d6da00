package cli

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/internal/logging"
	"github.com/pseudotest/pseudotest/internal/runner"
	"github.com/pseudotest/pseudotest/pkg/update"
)

// defaultTimeoutSeconds bounds each execution unless overridden.
const defaultTimeoutSeconds = 600

type options struct {
	executableDir string
	preserve      bool
	verbose       int
	timeout       int
	report        string

	tolerance bool
	reference bool
	output    string
}

func (o options) validate() error {
	if o.timeout <= 0 {
		return errors.Configf("timeout must be a positive number of seconds, got %d", o.timeout)
	}
	return nil
}

func exactlyOneTestFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errors.Configf("expected exactly one test file, got %d arguments", len(args))
	}
	return nil
}

func newTestCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pseudotest TEST_FILE",
		Short:   "Regression testing utility for scientific software",
		Long:    "Runs the inputs of a YAML test file through an executable and checks values\nextracted from the produced output against stored references.",
		Version: Version,
		Args:    exactlyOneTestFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			st.started = true
			return st.run(cmd, args[0], runner.Options{
				Preserve:   st.opts.preserve,
				ReportFile: st.opts.report,
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&st.opts.executableDir, "directory", "D", ".", "Directory containing the executables")
	flags.BoolVarP(&st.opts.preserve, "preserve", "p", false, "Preserve working directory after test")
	flags.CountVarP(&st.opts.verbose, "verbose", "v", "Increase verbosity (-v for INFO, -vv for DEBUG)")
	flags.IntVarP(&st.opts.timeout, "timeout", "t", defaultTimeoutSeconds, "Execution timeout in seconds")
	flags.StringVarP(&st.opts.report, "report", "r", "", "Append a YAML execution report to `FILE`")
	return cmd
}

func newUpdateCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pseudotest-update TEST_FILE (-t | -r)",
		Short:   "Run regression tests and update the test file to fix match failures",
		Long:    "Runs a YAML test file like pseudotest, then widens tolerances (-t) or replaces\nreference values (-r) of failing matches and writes the test file back.",
		Version: Version,
		Args:    exactlyOneTestFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			st.started = true
			mode := update.ModeTolerance
			if st.opts.reference {
				mode = update.ModeReference
			}
			return st.run(cmd, args[0], runner.Options{
				Update:       true,
				UpdateMode:   mode,
				UpdateOutput: st.opts.output,
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&st.opts.executableDir, "directory", "D", ".", "Directory containing the executables")
	flags.CountVarP(&st.opts.verbose, "verbose", "v", "Increase verbosity (-v for INFO, -vv for DEBUG)")
	flags.IntVar(&st.opts.timeout, "timeout", defaultTimeoutSeconds, "Execution timeout in seconds")
	flags.BoolVarP(&st.opts.tolerance, "tolerance", "t", false, "Update tolerances to cover observed differences")
	flags.BoolVarP(&st.opts.reference, "reference", "r", false, "Update reference values to match calculated values")
	flags.StringVarP(&st.opts.output, "output", "o", "", "Write the updated test file to `FILE` instead of overwriting it")
	cmd.MarkFlagsMutuallyExclusive("tolerance", "reference")
	cmd.MarkFlagsOneRequired("tolerance", "reference")
	return cmd
}

// run runs the test file and records the exit code of the run.
func (st *state) run(cmd *cobra.Command, path string, opts runner.Options) error {
	if err := st.opts.validate(); err != nil {
		return err
	}
	logger := logging.New(st.env.Stderr, st.opts.verbose)
	defer func() { _ = logger.Sync() }()

	opts.ExecutableDir = st.opts.executableDir
	opts.Timeout = time.Duration(st.opts.timeout) * time.Second
	opts.FullOutput = st.opts.verbose >= 2

	r := runner.New(st.env.Registry, st.env.writer(), logger)
	summary, err := r.Run(cmd.Context(), path, opts)
	if err != nil {
		return err
	}
	st.code = summary.ExitCode()
	logger.Debug("run finished", zap.Int("exit_code", st.code))
	return nil
}
