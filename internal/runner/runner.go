// Package runner runs a test file: it executes every input, evaluates the
// match tree against the produced output, and optionally writes a report
// and updated references or tolerances.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pseudotest/pseudotest/internal/config"
	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/internal/executor"
	"github.com/pseudotest/pseudotest/internal/output"
	"github.com/pseudotest/pseudotest/internal/report"
	"github.com/pseudotest/pseudotest/pkg/match"
	"github.com/pseudotest/pseudotest/pkg/update"
)

const (
	// DefaultTimeout bounds a single execution.
	DefaultTimeout = 600 * time.Second

	// tailLines is how much captured output is shown after a failed execution.
	tailLines = 10
)

// Options configures a run.
type Options struct {
	ExecutableDir string
	Preserve      bool
	Timeout       time.Duration
	ReportFile    string

	// Update enables update mode; the test file is rewritten when any
	// match changed.
	Update       bool
	UpdateMode   update.Mode
	UpdateOutput string

	// FullOutput shows the complete captured output of failed executions
	// instead of its tail.
	FullOutput bool
}

// Summary counts the outcome of a run.
type Summary struct {
	FailedExecutions int
	TotalMatches     int
	FailedMatches    int
	// ConfigErrors counts matches that could not be evaluated because of a
	// malformed definition.
	ConfigErrors int
	// Updated lists the rewritten parameters as input: path.key.
	Updated []string
}

// ExitCode maps the summary to the process exit code.
func (s Summary) ExitCode() int {
	switch {
	case s.ConfigErrors > 0:
		return errors.ExitConfigError
	case s.FailedExecutions > 0 || s.FailedMatches > 0:
		return errors.ExitTestFailure
	default:
		return errors.ExitSuccess
	}
}

// Runner runs test files.
type Runner struct {
	registry *match.Registry
	out      *output.Writer
	logger   *zap.Logger
	launcher *string
}

// New creates a Runner dispatching matches through registry.
func New(registry *match.Registry, out *output.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, out: out, logger: logger}
}

// SetLauncher overrides the MPI launcher taken from the environment.
func (r *Runner) SetLauncher(launcher string) {
	r.launcher = &launcher
}

// run holds the state of one test-file run.
type run struct {
	*Runner
	opts    Options
	summary Summary
	workDir string
	changed bool
}

// Run runs the test file at path. The returned error covers problems that
// abort the run; test failures are reported through the Summary.
func (r *Runner) Run(ctx context.Context, path string, opts Options) (Summary, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	f, warnings, err := config.Load(path, r.registry)
	if err != nil {
		return Summary{}, err
	}
	for _, w := range warnings {
		r.out.Warning("%s", w)
	}
	r.logger.Debug("loaded test file", zap.String("path", path), zap.Int("inputs", len(f.Inputs)))

	r.out.Title(f.Name)
	if !f.Enabled {
		r.out.Println("Test disabled: skipping test")
		return Summary{}, nil
	}

	workDir, err := executor.NewWorkDir()
	if err != nil {
		return Summary{}, err
	}
	r.out.Println("Using workdir: %s", workDir)
	defer func() {
		if opts.Preserve {
			r.logger.Debug("preserved working directory", zap.String("workdir", workDir))
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("failed to remove working directory", zap.String("workdir", workDir), zap.Error(err))
			return
		}
		r.logger.Debug("removed working directory", zap.String("workdir", workDir))
	}()

	st := &run{Runner: r, opts: opts, workDir: workDir}
	rep := &report.Report{
		TestFile:   path,
		Name:       f.Name,
		Enabled:    f.Enabled,
		Executable: f.Executable,
	}

	exe := executor.New(workDir, r.logger)
	if r.launcher != nil {
		exe.SetLauncher(*r.launcher)
	}

	r.out.Println("Inputs:")
	for _, in := range f.Inputs {
		if err := ctx.Err(); err != nil {
			return st.summary, errors.Wrap(err, "run canceled")
		}
		if !in.Enabled {
			r.out.Line(1, "%s: disabled, skipping", in.Name)
			continue
		}
		entry, err := st.runInput(ctx, exe, f, in)
		if err != nil {
			return st.summary, err
		}
		rep.Inputs = append(rep.Inputs, entry)
	}

	r.out.Summary(st.summary.FailedExecutions, st.summary.TotalMatches, st.summary.FailedMatches)

	if opts.ReportFile != "" {
		if err := rep.Append(opts.ReportFile); err != nil {
			return st.summary, err
		}
		r.logger.Info("report written", zap.String("path", opts.ReportFile))
	}

	if opts.Update {
		if err := st.save(f); err != nil {
			return st.summary, err
		}
	}
	return st.summary, nil
}

func (st *run) runInput(ctx context.Context, exe *executor.Executor, f *config.File, in *config.Input) (*report.Input, error) {
	out := st.out
	out.Line(1, "%s:", in.Name)

	res, err := exe.Run(ctx, executor.Request{
		Input:         in.Name,
		TestDir:       f.Dir(),
		ExecutableDir: st.opts.ExecutableDir,
		Executable:    in.Executable,
		InputMethod:   in.InputMethod,
		RenameTo:      in.RenameTo,
		ExtraFiles:    in.ExtraFiles,
		Processors:    in.Processors,
		Timeout:       st.opts.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		st.logger.Warn("failed to run executable", zap.String("input", in.Name), zap.Error(res.Err))
	}
	if res.TimedOut {
		out.Line(2, "Timed out after %s", st.opts.Timeout)
	}
	out.Line(2, "Elapsed time: %.3fs", res.Elapsed.Seconds())

	success := res.Success
	if in.ExpectedFailure {
		success = !success
		out.Status(2, "Failed execution", success)
	} else {
		out.Status(2, "Execution", success)
		if !success {
			st.printOutput(in.Name)
		}
	}
	if !success {
		st.summary.FailedExecutions++
	}

	entry := &report.Input{
		Name:            in.Name,
		InputMethod:     in.InputMethod,
		Processors:      in.Processors,
		ExpectedFailure: in.ExpectedFailure,
		Passed:          success,
		Elapsed:         res.Elapsed,
	}
	if success {
		out.Line(2, "Matches:")
		entry.Matches = report.NewGroup()
		if in.Matches != nil {
			if err := st.walk(in, in.Matches, match.NewDefinition(), nil, 3, entry.Matches); err != nil {
				return nil, err
			}
		}
	}
	return entry, nil
}

// walk evaluates every leaf below group in definition order. inherited holds
// the parameters of the enclosing groups.
func (st *run) walk(in *config.Input, group *config.Node, inherited *match.Definition, path []string, level int, rep *report.Group) error {
	scope := inherited.Merge(group.Params)
	for _, child := range group.Children {
		childPath := append(append([]string{}, path...), child.Name)
		if !child.IsLeaf() {
			st.out.Line(level, "%s", child.Name)
			if err := st.walk(in, child, scope, childPath, level+1, rep.Group(child.Name)); err != nil {
				return err
			}
			continue
		}
		if err := st.evaluate(in, child, scope.Merge(child.Params), childPath, level, rep); err != nil {
			return err
		}
	}
	return nil
}

// evaluate checks one leaf match. Configuration errors fail the match; any
// other handler error is returned and aborts the run.
func (st *run) evaluate(in *config.Input, leaf *config.Node, def *match.Definition, path []string, level int, rep *report.Group) error {
	exp, err := match.Expand(def, leaf.Name)
	if err != nil {
		st.summary.TotalMatches++
		st.summary.FailedMatches++
		st.summary.ConfigErrors++
		st.out.Status(level, leaf.Name, false)
		st.out.ConfigFailure(level+2, err, def.Keys())
		rep.Add(leaf.Name, []match.Result{{Element: match.Element{Label: leaf.Name, Definition: def}, Err: err}}, false, st.registry)
		return nil
	}

	results := st.registry.Evaluate(st.workDir, exp)
	for _, r := range results {
		if r.Err != nil && !match.IsConfigError(r.Err) {
			name := strings.Join(path, ".")
			if exp.Broadcast() {
				name += "." + r.Element.Label
			}
			return fmt.Errorf("%s: match %s: %w", in.Name, name, r.Err)
		}
	}

	elemLevel := level
	if exp.Broadcast() {
		st.out.Line(level, "%s", leaf.Name)
		elemLevel = level + 1
	}
	for _, r := range results {
		st.summary.TotalMatches++
		passed := r.Passed()
		if !passed {
			st.summary.FailedMatches++
		}
		st.out.Status(elemLevel, r.Element.Label, passed)
		switch {
		case r.Err != nil:
			st.summary.ConfigErrors++
			st.out.ConfigFailure(elemLevel+2, r.Err, r.Element.Definition.Keys())
		case !r.Extraction.Extracted:
			st.out.ExtractionFailure(elemLevel+2, r.Extraction.Reason)
		case !r.Outcome.Passed:
			st.out.Comparison(elemLevel+2, r.Outcome)
		}
		if r.Outcome.PrecisionWarning {
			st.logger.Warn("tolerance is smaller than the effective precision of the calculated value",
				zap.String("match", strings.Join(path, ".")),
				zap.String("element", r.Element.Label),
				zap.String("calculated", r.Outcome.Calculated),
				zap.Float64("tolerance", r.Outcome.Tolerance),
				zap.Float64("precision", r.Outcome.Precision))
		}
	}
	rep.Add(leaf.Name, results, exp.Broadcast(), st.registry)

	if st.opts.Update {
		st.plan(in, leaf, results, path)
	}
	return nil
}

func (st *run) plan(in *config.Input, leaf *config.Node, results []match.Result, path []string) {
	patch, err := update.Plan(leaf.Params, results, st.opts.UpdateMode)
	if err != nil {
		st.out.Warning("%s: %s not updated: %v", in.Name, strings.Join(path, "."), err)
		return
	}
	if patch.Empty() {
		return
	}
	leaf.Apply(patch)
	st.changed = true
	for _, key := range patch.Keys() {
		st.summary.Updated = append(st.summary.Updated, in.Name+": "+strings.Join(path, ".")+"."+key)
	}
}

// save writes the updated test file when any match changed.
func (st *run) save(f *config.File) error {
	target := st.opts.UpdateOutput
	if target == "" {
		target = f.Path
	}
	if st.changed {
		if err := f.Save(target); err != nil {
			return err
		}
		st.logger.Info("updated test file written", zap.String("path", target))
	}
	st.out.UpdateSummary(st.opts.UpdateMode.String(), st.summary.Updated, target)
	return nil
}

// printOutput shows the captured streams of a failed execution.
func (st *run) printOutput(input string) {
	var streams []output.Stream
	for _, s := range []struct{ file, name string }{
		{executor.Stdout, "STDOUT"},
		{executor.Stderr, "STDERR"},
	} {
		stream := output.Stream{Name: s.name}
		lines, err := executor.Tail(filepath.Join(st.workDir, s.file), 0)
		switch {
		case os.IsNotExist(err):
			stream.Missing = true
		case err != nil:
			st.logger.Debug("failed to read captured output", zap.String("stream", s.name), zap.Error(err))
			continue
		case !st.opts.FullOutput && len(lines) > tailLines:
			stream.Lines = lines[len(lines)-tailLines:]
			stream.Truncated = true
		default:
			stream.Lines = lines
		}
		if !stream.Missing && strings.TrimSpace(strings.Join(stream.Lines, "")) == "" && !stream.Truncated {
			stream.Lines = nil
		}
		streams = append(streams, stream)
	}
	st.out.ExecutionOutput(input, streams)
}
