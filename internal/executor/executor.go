// Package executor stages test inputs into a working directory and runs the
// program under test.
package executor

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pseudotest/pseudotest/internal/errors"
)

// Input methods, matching the test-file InputMethod values.
const (
	MethodArgument = "argument"
	MethodStdin    = "stdin"
	MethodRename   = "rename"
)

// LauncherEnv names the environment variable holding the MPI launcher.
const LauncherEnv = "MPIEXEC"

// Stdout and Stderr are the names of the captured output files inside the
// working directory.
const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// Request describes one execution.
type Request struct {
	Input         string // input file, relative to TestDir
	TestDir       string
	ExecutableDir string
	Executable    string
	InputMethod   string
	RenameTo      string
	ExtraFiles    []string
	Processors    int
	Timeout       time.Duration
}

// Result is the outcome of one execution.
type Result struct {
	Success  bool
	ExitCode int
	TimedOut bool
	Elapsed  time.Duration
	// Err is set when the process could not be started or waited for.
	Err error
}

// Executor runs requests inside a working directory shared by all inputs of a test.
type Executor struct {
	workDir  string
	launcher string
	logger   *zap.Logger
}

// New creates an executor for workDir. The MPI launcher is taken from the
// MPIEXEC environment variable.
func New(workDir string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		workDir:  workDir,
		launcher: strings.TrimSpace(os.Getenv(LauncherEnv)),
		logger:   logger,
	}
}

// SetLauncher overrides the MPI launcher command. Empty disables MPI.
func (e *Executor) SetLauncher(launcher string) {
	e.launcher = strings.TrimSpace(launcher)
}

// WorkDir returns the working directory.
func (e *Executor) WorkDir() string {
	return e.workDir
}

// NewWorkDir creates a fresh temporary working directory.
func NewWorkDir() (string, error) {
	dir, err := os.MkdirTemp("", "pseudotest_")
	if err != nil {
		return "", errors.Wrap(err, "failed to create working directory")
	}
	return dir, nil
}

// Run stages the input and extra files and runs the executable. Problems
// with the request itself are returned as errors; a program that fails,
// times out or cannot start yields an unsuccessful Result.
func (e *Executor) Run(ctx context.Context, req Request) (Result, error) {
	exe, err := resolveExecutable(req.ExecutableDir, req.Executable)
	if err != nil {
		return Result{}, err
	}
	staged, err := e.stage(req)
	if err != nil {
		return Result{}, err
	}
	name, args := BuildCommand(e.launcher, exe, req.Processors, req.InputMethod, staged)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	stdout, err := os.Create(filepath.Join(e.workDir, Stdout))
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create stdout file")
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(e.workDir, Stderr))
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create stderr file")
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.workDir
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if req.InputMethod == MethodStdin {
		in, err := os.Open(filepath.Join(e.workDir, staged))
		if err != nil {
			return Result{}, errors.Wrap(err, "failed to open staged input")
		}
		defer in.Close()
		cmd.Stdin = in
	} else {
		defer func() {
			if err := os.Remove(filepath.Join(e.workDir, staged)); err != nil && !os.IsNotExist(err) {
				e.logger.Debug("failed to remove staged input", zap.String("file", staged), zap.Error(err))
			}
		}()
	}

	e.logger.Info("executing", zap.String("command", describe(name, args, req.InputMethod, staged)),
		zap.String("workdir", e.workDir))

	start := time.Now()
	runErr := cmd.Run()
	res := Result{Elapsed: time.Since(start)}

	switch {
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
		e.logger.Debug("execution timed out", zap.Duration("timeout", req.Timeout))
	case runErr == nil:
		res.Success = true
	default:
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			e.logger.Debug("executable failed", zap.Int("exit_code", res.ExitCode))
		} else {
			res.ExitCode = -1
			res.Err = runErr
			e.logger.Debug("execution failed", zap.Error(runErr))
		}
	}
	return res, nil
}

// stage copies the input and extra files into the working directory and
// returns the staged input name.
func (e *Executor) stage(req Request) (string, error) {
	src := filepath.Join(req.TestDir, req.Input)
	if _, err := os.Stat(src); err != nil {
		return "", errors.Newf("input file not found: %s", src)
	}

	var staged string
	switch req.InputMethod {
	case MethodArgument, MethodStdin, "":
		staged = filepath.Base(req.Input)
	case MethodRename:
		if req.RenameTo == "" {
			return "", errors.Configf("input method %q requires RenameTo", MethodRename)
		}
		staged = req.RenameTo
	default:
		return "", errors.Configf("unknown input method %q", req.InputMethod)
	}
	if err := copyFile(src, filepath.Join(e.workDir, staged)); err != nil {
		return "", errors.Wrap(err, "failed to stage input file")
	}
	e.logger.Debug("copied input file", zap.String("from", req.Input), zap.String("to", staged))

	for _, extra := range req.ExtraFiles {
		src := filepath.Join(req.TestDir, extra)
		if _, err := os.Stat(src); err != nil {
			return "", errors.Newf("extra file not found: %s", src)
		}
		if err := copyFile(src, filepath.Join(e.workDir, filepath.Base(extra))); err != nil {
			return "", errors.Wrap(err, "failed to stage extra file")
		}
		e.logger.Debug("copied extra file", zap.String("file", extra))
	}
	return staged, nil
}

// BuildCommand returns the program and arguments for one execution. With an
// MPI launcher the executable runs under it with the requested number of
// processes; srun and aprun take -n, other launchers -np.
func BuildCommand(launcher, exe string, processors int, method, staged string) (string, []string) {
	var args []string
	if method == MethodArgument || method == "" {
		args = []string{staged}
	}
	fields := strings.Fields(launcher)
	if len(fields) == 0 {
		return exe, args
	}
	if processors < 1 {
		processors = 1
	}
	flag := "-np"
	switch strings.TrimSuffix(filepath.Base(fields[0]), ".exe") {
	case "srun", "aprun":
		flag = "-n"
	}
	mpiArgs := append([]string{}, fields[1:]...)
	mpiArgs = append(mpiArgs, flag, strconv.Itoa(processors), exe)
	return fields[0], append(mpiArgs, args...)
}

func describe(name string, args []string, method, staged string) string {
	cmd := strings.TrimSpace(name + " " + strings.Join(args, " "))
	switch method {
	case MethodStdin:
		return cmd + " < " + staged
	case MethodRename:
		return fmt.Sprintf("%s (with %s in working directory)", cmd, staged)
	}
	return cmd
}

func resolveExecutable(dir, name string) (string, error) {
	if name == "" {
		return "", errors.Config("no Executable configured")
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", errors.NotFound("executable", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", errors.Newf("executable %s is not executable", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve executable path")
	}
	return abs, nil
}

// copyFile copies src to dst keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// Tail returns the last n lines of the file at path; n <= 0 returns all lines.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.ToValidUTF8(scanner.Text(), "�"))
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
