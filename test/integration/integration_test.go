// Package integration contains end-to-end tests running the pseudotest
// commands on the test files under test/fixtures.
package integration

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/pseudotest/pseudotest/internal/cli"
	"github.com/pseudotest/pseudotest/pkg/match"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
// The result is cached for efficiency since runtime.Caller is relatively expensive.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

func binDir() string {
	return filepath.Join(fixturesDir(), "bin")
}

func suiteFile(name string) string {
	return filepath.Join(fixturesDir(), "suite", name)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture executables are shell scripts")
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runTest(t *testing.T, args ...string) result {
	t.Helper()
	return invoke(t, cli.RunWith, args)
}

func runUpdate(t *testing.T, args ...string) result {
	t.Helper()
	return invoke(t, cli.RunUpdateWith, args)
}

func invoke(t *testing.T, fn func(cli.Env, []string) int, args []string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := fn(cli.Env{Stdout: &stdout, Stderr: &stderr, Registry: match.NewDefaultRegistry()}, args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// copySuite copies the named suite files into a fresh directory so that
// update runs do not touch the fixtures.
func copySuite(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		src, err := os.Open(suiteFile(name))
		if err != nil {
			t.Fatal(err)
		}
		dst, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			src.Close()
			t.Fatal(err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
