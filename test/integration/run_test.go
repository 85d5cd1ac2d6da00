package integration

import (
	"strings"
	"testing"

	"github.com/pseudotest/pseudotest/pkg/pseudotest"
)

func TestSuite_ExitCodes(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tests := []struct {
		file     string
		want     int
		contains []string
	}{
		{"basic.yaml", pseudotest.ExitSuccess, []string{"***** Basic solver run *****", "Total matches     :    11", "Failed matches    :     0"}},
		{"stdin.yaml", pseudotest.ExitSuccess, []string{"Total matches     :     1"}},
		{"rename.yaml", pseudotest.ExitSuccess, []string{"Total matches     :     1"}},
		{"expected_failure.yaml", pseudotest.ExitSuccess, []string{"Failed execution"}},
		{"disabled.yaml", pseudotest.ExitSuccess, []string{"Test disabled: skipping test"}},
		{"failing.yaml", pseudotest.ExitTestFailure, []string{"Failed matches    :     3", "Reference value  : -42.6000"}},
		{"crash.yaml", pseudotest.ExitTestFailure, []string{"=== STDERR from case.in ===", "fatal: basis set not found"}},
		{"config_error.yaml", pseudotest.ExitConfigError, []string{"configuration error"}},
		{"missing_executable.yaml", pseudotest.ExitRuntimeError, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()
			res := runTest(t, suiteFile(tt.file), "-D", binDir())
			if res.code != tt.want {
				t.Errorf("exit code = %d, want %d\nstdout:\n%s\nstderr:\n%s", res.code, tt.want, res.stdout, res.stderr)
			}
			for _, s := range tt.contains {
				if !strings.Contains(res.stdout, s) {
					t.Errorf("stdout missing %q:\n%s", s, res.stdout)
				}
			}
		})
	}
}

func TestSuite_BroadcastLabels(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	res := runTest(t, suiteFile("basic.yaml"), "-D", binDir())
	for _, label := range []string{"      Forces\n", "        Fx ", "        Fy ", "      Results\n", "        Files "} {
		if !strings.Contains(res.stdout, label) {
			t.Errorf("stdout missing %q:\n%s", label, res.stdout)
		}
	}
}
