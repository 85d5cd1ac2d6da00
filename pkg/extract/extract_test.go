package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sample = []string{
	"Energy: -42.5000 Ry  0.3  0.4",
	"Total force: 1.2345e-03 Ha",
	"Status converged OK",
	"Iterations 10",
	"WARNING: step skipped",
	"WARNING: step skipped",
}

func TestSplitLines(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"empty", "", nil},
		{"single without newline", "a", []string{"a"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank line kept", "a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, SplitLines(tt.content)); diff != "" {
				t.Errorf("SplitLines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLineAt_InRange(t *testing.T) {
	t.Parallel()
	for n := 1; n <= len(sample); n++ {
		got, ok := LineAt(sample, n)
		if !ok || got != sample[n-1] {
			t.Errorf("LineAt(%d) = %q, %v; want %q", n, got, ok, sample[n-1])
		}
	}
	for n := -len(sample); n <= -1; n++ {
		got, ok := LineAt(sample, n)
		if !ok || got != sample[len(sample)+n] {
			t.Errorf("LineAt(%d) = %q, %v; want %q", n, got, ok, sample[len(sample)+n])
		}
	}
}

func TestLineAt_OutOfRange(t *testing.T) {
	t.Parallel()
	for _, n := range []int{0, len(sample) + 1, -len(sample) - 1, 1000, -1000} {
		if got, ok := LineAt(sample, n); ok {
			t.Errorf("LineAt(%d) = %q, want failure", n, got)
		}
	}
	if _, ok := LineAt(nil, 1); ok {
		t.Error("LineAt(nil, 1) should fail")
	}
}

func TestFindPatternLine(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		pattern string
		offset  int
		want    string
		ok      bool
	}{
		{"match itself", "Status", 0, "Status converged OK", true},
		{"forward offset", "Energy:", 1, "Total force: 1.2345e-03 Ha", true},
		{"backward offset", "Iterations", -1, "Status converged OK", true},
		{"first occurrence wins", "WARNING", 0, "WARNING: step skipped", true},
		{"case sensitive", "status", 0, "", false},
		{"missing pattern", "NONEXISTENT", 0, "", false},
		{"offset past end", "WARNING", 2, "", false},
		{"offset before start", "Energy:", -1, "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FindPatternLine(sample, tt.pattern, tt.offset)
			if ok != tt.ok || got != tt.want {
				t.Errorf("FindPatternLine(%q, %d) = %q, %v; want %q, %v", tt.pattern, tt.offset, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFindPatternLine_Idempotent(t *testing.T) {
	t.Parallel()
	for _, pattern := range []string{"Energy", "force", "converged", "10", "WARNING"} {
		line, ok := FindPatternLine(sample, pattern, 0)
		if !ok {
			t.Fatalf("FindPatternLine(%q) failed", pattern)
		}
		again, ok := FindPatternLine([]string{line}, pattern, 0)
		if !ok || again != line {
			t.Errorf("re-search of %q = %q, %v; want %q", pattern, again, ok, line)
		}
	}
}

func TestCountPattern(t *testing.T) {
	t.Parallel()
	if got := CountPattern(sample, "WARNING"); got != 2 {
		t.Errorf("CountPattern(WARNING) = %d, want 2", got)
	}
	if got := CountPattern(sample, "absent"); got != 0 {
		t.Errorf("CountPattern(absent) = %d, want 0", got)
	}
}

func TestField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		n    int
		want string
		ok   bool
	}{
		{"first second third", 2, "second", true},
		{"  leading   spaces\there", 3, "here", true},
		{"first second third", 5, "", false},
		{"first second third", 0, "", false},
		{"", 1, "", false},
	}
	for _, tt := range tests {
		got, ok := Field(tt.line, tt.n)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Field(%q, %d) = %q, %v; want %q, %v", tt.line, tt.n, got, ok, tt.want, tt.ok)
		}
	}
}

func TestColumn(t *testing.T) {
	t.Parallel()
	tests := []struct {
		line string
		pos  int
		want string
		ok   bool
	}{
		{"  hello world test", 3, "hello", true},
		{"  hello world test", 9, "world", true},
		{"  hello world test", 5, "llo", true},
		{"short", 10, "", false},
		{"   ", 1, "", true},
		{"abc", 3, "c", true},
		{"abc", 4, "", false},
		{"αβγ δ", 3, "γ", true},
	}
	for _, tt := range tests {
		got, ok := Column(tt.line, tt.pos)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Column(%q, %d) = %q, %v; want %q, %v", tt.line, tt.pos, got, ok, tt.want, tt.ok)
		}
	}
}
