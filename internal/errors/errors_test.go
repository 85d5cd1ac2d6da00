package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "with input",
			err:      &Error{Input: "input.txt", Message: "execution failed"},
			expected: "[input.txt] execution failed",
		},
		{
			name:     "with input and match",
			err:      &Error{Input: "input.txt", Match: "energy", Message: "no handler"},
			expected: "[input.txt] energy: no handler",
		},
		{
			name:     "match without input",
			err:      &Error{Match: "energy", Message: "no handler"},
			expected: "energy: no handler",
		},
		{
			name:     "with cause",
			err:      &Error{Message: "read test file", Cause: errors.New("permission denied")},
			expected: "read test file: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &Error{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}

	errNoCause := &Error{Message: "no cause"}
	if got := errNoCause.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestError_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		expected int
	}{
		{"runtime", KindRuntime, ExitRuntimeError},
		{"config", KindConfig, ExitConfigError},
		{"validation", KindValidation, ExitConfigError},
		{"not found", KindNotFound, ExitRuntimeError},
		{"internal", KindInternal, ExitInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &Error{Kind: tt.kind}
			if got := err.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("broadcast length mismatch: %s", "file has 2 elements, value has 3")

	if err.Kind != KindConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, KindConfig)
	}
	expected := "broadcast length mismatch: file has 2 elements, value has 3"
	if err.Message != expected {
		t.Errorf("Message = %q, want %q", err.Message, expected)
	}
	if err.ExitCode() != ExitConfigError {
		t.Errorf("ExitCode() = %d, want %d", err.ExitCode(), ExitConfigError)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(cause, "wrapped message")

	if err.Kind != KindRuntime {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRuntime)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the original cause")
	}
}

func TestIsKind(t *testing.T) {
	wrapped := fmt.Errorf("evaluating energy: %w", Configf("no handler"))
	if !IsKind(wrapped, KindConfig) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, KindRuntime) {
		t.Error("config error reported as runtime")
	}
	if !IsKind(&Error{Kind: KindValidation}, KindConfig) {
		t.Error("validation errors count as configuration errors")
	}
	if IsKind(errors.New("plain"), KindConfig) {
		t.Error("plain error reported as config error")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},
		{"runtime", Newf("runtime"), ExitRuntimeError},
		{"config", Config("config"), ExitConfigError},
		{"wrapped config", fmt.Errorf("ctx: %w", Config("config")), ExitConfigError},
		{"internal", Internalf("boom"), ExitInternalError},
		{"generic error", errors.New("generic"), ExitInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	codes := map[string]struct{ got, want int }{
		"ExitSuccess":       {ExitSuccess, 0},
		"ExitTestFailure":   {ExitTestFailure, 1},
		"ExitConfigError":   {ExitConfigError, 2},
		"ExitRuntimeError":  {ExitRuntimeError, 3},
		"ExitInternalError": {ExitInternalError, 99},
	}
	for name, c := range codes {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", name, c.got, c.want)
		}
	}
}
