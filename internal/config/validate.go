package config

import (
	"fmt"

	"github.com/pseudotest/pseudotest/internal/errors"
)

// ValidationError represents a semantic error in a test file.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validateInput checks the resolved settings of one input.
func validateInput(in *Input) error {
	field := func(name string) string { return fmt.Sprintf("Inputs.%s.%s", in.Name, name) }

	switch in.InputMethod {
	case InputArgument, InputStdin:
	case InputRename:
		if in.RenameTo == "" {
			return invalid(field("RenameTo"), `is required when InputMethod is "rename"`)
		}
	default:
		return invalid(field("InputMethod"), fmt.Sprintf("unknown input method %q (expected argument, stdin or rename)", in.InputMethod))
	}
	if in.Processors < 1 {
		return invalid(field("Processors"), "must be at least 1")
	}
	if in.Name == "" {
		return invalid("Inputs", "input file name must not be empty")
	}
	return nil
}

func invalid(field, message string) error {
	return &errors.Error{
		Kind:    errors.KindValidation,
		Message: "invalid test file",
		Cause:   &ValidationError{Field: field, Message: message},
	}
}
