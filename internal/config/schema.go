// Package config loads pseudotest YAML test files, resolves per-input
// settings and match trees, and writes updated match definitions back.
package config

import "gopkg.in/yaml.v3"

// Settings holds the execution settings that may appear at the top level
// of a test file and be overridden per input.
type Settings struct {
	Enabled         *bool    `yaml:"Enabled,omitempty"`
	Executable      *string  `yaml:"Executable,omitempty"`
	InputMethod     *string  `yaml:"InputMethod,omitempty"`
	RenameTo        *string  `yaml:"RenameTo,omitempty"`
	ExtraFiles      []string `yaml:"ExtraFiles,omitempty"`
	Processors      *int     `yaml:"Processors,omitempty"`
	ExpectedFailure *bool    `yaml:"ExpectedFailure,omitempty"`
}

// TestFile is the top level of a test file.
type TestFile struct {
	Name     string    `yaml:"Name"`
	Settings `yaml:",inline"`
	Inputs   yaml.Node `yaml:"Inputs"`
}

// InputScope is the mapping under one entry of Inputs.
type InputScope struct {
	Settings `yaml:",inline"`
	Matches  yaml.Node `yaml:"Matches"`
}

// Input methods.
const (
	InputArgument = "argument"
	InputStdin    = "stdin"
	InputRename   = "rename"
)

// Input is one input case with its settings resolved against the top level.
type Input struct {
	Name            string
	Enabled         bool
	Executable      string
	InputMethod     string
	RenameTo        string
	ExtraFiles      []string
	Processors      int
	ExpectedFailure bool

	// Matches is the root group of the match tree; nil when the input has none.
	Matches *Node
}
