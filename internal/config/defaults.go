package config

// Default settings.
const (
	DefaultInputMethod = InputArgument
	DefaultProcessors  = 1
)

// resolve overlays the input settings on the top-level ones and fills in defaults.
func resolve(name string, top, in Settings) *Input {
	input := &Input{
		Name:        name,
		Enabled:     true,
		InputMethod: DefaultInputMethod,
		Processors:  DefaultProcessors,
	}
	for _, s := range []Settings{top, in} {
		if s.Enabled != nil {
			input.Enabled = *s.Enabled
		}
		if s.Executable != nil {
			input.Executable = *s.Executable
		}
		if s.InputMethod != nil {
			input.InputMethod = *s.InputMethod
		}
		if s.RenameTo != nil {
			input.RenameTo = *s.RenameTo
		}
		if s.ExtraFiles != nil {
			input.ExtraFiles = append([]string(nil), s.ExtraFiles...)
		}
		if s.Processors != nil {
			input.Processors = *s.Processors
		}
		if s.ExpectedFailure != nil {
			input.ExpectedFailure = *s.ExpectedFailure
		}
	}
	return input
}
