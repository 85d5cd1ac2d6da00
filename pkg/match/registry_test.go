package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinPrecedenceOrder(t *testing.T) {
	t.Parallel()
	var got []CheckKind
	for _, reg := range NewDefaultRegistry().Registrations() {
		got = append(got, reg.Kind)
	}
	want := []CheckKind{
		CheckCount,
		CheckComplexMagnitude,
		CheckGrepLine,
		CheckLine,
		CheckGrep,
		CheckSize,
		CheckFilePresent,
		CheckCountFiles,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("built-in precedence mismatch (-want +got):\n%s", diff)
	}
}

// Definitions that satisfy several predicates resolve to the highest-priority one.
func TestResolve_Precedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		def  *Definition
		want CheckKind
	}{
		{
			"count beats line and grep",
			NewDefinition(P(KeyFile, String("o")), P(KeyGrep, String("x")), P(KeyLine, Int(1)), P(KeyCount, Int(2))),
			CheckCount,
		},
		{
			"complex beats grep with line",
			NewDefinition(P(KeyFile, String("o")), P(KeyGrep, String("x")), P(KeyLine, Int(1)),
				P(KeyFieldRe, Int(2)), P(KeyFieldIm, Int(3)), P(KeyValue, Int(5))),
			CheckComplexMagnitude,
		},
		{
			"complex with absolute line",
			NewDefinition(P(KeyFile, String("o")), P(KeyLine, Int(1)), P(KeyFieldRe, Int(2)), P(KeyFieldIm, Int(3))),
			CheckComplexMagnitude,
		},
		{
			"grep with line beats size",
			NewDefinition(P(KeyFile, String("o")), P(KeyGrep, String("x")), P(KeyLine, Int(1)), P(KeySize, Int(10))),
			CheckGrepLine,
		},
		{
			"line beats size",
			NewDefinition(P(KeyFile, String("o")), P(KeyLine, Int(1)), P(KeySize, Int(10))),
			CheckLine,
		},
		{
			"grep beats size",
			NewDefinition(P(KeyFile, String("o")), P(KeyGrep, String("x")), P(KeySize, Int(10))),
			CheckGrep,
		},
		{
			"size",
			NewDefinition(P(KeyFile, String("o")), P(KeySize, Int(10))),
			CheckSize,
		},
		{
			"file_is_present beats count_files",
			NewDefinition(P(KeyDirectory, String("d")), P(KeyFileIsPresent, String("a")), P(KeyCountFiles, Int(1))),
			CheckFilePresent,
		},
		{
			"count_files",
			NewDefinition(P(KeyDirectory, String("d")), P(KeyCountFiles, Int(1))),
			CheckCountFiles,
		},
	}
	reg := NewDefaultRegistry()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := reg.Resolve(tt.def)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.Kind != tt.want {
				t.Errorf("Resolve() = %v, want %v", got.Kind, tt.want)
			}
		})
	}
}

func TestResolve_NoHandler(t *testing.T) {
	t.Parallel()
	reg := NewDefaultRegistry()
	for _, def := range []*Definition{
		NewDefinition(P(KeyFile, String("o")), P(KeyValue, Int(1))),
		NewDefinition(P(KeyDirectory, String("d"))),
		NewDefinition(P(KeyCount, Int(1))),
	} {
		if _, err := reg.Resolve(def); !IsConfigError(err) {
			t.Errorf("Resolve(%v) error = %v, want config error", def, err)
		}
	}
}

func TestRegister_Extension(t *testing.T) {
	t.Parallel()
	reg := NewDefaultRegistry()
	err := reg.Register(Registration{
		Name:      "checksum",
		Kind:      CheckCustom,
		Predicate: func(d *Definition) bool { return d.Has("checksum") },
		Handler: func(root string, d *Definition) (Extraction, error) {
			v, _ := d.Get("checksum")
			return Extraction{Calculated: "abc", Extracted: true, Reference: v, ReferenceKey: "checksum"}, nil
		},
		Keys:          []string{KeyFile, "checksum"},
		ReferenceKeys: []string{"checksum"},
		InternalKeys:  []string{"salt"},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ext, err := reg.Dispatch(t.TempDir(), NewDefinition(P(KeyFile, String("o")), P("checksum", String("abc"))))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got.Name != "checksum" || ext.Calculated != "abc" {
		t.Errorf("Dispatch() = %s/%q, want checksum/abc", got.Name, ext.Calculated)
	}

	// Built-ins keep priority over later registrations.
	got, err = reg.Resolve(NewDefinition(P(KeyFile, String("o")), P(KeySize, Int(1)), P("checksum", String("abc"))))
	if err != nil || got.Kind != CheckSize {
		t.Errorf("Resolve() = %v, %v; want size", got.Kind, err)
	}

	if !reg.Recognized("checksum") || !reg.IsInternal("salt") {
		t.Error("extension keys are not recognized")
	}
	if NewDefaultRegistry().Recognized("checksum") {
		t.Error("registration leaked into another registry")
	}
}

func TestRegister_Invalid(t *testing.T) {
	t.Parallel()
	reg := NewDefaultRegistry()
	noop := func(string, *Definition) (Extraction, error) { return Extraction{}, nil }
	always := func(*Definition) bool { return true }
	tests := []Registration{
		{Predicate: always, Handler: noop},
		{Name: "x", Handler: noop},
		{Name: "size", Predicate: always, Handler: noop},
	}
	for _, r := range tests {
		if err := reg.Register(r); err == nil {
			t.Errorf("Register(%q) succeeded, want error", r.Name)
		}
	}
}

func TestRecognizedKeys(t *testing.T) {
	t.Parallel()
	want := []string{
		"column", "count", "count_files", "directory", "field", "field_im", "field_re",
		"file", "file_is_present", "grep", "line", "matches", "protected", "size", "tol", "value",
	}
	if diff := cmp.Diff(want, NewDefaultRegistry().RecognizedKeys()); diff != "" {
		t.Errorf("RecognizedKeys() mismatch (-want +got):\n%s", diff)
	}
	if NewDefaultRegistry().Recognized("Energy") {
		t.Error("match names must not be recognized as parameters")
	}
}

func TestUpdatable(t *testing.T) {
	t.Parallel()
	for _, reg := range NewDefaultRegistry().Registrations() {
		for _, k := range reg.ReferenceKeys {
			want := k != KeyFileIsPresent
			if got := reg.Updatable(k); got != want {
				t.Errorf("%s.Updatable(%q) = %v, want %v", reg.Name, k, got, want)
			}
		}
	}
}
