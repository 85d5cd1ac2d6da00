package match

import (
	"fmt"
	"testing"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()
	root := setupWorkdir(t)
	reg := NewDefaultRegistry()

	def := NewDefinition(
		P(KeyFile, String("out.log")),
		P(KeyGrep, List(String("iter   1"), String("iter   2"), String("missing"))),
		P(KeyField, Int(4)),
		P(KeyValue, List(FloatLiteral("-42.4000", -42.4), FloatLiteral("-42.5000", -42.5), Int(0))),
		P(KeyTol, Float(1e-4)),
	)
	exp, err := Expand(def, "Energy")
	if err != nil {
		t.Fatal(err)
	}
	results := reg.Evaluate(root, exp)
	if len(results) != 3 {
		t.Fatalf("Evaluate() = %d results, want 3", len(results))
	}

	if !results[0].Passed() {
		t.Errorf("element 0 failed: %v", results[0].Outcome)
	}
	if !results[1].Passed() || !results[1].Outcome.Numeric {
		t.Errorf("element 1 = %v, want numeric pass within tolerance", results[1].Outcome)
	}
	if results[2].Passed() || results[2].Extraction.Extracted || results[2].Err != nil {
		t.Errorf("element 2 = %+v, want extraction failure", results[2])
	}
	if AllPassed(results) {
		t.Error("AllPassed() = true with a failing element")
	}
}

func TestEvaluate_ConfigErrorIsolated(t *testing.T) {
	t.Parallel()
	root := setupWorkdir(t)
	def := NewDefinition(
		P(KeyFile, String("out.log")),
		P(KeyLine, List(Int(-1), String("bad"))),
		P(KeyField, Int(3)),
		P(KeyValue, String("converged")),
	)
	exp, err := Expand(def, "Status")
	if err != nil {
		t.Fatal(err)
	}
	results := NewDefaultRegistry().Evaluate(root, exp)
	if !results[0].Passed() {
		t.Errorf("element 0 = %+v, want pass", results[0])
	}
	if !IsConfigError(results[1].Err) {
		t.Errorf("element 1 error = %v, want config error", results[1].Err)
	}
}

func TestEvaluate_HandlerErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		err    error
		config bool
	}{
		{"config error", ConfigError("checksum %q is not hex", "xyz"), true},
		{"plain error", fmt.Errorf("disk on fire"), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := NewRegistry()
			if err := reg.Register(Registration{
				Name:      "checksum",
				Kind:      CheckCustom,
				Predicate: func(d *Definition) bool { return d.Has("checksum") },
				Handler: func(string, *Definition) (Extraction, error) {
					return Extraction{}, tt.err
				},
				Keys: []string{KeyFile, "checksum"},
			}); err != nil {
				t.Fatal(err)
			}
			exp, err := Expand(NewDefinition(P(KeyFile, String("o")), P("checksum", String("xyz"))), "Sum")
			if err != nil {
				t.Fatal(err)
			}
			res := reg.Evaluate(t.TempDir(), exp)[0]
			if res.Passed() {
				t.Fatal("Passed() = true, want false")
			}
			if res.Err != tt.err {
				t.Errorf("Err = %v, want %v", res.Err, tt.err)
			}
			if got := IsConfigError(res.Err); got != tt.config {
				t.Errorf("IsConfigError(%v) = %v, want %v", res.Err, got, tt.config)
			}
		})
	}
}

func TestEvaluate_ExactWithoutTolerance(t *testing.T) {
	t.Parallel()
	root := setupWorkdir(t)
	def := NewDefinition(
		P(KeyFile, String("out.log")),
		P(KeyGrep, String("Total energy")),
		P(KeyField, Int(3)),
		P(KeyValue, FloatLiteral("-42.5000", -42.5)),
	)
	exp, _ := Expand(def, "Energy")
	results := NewDefaultRegistry().Evaluate(root, exp)
	if results[0].Passed() {
		t.Error("-42.5001 must not equal -42.5000 without tolerance")
	}
	if !results[0].Extraction.Extracted || results[0].Outcome.Difference == 0 {
		t.Errorf("result = %+v, want numeric mismatch", results[0])
	}
}
