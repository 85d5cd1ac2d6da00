package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pseudotest/pseudotest/pkg/match"
	"github.com/pseudotest/pseudotest/pkg/update"
)

func TestApply_RoundTrip(t *testing.T) {
	t.Parallel()
	f, _ := parse(t, fixture)
	root := f.Inputs[0].Matches
	energy := root.Children[0]
	fy := root.Children[1].Children[1]

	energy.Apply(update.Patch{Changes: []update.Change{
		{Key: match.KeyValue, Value: match.FloatLiteral("-42.5001", -42.5001)},
	}})
	fy.Apply(update.Patch{Changes: []update.Change{
		{Key: match.KeyTol, Value: match.List(match.Int(0), match.Float(0.00054))},
	}})

	if v, _ := energy.Params.Get(match.KeyValue); v.String() != "-42.5001" {
		t.Errorf("in-memory value = %v, want -42.5001", v)
	}

	out, err := f.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	text := string(out)
	for _, want := range []string{"# Regression test for the solver", "-42.5001", "# Ha", "0.00054"} {
		if !strings.Contains(text, want) {
			t.Errorf("encoded document lacks %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "-42.5000") {
		t.Errorf("encoded document still holds the old reference:\n%s", text)
	}

	reparsed, _ := parse(t, text)
	rroot := reparsed.Inputs[0].Matches
	if v, _ := rroot.Children[0].Params.Get(match.KeyValue); v.Kind() != match.KindFloat || v.String() != "-42.5001" {
		t.Errorf("reparsed value = %s %q, want float -42.5001", v.Kind(), v)
	}
	tol, _ := rroot.Children[1].Children[1].Params.Get(match.KeyTol)
	if !tol.Equal(match.List(match.Int(0), match.FloatLiteral("0.00054", 0.00054))) {
		t.Errorf("reparsed tol = %v, want [0, 0.00054]", tol)
	}
	if v, _ := rroot.Children[1].Params.Get(match.KeyTol); v.String() != "1.0e-4" {
		t.Errorf("group tol = %v, must be untouched", v)
	}
}

func TestEncodeValue_QuotesNumericStrings(t *testing.T) {
	t.Parallel()
	f, _ := parse(t, "Name: x\nInputs:\n  a.in:\n    Matches:\n      S: {file: o, grep: g, value: abc}\n")
	leaf := f.Inputs[0].Matches.Children[0]
	leaf.Apply(update.Patch{Changes: []update.Change{{Key: match.KeyValue, Value: match.String("123")}}})

	out, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	reparsed, _ := parse(t, string(out))
	v, _ := reparsed.Inputs[0].Matches.Children[0].Params.Get(match.KeyValue)
	if !v.Equal(match.String("123")) {
		t.Errorf("reparsed value = %s %q, want string 123", v.Kind(), v)
	}
}

func TestSave(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "case.yaml")
	dst := filepath.Join(dir, "updated.yaml")
	if err := os.WriteFile(src, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}
	f, _, err := Load(src, match.NewDefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	f.Inputs[0].Matches.Children[0].Apply(update.Patch{Changes: []update.Change{
		{Key: match.KeyTol, Value: match.Float(0.0038)},
	}})

	if err := f.Save(dst); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	original, _ := os.ReadFile(src)
	if string(original) != fixture {
		t.Error("Save(dst) modified the source file")
	}
	updated, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(updated), "tol: 0.0038") {
		t.Errorf("saved file lacks the new tolerance:\n%s", updated)
	}

	if err := f.Save(""); err != nil {
		t.Fatalf("Save(\"\") error = %v", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Save() changed permissions to %v", info.Mode().Perm())
	}
}
