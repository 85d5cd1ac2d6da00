package match

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/pkg/compare"
	"github.com/pseudotest/pseudotest/pkg/extract"
)

func builtinRegistrations() []Registration {
	has := func(keys ...string) Predicate {
		return func(d *Definition) bool {
			for _, k := range keys {
				if !d.Has(k) {
					return false
				}
			}
			return true
		}
	}
	return []Registration{
		{
			Name:          "count",
			Kind:          CheckCount,
			Predicate:     has(KeyCount, KeyGrep),
			Handler:       handleCount,
			Keys:          []string{KeyFile, KeyGrep, KeyCount},
			ReferenceKeys: []string{KeyCount},
		},
		{
			Name: "complex_magnitude",
			Kind: CheckComplexMagnitude,
			Predicate: func(d *Definition) bool {
				return (d.Has(KeyFieldRe) || d.Has(KeyFieldIm)) && d.Has(KeyFile) &&
					(d.Has(KeyGrep) || d.Has(KeyLine))
			},
			Handler:       handleComplexMagnitude,
			Keys:          []string{KeyFile, KeyGrep, KeyLine, KeyFieldRe, KeyFieldIm, KeyValue},
			ReferenceKeys: []string{KeyValue},
		},
		{
			Name:          "grep_line",
			Kind:          CheckGrepLine,
			Predicate:     has(KeyLine, KeyGrep),
			Handler:       handleGrepLine,
			Keys:          []string{KeyFile, KeyGrep, KeyLine, KeyField, KeyColumn, KeyValue},
			ReferenceKeys: []string{KeyValue},
		},
		{
			Name:          "line",
			Kind:          CheckLine,
			Predicate:     has(KeyLine),
			Handler:       handleLine,
			Keys:          []string{KeyFile, KeyLine, KeyField, KeyColumn, KeyValue},
			ReferenceKeys: []string{KeyValue},
		},
		{
			Name:          "grep",
			Kind:          CheckGrep,
			Predicate:     has(KeyGrep),
			Handler:       handleGrep,
			Keys:          []string{KeyFile, KeyGrep, KeyField, KeyColumn, KeyValue},
			ReferenceKeys: []string{KeyValue},
		},
		{
			Name:          "size",
			Kind:          CheckSize,
			Predicate:     has(KeySize),
			Handler:       handleSize,
			Keys:          []string{KeyFile, KeySize},
			ReferenceKeys: []string{KeySize},
		},
		{
			Name:             "file_is_present",
			Kind:             CheckFilePresent,
			Predicate:        has(KeyFileIsPresent, KeyDirectory),
			Handler:          handleFileIsPresent,
			Keys:             []string{KeyDirectory, KeyFileIsPresent},
			ReferenceKeys:    []string{KeyFileIsPresent},
			NonUpdatableKeys: []string{KeyFileIsPresent},
		},
		{
			Name:          "count_files",
			Kind:          CheckCountFiles,
			Predicate:     has(KeyCountFiles, KeyDirectory),
			Handler:       handleCountFiles,
			Keys:          []string{KeyDirectory, KeyCountFiles},
			ReferenceKeys: []string{KeyCountFiles},
		},
	}
}

func handleCount(root string, def *Definition) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	lines, reason, err := readLines(root, spec)
	if err != nil {
		return Extraction{}, err
	}
	if reason != "" {
		return Failed(reason, *spec.Count, KeyCount), nil
	}
	n := extract.CountPattern(lines, *spec.Grep)
	return Extraction{
		Calculated:   strconv.Itoa(n),
		Extracted:    true,
		Reference:    *spec.Count,
		ReferenceKey: KeyCount,
	}, nil
}

func handleComplexMagnitude(root string, def *Definition) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	if spec.FieldRe == nil || spec.FieldIm == nil {
		return Extraction{}, errors.Configf("complex magnitude requires both %q and %q", KeyFieldRe, KeyFieldIm)
	}
	ref, err := requireValue(spec)
	if err != nil {
		return Extraction{}, err
	}
	lines, reason, err := readLines(root, spec)
	if err != nil {
		return Extraction{}, err
	}
	if reason != "" {
		return Failed(reason, ref, KeyValue), nil
	}

	var line string
	if spec.Grep != nil {
		offset := 0
		if spec.Line != nil {
			offset = *spec.Line
		}
		line, reason = locatePattern(lines, *spec.Grep, offset)
	} else {
		line, reason = locateLine(lines, *spec.Line)
	}
	if reason != "" {
		return Failed(reason, ref, KeyValue), nil
	}

	re, reason := numericField(line, *spec.FieldRe)
	if reason == "" {
		var im float64
		im, reason = numericField(line, *spec.FieldIm)
		if reason == "" {
			return Extraction{
				Calculated:   FormatFloat(math.Hypot(re, im)),
				Extracted:    true,
				Reference:    ref,
				ReferenceKey: KeyValue,
			}, nil
		}
	}
	return Failed(reason, ref, KeyValue), nil
}

func handleGrepLine(root string, def *Definition) (Extraction, error) {
	return handleLineSelection(root, def, func(lines []string, spec Spec) (string, string) {
		return locatePattern(lines, *spec.Grep, *spec.Line)
	})
}

func handleLine(root string, def *Definition) (Extraction, error) {
	return handleLineSelection(root, def, func(lines []string, spec Spec) (string, string) {
		return locateLine(lines, *spec.Line)
	})
}

func handleGrep(root string, def *Definition) (Extraction, error) {
	return handleLineSelection(root, def, func(lines []string, spec Spec) (string, string) {
		return locatePattern(lines, *spec.Grep, 0)
	})
}

// handleLineSelection reads the target file, selects a line with locate and
// extracts the field, column or whole line from it.
func handleLineSelection(root string, def *Definition, locate func([]string, Spec) (string, string)) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	ref, err := requireValue(spec)
	if err != nil {
		return Extraction{}, err
	}
	lines, reason, err := readLines(root, spec)
	if err != nil {
		return Extraction{}, err
	}
	if reason != "" {
		return Failed(reason, ref, KeyValue), nil
	}
	line, reason := locate(lines, spec)
	if reason != "" {
		return Failed(reason, ref, KeyValue), nil
	}
	token, reason := selectToken(line, spec)
	if reason != "" {
		return Failed(reason, ref, KeyValue), nil
	}
	return Extraction{Calculated: token, Extracted: true, Reference: ref, ReferenceKey: KeyValue}, nil
}

func handleSize(root string, def *Definition) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	if spec.File == nil {
		return Extraction{}, errors.Configf("size check requires %q", KeyFile)
	}
	info, statErr := os.Stat(filepath.Join(root, *spec.File))
	if statErr != nil {
		return Failed(fmt.Sprintf("cannot stat %s: %v", *spec.File, unwrapPath(statErr)), *spec.Size, KeySize), nil
	}
	return Extraction{
		Calculated:   strconv.FormatInt(info.Size(), 10),
		Extracted:    true,
		Reference:    *spec.Size,
		ReferenceKey: KeySize,
	}, nil
}

func handleFileIsPresent(root string, def *Definition) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	dir, reason := openDirectory(root, *spec.Directory)
	if reason != "" {
		return Failed(reason, Bool(true), KeyFileIsPresent), nil
	}
	present := false
	if info, err := os.Stat(filepath.Join(dir, *spec.FileIsPresent)); err == nil && info.Mode().IsRegular() {
		present = true
	}
	return Extraction{
		Calculated:   strconv.FormatBool(present),
		Extracted:    true,
		Reference:    Bool(true),
		ReferenceKey: KeyFileIsPresent,
	}, nil
}

func handleCountFiles(root string, def *Definition) (Extraction, error) {
	spec, err := def.Spec()
	if err != nil {
		return Extraction{}, err
	}
	dir, reason := openDirectory(root, *spec.Directory)
	if reason != "" {
		return Failed(reason, *spec.CountFiles, KeyCountFiles), nil
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		return Failed(fmt.Sprintf("cannot list directory %s: %v", *spec.Directory, unwrapPath(readErr)), *spec.CountFiles, KeyCountFiles), nil
	}
	n := 0
	for _, entry := range entries {
		// Stat follows symlinks so links to regular files count.
		if info, err := os.Stat(filepath.Join(dir, entry.Name())); err == nil && info.Mode().IsRegular() {
			n++
		}
	}
	return Extraction{
		Calculated:   strconv.Itoa(n),
		Extracted:    true,
		Reference:    *spec.CountFiles,
		ReferenceKey: KeyCountFiles,
	}, nil
}

func requireValue(spec Spec) (Value, error) {
	if spec.Value == nil {
		return Value{}, errors.Configf("content check requires a %q reference", KeyValue)
	}
	return *spec.Value, nil
}

// readLines reads the target file. A non-empty reason reports an unreadable
// file; an error reports a malformed definition.
func readLines(root string, spec Spec) ([]string, string, error) {
	if spec.File == nil {
		return nil, "", errors.Configf("content check requires %q", KeyFile)
	}
	data, err := os.ReadFile(filepath.Join(root, *spec.File))
	if err != nil {
		return nil, fmt.Sprintf("cannot read %s: %v", *spec.File, unwrapPath(err)), nil
	}
	content := strings.ToValidUTF8(string(data), "\uFFFD")
	return extract.SplitLines(content), "", nil
}

func openDirectory(root, name string) (string, string) {
	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Sprintf("directory %s not found", name)
	}
	if !info.IsDir() {
		return "", fmt.Sprintf("%s is not a directory", name)
	}
	return dir, ""
}

func locatePattern(lines []string, pattern string, offset int) (string, string) {
	i, ok := extract.PatternIndex(lines, pattern)
	if !ok {
		return "", fmt.Sprintf("pattern %q not found", pattern)
	}
	line, ok := extract.FindPatternLine(lines, pattern, offset)
	if !ok {
		return "", fmt.Sprintf("line %d lines after pattern %q (line %d) is out of range", offset, pattern, i+1)
	}
	return line, ""
}

func locateLine(lines []string, n int) (string, string) {
	line, ok := extract.LineAt(lines, n)
	if !ok {
		return "", fmt.Sprintf("line %d is out of range (file has %d lines)", n, len(lines))
	}
	return line, ""
}

func selectToken(line string, spec Spec) (string, string) {
	switch {
	case spec.Field != nil:
		token, ok := extract.Field(line, *spec.Field)
		if !ok {
			return "", fmt.Sprintf("field %d is out of range in line %q", *spec.Field, line)
		}
		return token, ""
	case spec.Column != nil:
		token, ok := extract.Column(line, *spec.Column)
		if !ok {
			return "", fmt.Sprintf("column %d is beyond the end of line %q", *spec.Column, line)
		}
		return token, ""
	default:
		return line, ""
	}
}

func numericField(line string, n int) (float64, string) {
	token, ok := extract.Field(line, n)
	if !ok {
		return 0, fmt.Sprintf("field %d is out of range in line %q", n, line)
	}
	f, ok := compare.ParseNumber(token)
	if !ok {
		return 0, fmt.Sprintf("field %d (%q) is not a number", n, token)
	}
	return f, ""
}

// unwrapPath drops the path from *fs.PathError; callers name the file themselves.
func unwrapPath(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
