package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/pseudotest/pseudotest/internal/errors"
)

// Parameter names understood by the built-in handlers.
const (
	KeyFile          = "file"
	KeyDirectory     = "directory"
	KeyGrep          = "grep"
	KeyLine          = "line"
	KeyField         = "field"
	KeyColumn        = "column"
	KeyFieldRe       = "field_re"
	KeyFieldIm       = "field_im"
	KeyValue         = "value"
	KeyCount         = "count"
	KeySize          = "size"
	KeyFileIsPresent = "file_is_present"
	KeyCountFiles    = "count_files"
	KeyTol           = "tol"
	KeyProtected     = "protected"
	KeyMatches       = "matches"
)

// Definition is an ordered mapping from parameter name to value describing
// one check. The zero value is an empty definition ready to use.
type Definition struct {
	keys   []string
	values map[string]Value
}

// NewDefinition returns a definition holding the given key/value pairs in order.
func NewDefinition(pairs ...Pair) *Definition {
	d := &Definition{}
	for _, p := range pairs {
		d.Set(p.Key, p.Value)
	}
	return d
}

// Pair is a single parameter.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for constructing a Pair.
func P(key string, value Value) Pair { return Pair{Key: key, Value: value} }

// Set assigns key. New keys are appended; existing keys keep their position.
func (d *Definition) Set(key string, v Value) {
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get returns the value of key.
func (d *Definition) Get(key string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	v, ok := d.values[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Definition) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key.
func (d *Definition) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the parameter names in insertion order.
func (d *Definition) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

// Len returns the number of parameters.
func (d *Definition) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns an independent copy of d.
func (d *Definition) Clone() *Definition {
	c := &Definition{}
	if d == nil {
		return c
	}
	for _, k := range d.keys {
		c.Set(k, d.values[k])
	}
	return c
}

// Merge returns a new definition with the parameters of d overlaid by those
// of over. Keys of d keep their order; keys only in over follow.
func (d *Definition) Merge(over *Definition) *Definition {
	m := d.Clone()
	if over == nil {
		return m
	}
	for _, k := range over.keys {
		m.Set(k, over.values[k])
	}
	return m
}

func (d *Definition) String() string {
	if d == nil {
		return "{}"
	}
	parts := make([]string, 0, len(d.keys))
	for _, k := range d.keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, d.values[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Str returns key as a string. Any scalar qualifies.
func (d *Definition) Str(key string) (string, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return "", false, nil
	}
	if v.IsList() {
		return "", true, errors.Configf("parameter %q must be a scalar, got a list", key)
	}
	return v.String(), true, nil
}

// Int returns key as an integer.
func (d *Definition) Int(key string) (int, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, isInt := v.AsInt()
	if !isInt {
		return 0, true, errors.Configf("parameter %q must be an integer, got %s %q", key, v.Kind(), v.String())
	}
	return int(n), true, nil
}

// Float returns key as a float.
func (d *Definition) Float(key string) (float64, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false, nil
	}
	f, isNum := v.AsFloat()
	if !isNum {
		return 0, true, errors.Configf("parameter %q must be a number, got %s %q", key, v.Kind(), v.String())
	}
	return f, true, nil
}

// Bool returns key as a boolean.
func (d *Definition) Bool(key string) (bool, bool, error) {
	v, ok := d.Get(key)
	if !ok {
		return false, false, nil
	}
	b, isBool := v.AsBool()
	if !isBool {
		return false, true, errors.Configf("parameter %q must be a boolean, got %s %q", key, v.Kind(), v.String())
	}
	return b, true, nil
}

// Protected reports whether the definition is exempt from updates.
// Malformed values count as unprotected.
func (d *Definition) Protected() bool {
	b, _, err := d.Bool(KeyProtected)
	return err == nil && b
}

// Tolerance returns the absolute tolerance, or nil when none is set.
func (d *Definition) Tolerance() (*float64, error) {
	f, ok, err := d.Float(KeyTol)
	if err != nil || !ok {
		return nil, err
	}
	if f < 0 || math.IsNaN(f) {
		return nil, errors.Configf("parameter %q must be a non-negative number, got %s", KeyTol, FormatFloat(f))
	}
	return &f, nil
}

// Spec is the typed view of a scalar definition. Built-in parameters get
// typed fields; anything else lands in Extra for extension handlers.
type Spec struct {
	File      *string
	Directory *string
	Grep      *string

	Line    *int
	Field   *int
	Column  *int
	FieldRe *int
	FieldIm *int

	Value      *Value
	Count      *Value
	Size       *Value
	CountFiles *Value

	FileIsPresent *string
	Tol           *float64
	Protected     bool
	Label         *string

	Extra map[string]Value
}

// Spec decodes d into its typed view. Type errors are configuration errors.
func (d *Definition) Spec() (Spec, error) {
	var s Spec
	strField := map[string]**string{
		KeyFile:          &s.File,
		KeyDirectory:     &s.Directory,
		KeyGrep:          &s.Grep,
		KeyFileIsPresent: &s.FileIsPresent,
		KeyMatches:       &s.Label,
	}
	intField := map[string]**int{
		KeyLine:    &s.Line,
		KeyField:   &s.Field,
		KeyColumn:  &s.Column,
		KeyFieldRe: &s.FieldRe,
		KeyFieldIm: &s.FieldIm,
	}
	refField := map[string]**Value{
		KeyValue:      &s.Value,
		KeyCount:      &s.Count,
		KeySize:       &s.Size,
		KeyCountFiles: &s.CountFiles,
	}

	for _, key := range d.Keys() {
		v := d.values[key]
		if v.IsList() && key == KeyMatches {
			continue
		}
		if v.IsList() {
			return Spec{}, errors.Configf("parameter %q is a list; broadcast definitions must be expanded first", key)
		}
		if dst, ok := strField[key]; ok {
			str, _, err := d.Str(key)
			if err != nil {
				return Spec{}, err
			}
			*dst = &str
			continue
		}
		if dst, ok := intField[key]; ok {
			n, _, err := d.Int(key)
			if err != nil {
				return Spec{}, err
			}
			*dst = &n
			continue
		}
		if dst, ok := refField[key]; ok {
			val := v
			*dst = &val
			continue
		}
		switch key {
		case KeyTol:
			tol, err := d.Tolerance()
			if err != nil {
				return Spec{}, err
			}
			s.Tol = tol
		case KeyProtected:
			b, _, err := d.Bool(key)
			if err != nil {
				return Spec{}, err
			}
			s.Protected = b
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]Value)
			}
			s.Extra[key] = v
		}
	}
	return s, nil
}
