package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/pseudotest/pseudotest/pkg/compare"
)

// ValueKind identifies the dynamic type of a parameter value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a match parameter value: a scalar string, integer, float or
// boolean, or a list of scalars (the broadcast form).
//
// Floats remember the literal they were written as so that rewriting a
// reference can keep its formatting.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a float value with no remembered literal.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// FloatLiteral returns a float value written as text.
func FloatLiteral(text string, f float64) Value { return Value{kind: KindFloat, s: text, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value. Items must be scalars.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind returns the dynamic type of v.
func (v Value) Kind() ValueKind { return v.kind }

// IsList reports whether v is a list.
func (v Value) IsList() bool { return v.kind == KindList }

// Len returns the number of items of a list, and 1 for a scalar.
func (v Value) Len() int {
	if v.kind == KindList {
		return len(v.list)
	}
	return 1
}

// Index returns the i-th item of a list. Scalars return themselves for any index.
func (v Value) Index(i int) Value {
	if v.kind != KindList {
		return v
	}
	return v.list[i]
}

// Items returns a copy of the items of a list, or nil for a scalar.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// Literal returns the source text of a float, or "" when none is known.
func (v Value) Literal() string {
	if v.kind == KindFloat {
		return v.s
	}
	return ""
}

// AsInt returns v as an integer. Floats qualify only when integral; strings
// when they parse as integers.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) && math.Abs(v.f) < 1<<53 {
			return int64(v.f), true
		}
	case KindString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// AsFloat returns v as a float. Numeric strings, including Fortran exponent
// notation, qualify.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		return compare.ParseNumber(v.s)
	}
	return 0, false
}

// AsBool returns v as a boolean.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// String renders v the way it is compared against calculated values.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		if v.s != "" {
			return v.s
		}
		return FormatFloat(v.f)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// Equal reports whether v and other have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindInt:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return v.s == other.s
		}
		return v.f == other.f && v.s == other.s
	case KindBool:
		return v.b == other.b
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// FormatFloat renders f in its shortest round-tripping form, always
// distinguishable from an integer.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// CastLike converts the calculated text to the type of like. A float keeps
// the number of decimal places of like's literal when the value survives
// that formatting exactly. Text that cannot take like's type stays a string.
func CastLike(text string, like Value) Value {
	text = strings.TrimSpace(text)
	switch like.kind {
	case KindFloat:
		f, ok := compare.ParseNumber(text)
		if !ok {
			return String(text)
		}
		if places, ok := decimalPlaces(like.s); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			formatted := strconv.FormatFloat(f, 'f', places, 64)
			if back, err := strconv.ParseFloat(formatted, 64); err == nil && back == f {
				return FloatLiteral(formatted, f)
			}
		}
		return FloatLiteral(FormatFloat(f), f)
	case KindInt:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Int(n)
		}
		if f, ok := compare.ParseNumber(text); ok {
			return FloatLiteral(FormatFloat(f), f)
		}
		return String(text)
	case KindBool:
		if b, ok := String(text).AsBool(); ok {
			return Bool(b)
		}
		return String(text)
	default:
		return String(text)
	}
}

// decimalPlaces returns the number of fractional digits of a plain decimal
// literal such as "-42.5000". Exponent forms and special values report false.
func decimalPlaces(literal string) (int, bool) {
	literal = strings.TrimSpace(literal)
	if literal == "" || strings.ContainsAny(literal, "eEdD") {
		return 0, false
	}
	dot := strings.IndexByte(literal, '.')
	if dot < 0 {
		return 0, false
	}
	frac := literal[dot+1:]
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	return len(frac), true
}
