package compare

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// fortranExponent matches Fortran double-precision literals such as
// 1.23D-04, which use D instead of E for the exponent.
var fortranExponent = regexp.MustCompile(`^([+-]?(?:\d+\.?\d*|\.\d+))[dD]([+-]?\d+)$`)

// scientific splits a normalized literal into mantissa and exponent.
var scientific = regexp.MustCompile(`^[+-]?(\d*\.?\d*)[eE]([+-]?\d+)$`)

// normalize trims s and rewrites a Fortran exponent to standard notation.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	if m := fortranExponent.FindStringSubmatch(s); m != nil {
		return m[1] + "e" + m[2]
	}
	return s
}

// ParseNumber parses s as a floating-point literal. It accepts standard
// notation, the special tokens nan, inf, +inf and -inf in any case, and
// Fortran D exponents. Literals beyond the float64 range parse to ±Inf.
// A sign before nan is accepted and ignored.
func ParseNumber(s string) (float64, bool) {
	clean := normalize(s)
	unsigned := clean
	if strings.HasPrefix(unsigned, "+") || strings.HasPrefix(unsigned, "-") {
		unsigned = unsigned[1:]
	}
	if strings.EqualFold(unsigned, "nan") {
		return math.NaN(), true
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// IsNumber reports whether s is a numeric literal in the sense of ParseNumber.
func IsNumber(s string) bool {
	_, ok := ParseNumber(s)
	return ok
}

// Precision returns the smallest difference the printed form of s can
// resolve: 10^-d for a literal with d fractional digits, scaled by the
// exponent for scientific notation, and 1 for integer literals. Non-numeric
// input yields 0.
func Precision(s string) float64 {
	if !IsNumber(s) {
		return 0
	}
	clean := normalize(s)

	if m := scientific.FindStringSubmatch(clean); m != nil {
		mantissa := m[1]
		exponent, err := strconv.Atoi(m[2])
		if err != nil {
			return 0
		}
		mantissaPrecision := 1.0
		if _, frac, ok := strings.Cut(mantissa, "."); ok {
			mantissaPrecision = math.Pow10(-len(frac))
		}
		return mantissaPrecision * math.Pow10(exponent)
	}

	if _, frac, ok := strings.Cut(clean, "."); ok {
		return math.Pow10(-len(frac))
	}
	return 1
}

// ComputeTolerance returns a tolerance covering delta with a 10% margin,
// rounded up to two significant figures (0.0034 gives 0.0038). A zero
// delta yields zero; non-finite input is returned unchanged.
func ComputeTolerance(delta float64) float64 {
	delta = math.Abs(delta)
	if delta == 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return delta
	}
	padded := delta * 1.1
	magnitude := int(math.Floor(math.Log10(padded)))
	factor := math.Pow10(magnitude - 1)
	raw := math.Ceil(padded/factor) * factor

	digits := 1 - magnitude
	if digits <= 0 {
		return math.Round(raw)
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(raw, 'f', digits, 64), 64)
	if err != nil {
		return raw
	}
	return rounded
}
