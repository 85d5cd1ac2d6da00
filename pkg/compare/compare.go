// Package compare classifies calculated and reference values as numeric or
// textual and compares them, optionally within an absolute tolerance.
package compare

import (
	"fmt"
	"math"
)

// Outcome is the result of comparing one calculated value with its reference.
type Outcome struct {
	Passed bool

	// Numeric is true when both values parsed as numbers; otherwise the
	// values were compared as exact strings and the tolerance was ignored.
	Numeric bool

	Calculated string
	Reference  string

	CalculatedValue float64
	ReferenceValue  float64
	Difference      float64

	// Tolerance is the absolute tolerance applied (0 when none was given).
	Tolerance    float64
	HasTolerance bool

	// PrecisionWarning is set when Tolerance is finer than the resolution
	// of the printed calculated value. It never affects Passed.
	PrecisionWarning bool
	Precision        float64
}

// Compare compares calculated against reference. A nil tol requires exact
// numeric equality.
func Compare(calculated, reference string, tol *float64) Outcome {
	out := Outcome{
		Calculated: calculated,
		Reference:  reference,
	}
	if tol != nil {
		out.Tolerance = *tol
		out.HasTolerance = true
	}

	calc, calcOK := ParseNumber(calculated)
	ref, refOK := ParseNumber(reference)
	if !calcOK || !refOK {
		out.Passed = calculated == reference
		return out
	}

	out.Numeric = true
	out.CalculatedValue = calc
	out.ReferenceValue = ref
	if calc == ref {
		// covers equal infinities, whose difference would be NaN
		out.Difference = 0
	} else {
		out.Difference = math.Abs(calc - ref)
	}

	if out.HasTolerance && out.Tolerance != 0 {
		out.Passed = out.Difference <= out.Tolerance+representationSlack(calc, ref)
	} else {
		out.Passed = out.Difference == 0
	}

	if out.HasTolerance && out.Tolerance > 0 {
		out.Precision = Precision(calculated)
		out.PrecisionWarning = out.Tolerance < out.Precision
	}
	return out
}

// slackULPs is the number of units in the last place of the larger operand
// by which a difference may exceed the tolerance and still pass. Decimal
// literals such as -42.5001 and -42.5000 are not exactly representable, so
// their float64 difference can land a few ULPs above the decimal one.
const slackULPs = 8

func representationSlack(a, b float64) float64 {
	m := math.Max(math.Abs(a), math.Abs(b))
	if math.IsInf(m, 0) || math.IsNaN(m) {
		return 0
	}
	return slackULPs * (math.Nextafter(m, math.Inf(1)) - m)
}

// Deviation returns the difference relative to the reference in percent.
// The second result is false when the reference is too close to zero for a
// relative figure to be meaningful.
func (o Outcome) Deviation() (float64, bool) {
	if !o.Numeric || math.Abs(o.ReferenceValue) <= 1e-10 {
		return 0, false
	}
	return o.Difference / math.Abs(o.ReferenceValue) * 100, true
}

// RelativeTolerance returns the tolerance relative to the reference in percent.
func (o Outcome) RelativeTolerance() (float64, bool) {
	if !o.Numeric || !o.HasTolerance || math.Abs(o.ReferenceValue) <= 1e-10 {
		return 0, false
	}
	return o.Tolerance / math.Abs(o.ReferenceValue) * 100, true
}

// String summarizes the outcome for log and error messages.
func (o Outcome) String() string {
	verdict := "fail"
	if o.Passed {
		verdict = "pass"
	}
	if !o.Numeric {
		return fmt.Sprintf("%s: calculated %q, reference %q", verdict, o.Calculated, o.Reference)
	}
	if o.HasTolerance {
		return fmt.Sprintf("%s: calculated %s, reference %s, difference %g, tolerance %g",
			verdict, o.Calculated, o.Reference, o.Difference, o.Tolerance)
	}
	return fmt.Sprintf("%s: calculated %s, reference %s, difference %g", verdict, o.Calculated, o.Reference, o.Difference)
}
