package match

import (
	"github.com/pseudotest/pseudotest/pkg/compare"
)

// Result is the verdict for one element of a match.
type Result struct {
	Element      Element
	Registration Registration
	Extraction   Extraction
	Outcome      compare.Outcome
	// Err made the element unevaluable. It is usually a configuration
	// error; see IsConfigError.
	Err error
}

// Passed reports whether the element was extracted and matched its reference.
func (r Result) Passed() bool {
	return r.Err == nil && r.Extraction.Extracted && r.Outcome.Passed
}

// Evaluate dispatches and compares every element of exp in index order.
// An error in one element is recorded on its Result and does not stop the
// others.
func (r *Registry) Evaluate(root string, exp Expansion) []Result {
	results := make([]Result, 0, exp.Len())
	for _, elem := range exp.Elements {
		results = append(results, r.evaluateElement(root, elem))
	}
	return results
}

func (r *Registry) evaluateElement(root string, elem Element) Result {
	res := Result{Element: elem}
	reg, ext, err := r.Dispatch(root, elem.Definition)
	res.Registration = reg
	if err != nil {
		res.Err = err
		return res
	}
	res.Extraction = ext
	if !ext.Extracted {
		return res
	}
	tol, err := elem.Definition.Tolerance()
	if err != nil {
		res.Err = err
		return res
	}
	res.Outcome = compare.Compare(ext.Calculated, ext.Reference.String(), tol)
	return res
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}
