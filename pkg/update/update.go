// Package update computes rewrites of match definitions that make failing
// checks pass: either widening the tolerance or replacing the reference
// with the calculated value.
//
// Plan is pure. It inspects the unexpanded definition and the per-element
// results and returns a Patch; nothing is modified until the caller applies
// it, so a match is either updated as a whole or left untouched.
package update

import (
	"fmt"
	"math"
	"strings"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/pkg/compare"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// Mode selects what an update rewrites.
type Mode int

const (
	// ModeTolerance sets tol so that failing numeric checks pass.
	ModeTolerance Mode = iota
	// ModeReference replaces reference values with calculated ones.
	ModeReference
)

func (m Mode) String() string {
	switch m {
	case ModeTolerance:
		return "tolerance"
	case ModeReference:
		return "reference"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "tolerance" or "reference".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tolerance", "tol":
		return ModeTolerance, nil
	case "reference", "ref":
		return ModeReference, nil
	}
	return 0, errors.Configf("unknown update mode %q (expected tolerance or reference)", s)
}

// Change assigns Value to Key.
type Change struct {
	Key   string
	Value match.Value
}

// Patch is an ordered set of changes to one match definition.
type Patch struct {
	Changes []Change
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Changes) == 0
}

// Keys returns the keys the patch assigns.
func (p Patch) Keys() []string {
	keys := make([]string, len(p.Changes))
	for i, c := range p.Changes {
		keys[i] = c.Key
	}
	return keys
}

// Apply writes the changes into def.
func (p Patch) Apply(def *match.Definition) {
	for _, c := range p.Changes {
		def.Set(c.Key, c.Value)
	}
}

// Plan computes the update for one match. target is the definition as
// written in the test file, before inheritance and expansion; results holds
// one entry per expanded element in index order.
//
// Protected matches, matches whose reference is not updatable and matches
// without failures yield an empty patch. Any element that failed with a
// configuration error, or a list whose length disagrees with the number of
// elements, rejects the whole match with an error.
func Plan(target *match.Definition, results []match.Result, mode Mode) (Patch, error) {
	if len(results) == 0 || target.Protected() {
		return Patch{}, nil
	}
	for _, r := range results {
		if r.Err != nil {
			return Patch{}, r.Err
		}
		if r.Element.Definition.Protected() {
			return Patch{}, nil
		}
	}

	reg := results[0].Registration
	if key := results[0].Extraction.ReferenceKey; key != "" && !reg.Updatable(key) {
		return Patch{}, nil
	}

	switch mode {
	case ModeTolerance:
		return planTolerance(target, results)
	case ModeReference:
		return planReference(target, reg, results)
	default:
		return Patch{}, errors.Internalf("unknown update mode %v", mode)
	}
}

func planTolerance(target *match.Definition, results []match.Result) (Patch, error) {
	updates := make(map[int]match.Value)
	for i, r := range results {
		if r.Passed() || !r.Extraction.Extracted || !r.Outcome.Numeric {
			continue
		}
		d := r.Outcome.Difference
		if d <= 0 || math.IsInf(d, 0) || math.IsNaN(d) {
			continue
		}
		updates[i] = match.Float(compare.ComputeTolerance(d))
	}
	if len(updates) == 0 {
		return Patch{}, nil
	}

	n := len(results)
	current, hasTol := target.Get(match.KeyTol)
	if n == 1 && !(hasTol && current.IsList()) {
		return Patch{Changes: []Change{{Key: match.KeyTol, Value: updates[0]}}}, nil
	}

	items, err := seed(match.KeyTol, current, hasTol, n, func(i int) match.Value {
		if v, ok := results[i].Element.Definition.Get(match.KeyTol); ok {
			return v
		}
		return match.Int(0)
	})
	if err != nil {
		return Patch{}, err
	}
	for i, v := range updates {
		items[i] = v
	}
	return Patch{Changes: []Change{{Key: match.KeyTol, Value: match.List(items...)}}}, nil
}

func planReference(target *match.Definition, reg match.Registration, results []match.Result) (Patch, error) {
	key, ok := match.ReferenceKeyOf(reg, target)
	if !ok || !reg.Updatable(key) {
		// reference inherited from an enclosing group or absent
		return Patch{}, nil
	}

	var failing []int
	for i, r := range results {
		if !r.Passed() && r.Extraction.Extracted {
			failing = append(failing, i)
		}
	}
	if len(failing) == 0 {
		return Patch{}, nil
	}

	current, _ := target.Get(key)
	n := len(results)
	if n == 1 && !current.IsList() {
		return Patch{Changes: []Change{{Key: key, Value: match.CastLike(results[0].Extraction.Calculated, current)}}}, nil
	}

	items, err := seed(key, current, true, n, nil)
	if err != nil {
		return Patch{}, err
	}
	for _, i := range failing {
		items[i] = match.CastLike(results[i].Extraction.Calculated, items[i])
	}
	return Patch{Changes: []Change{{Key: key, Value: match.List(items...)}}}, nil
}

// seed returns n per-element values for key: the items of a list of length
// n, a scalar repeated n times, or fallback(i) when the key is absent.
func seed(key string, current match.Value, present bool, n int, fallback func(int) match.Value) ([]match.Value, error) {
	items := make([]match.Value, n)
	switch {
	case present && current.IsList():
		if current.Len() != n {
			return nil, errors.Configf("cannot update %q: list has %d elements, match has %d", key, current.Len(), n)
		}
		copy(items, current.Items())
	case present:
		for i := range items {
			items[i] = current
		}
	default:
		for i := range items {
			items[i] = fallback(i)
		}
	}
	return items, nil
}
