package match

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pseudotest/pseudotest/internal/errors"
)

// Element is one scalar check produced by expanding a definition.
type Element struct {
	Index      int
	Label      string
	Definition *Definition
}

// Expansion is the ordered set of elements derived from one definition.
type Expansion struct {
	Label    string
	Elements []Element
	// Keys lists the parameters that were lists, in definition order.
	Keys []string
}

// Broadcast reports whether the source definition had list parameters.
func (e Expansion) Broadcast() bool {
	return len(e.Keys) > 0
}

// Len returns the number of elements.
func (e Expansion) Len() int {
	return len(e.Elements)
}

// Expand splits def into scalar elements. List parameters must all have the
// same length N and yield N elements; scalar parameters are copied into
// each. Element labels come from a "matches" list when given, else from the
// element index. A definition without lists yields itself, labelled label.
func Expand(def *Definition, label string) (Expansion, error) {
	var listKeys []string
	for _, k := range def.Keys() {
		v, _ := def.Get(k)
		if v.IsList() {
			listKeys = append(listKeys, k)
		}
	}
	if len(listKeys) == 0 {
		return Expansion{
			Label:    label,
			Elements: []Element{{Index: 0, Label: label, Definition: def.Clone()}},
		}, nil
	}

	n := -1
	mismatch := false
	for _, k := range listKeys {
		v, _ := def.Get(k)
		if v.Len() == 0 {
			return Expansion{}, errors.MatchError(errors.KindConfig, "", label,
				fmt.Sprintf("broadcast parameter %q is an empty list", k))
		}
		if n < 0 {
			n = v.Len()
		} else if v.Len() != n {
			mismatch = true
		}
	}
	if mismatch {
		parts := make([]string, len(listKeys))
		for i, k := range listKeys {
			v, _ := def.Get(k)
			parts[i] = fmt.Sprintf("%s has %d elements", k, v.Len())
		}
		return Expansion{}, errors.MatchError(errors.KindConfig, "", label,
			"broadcast length mismatch: "+strings.Join(parts, ", "))
	}

	labels, explicit := def.Get(KeyMatches)
	elements := make([]Element, n)
	for i := 0; i < n; i++ {
		elem := &Definition{}
		for _, k := range def.Keys() {
			if k == KeyMatches {
				continue
			}
			v, _ := def.Get(k)
			elem.Set(k, v.Index(i))
		}
		elemLabel := strconv.Itoa(i)
		if explicit && labels.IsList() {
			elemLabel = labels.Index(i).String()
		}
		elements[i] = Element{Index: i, Label: elemLabel, Definition: elem}
	}
	return Expansion{Label: label, Elements: elements, Keys: listKeys}, nil
}
