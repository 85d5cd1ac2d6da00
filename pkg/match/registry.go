// Package match resolves match definitions to check handlers, expands
// broadcast definitions and evaluates them against a working directory.
//
// Handlers are tried in registration order and the first whose predicate
// accepts a definition wins. The built-in check kinds are registered in a
// fixed precedence order (see [CheckKind]); handlers registered later have
// lower priority than all of them.
package match

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pseudotest/pseudotest/internal/errors"
)

// CheckKind enumerates the built-in check kinds in precedence order.
type CheckKind int

const (
	CheckCount CheckKind = iota
	CheckComplexMagnitude
	CheckGrepLine
	CheckLine
	CheckGrep
	CheckSize
	CheckFilePresent
	CheckCountFiles
	// CheckCustom marks handlers registered by embedding programs.
	CheckCustom
)

func (k CheckKind) String() string {
	switch k {
	case CheckCount:
		return "count"
	case CheckComplexMagnitude:
		return "complex_magnitude"
	case CheckGrepLine:
		return "grep_line"
	case CheckLine:
		return "line"
	case CheckGrep:
		return "grep"
	case CheckSize:
		return "size"
	case CheckFilePresent:
		return "file_is_present"
	case CheckCountFiles:
		return "count_files"
	default:
		return "custom"
	}
}

// Predicate decides whether a handler applies to a definition.
type Predicate func(def *Definition) bool

// Handler extracts the calculated value for def from the working directory
// root and reports the reference it must be compared with.
//
// A target that cannot be read is not an error: the handler returns an
// Extraction with Extracted false. A malformed definition is reported with
// [ConfigError] and fails only that match. Any other error aborts the run.
type Handler func(root string, def *Definition) (Extraction, error)

// Extraction is the output of a handler.
type Extraction struct {
	Calculated string
	Extracted  bool
	// Reason explains a failed extraction.
	Reason string

	Reference    Value
	ReferenceKey string
}

// Failed returns an Extraction for a target that could not be read.
func Failed(reason string, reference Value, referenceKey string) Extraction {
	return Extraction{Reason: reason, Reference: reference, ReferenceKey: referenceKey}
}

// Registration binds a predicate and handler with the parameter names the
// handler understands.
type Registration struct {
	Name      string
	Kind      CheckKind
	Predicate Predicate
	Handler   Handler

	// Keys are all parameter names the handler reads.
	Keys []string
	// ReferenceKeys hold expected values, in lookup order.
	ReferenceKeys []string
	// InternalKeys never appear in reports.
	InternalKeys []string
	// NonUpdatableKeys are reference keys that update mode must not rewrite.
	NonUpdatableKeys []string
}

// commonKeys are recognized for every handler.
var commonKeys = []string{KeyFile, KeyDirectory, KeyTol, KeyProtected, KeyMatches}

// Registry is an ordered list of registrations. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	regs []Registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry holding the built-in handlers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, reg := range builtinRegistrations() {
		if err := r.Register(reg); err != nil {
			panic(fmt.Sprintf("registering built-in handler %q: %v", reg.Name, err))
		}
	}
	return r
}

// Default is the process-wide registry used by the pseudotest commands.
var Default = NewDefaultRegistry()

// Register appends reg to the Default registry.
func Register(reg Registration) error {
	return Default.Register(reg)
}

// Register appends reg. It has lower priority than every earlier registration.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return errors.Internalf("handler registration requires a name")
	}
	if reg.Predicate == nil || reg.Handler == nil {
		return errors.Internalf("handler %q requires a predicate and a handler", reg.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.regs {
		if existing.Name == reg.Name {
			return errors.Internalf("handler %q is already registered", reg.Name)
		}
	}
	r.regs = append(r.regs, reg)
	return nil
}

// Registrations returns the registrations in precedence order.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Registration(nil), r.regs...)
}

// Resolve returns the first registration whose predicate accepts def.
func (r *Registry) Resolve(def *Definition) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs {
		if reg.Predicate(def) {
			return reg, nil
		}
	}
	return Registration{}, errors.Configf("no registered match handler accepts parameters %s", def)
}

// Dispatch resolves def and runs its handler against root.
func (r *Registry) Dispatch(root string, def *Definition) (Registration, Extraction, error) {
	reg, err := r.Resolve(def)
	if err != nil {
		return Registration{}, Extraction{}, err
	}
	ext, err := reg.Handler(root, def)
	if err != nil {
		return reg, Extraction{}, err
	}
	return reg, ext, nil
}

// Recognized reports whether key is a parameter name of any registration.
func (r *Registry) Recognized(key string) bool {
	for _, k := range commonKeys {
		if k == key {
			return true
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs {
		for _, k := range reg.Keys {
			if k == key {
				return true
			}
		}
	}
	return false
}

// RecognizedKeys returns every recognized parameter name, sorted.
func (r *Registry) RecognizedKeys() []string {
	set := make(map[string]struct{})
	for _, k := range commonKeys {
		set[k] = struct{}{}
	}
	r.mu.RLock()
	for _, reg := range r.regs {
		for _, k := range reg.Keys {
			set[k] = struct{}{}
		}
	}
	r.mu.RUnlock()
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsInternal reports whether key must be kept out of reports.
func (r *Registry) IsInternal(key string) bool {
	if key == KeyMatches {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs {
		for _, k := range reg.InternalKeys {
			if k == key {
				return true
			}
		}
	}
	return false
}

// IsConfigError reports whether err stems from a malformed definition.
func IsConfigError(err error) bool {
	return errors.IsKind(err, errors.KindConfig)
}

// ConfigError returns an error reporting a malformed definition.
func ConfigError(format string, args ...interface{}) error {
	return errors.Configf(format, args...)
}

// ReferenceKeyOf returns the first reference key of reg present in def.
func ReferenceKeyOf(reg Registration, def *Definition) (string, bool) {
	for _, k := range reg.ReferenceKeys {
		if def.Has(k) {
			return k, true
		}
	}
	return "", false
}

// Updatable reports whether the reference key may be rewritten.
func (reg Registration) Updatable(key string) bool {
	for _, k := range reg.NonUpdatableKeys {
		if k == key {
			return false
		}
	}
	return true
}
