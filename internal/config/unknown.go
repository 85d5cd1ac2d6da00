package config

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// detectUnknownFields compares the keys of the top level and of every input
// scope with the known struct fields.
func detectUnknownFields(root *yaml.Node) []string {
	var warnings []string

	knownTopLevel := getYAMLFields(reflect.TypeOf(TestFile{}))
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		if !knownTopLevel[key] {
			warnings = append(warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
		}
	}

	inputs := lookup(root, "Inputs")
	if inputs == nil || inputs.Kind != yaml.MappingNode {
		return warnings
	}
	knownInputFields := getYAMLFields(reflect.TypeOf(InputScope{}))
	for i := 0; i+1 < len(inputs.Content); i += 2 {
		name := inputs.Content[i].Value
		scope := resolveAlias(inputs.Content[i+1])
		if scope.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(scope.Content); j += 2 {
			key := scope.Content[j].Value
			if !knownInputFields[key] {
				warnings = append(warnings, fmt.Sprintf("unknown field %q in input %q (ignored)", key, name))
			}
		}
	}

	return warnings
}

// getYAMLFields returns the known YAML field names of a struct type,
// descending into inline fields.
func getYAMLFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("yaml")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if strings.Contains(opts, "inline") && field.Type.Kind() == reflect.Struct {
			for k := range getYAMLFields(field.Type) {
				fields[k] = true
			}
			continue
		}
		if name != "" {
			fields[name] = true
		}
	}
	return fields
}
