// Package schema validates pseudotest test files against the embedded JSON schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/pseudotest/pseudotest/schema"
)

const testSchemaName = "test.schema.json"

var (
	testSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles the embedded schema once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		data, err := schemafs.FS.ReadFile(testSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("read test schema: %w", err)
			return
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal test schema: %w", err)
			return
		}

		if err := compiler.AddResource(testSchemaName, doc); err != nil {
			compileErr = fmt.Errorf("add test schema resource: %w", err)
			return
		}

		testSchema, err = compiler.Compile(testSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile test schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateTest validates a decoded YAML test document against the schema.
// The document is the generic value produced by decoding YAML into an
// interface{}.
func ValidateTest(doc interface{}) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	data, err := json.Marshal(toJSONValue(doc))
	if err != nil {
		return fmt.Errorf("convert test file to JSON: %w", err)
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := testSchema.Validate(v); err != nil {
		return fmt.Errorf("test file validation failed: %w", err)
	}

	return nil
}

// toJSONValue rewrites YAML-decoded values into JSON-encodable ones:
// non-string map keys become strings and non-finite floats become their
// YAML spelling.
func toJSONValue(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, item := range x {
			out[k] = toJSONValue(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = toJSONValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = toJSONValue(item)
		}
		return out
	case float64:
		switch {
		case math.IsNaN(x):
			return ".nan"
		case math.IsInf(x, 1):
			return ".inf"
		case math.IsInf(x, -1):
			return "-.inf"
		}
		return x
	default:
		return x
	}
}
