package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/internal/schema"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// File is a loaded test file. It keeps the parsed YAML document so that
// updated match definitions can be written back with comments and key
// order intact.
type File struct {
	Path       string
	Name       string
	Enabled    bool
	Executable string
	Inputs     []*Input

	doc yaml.Node
}

// Dir returns the directory holding the test file; inputs and extra files
// are resolved relative to it.
func (f *File) Dir() string {
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return filepath.Dir(f.Path)
	}
	return filepath.Dir(abs)
}

// Load reads and parses a test file. Parameter names are recognized using
// reg; warnings report unknown settings that were ignored.
func Load(path string, reg *match.Registry) (*File, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to read test file")
	}
	return Parse(path, data, reg)
}

// Parse parses test file content. path is used for messages and as the
// default write-back location.
func Parse(path string, data []byte, reg *match.Registry) (*File, []string, error) {
	f := &File{Path: path}
	if err := yaml.Unmarshal(data, &f.doc); err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to parse test file")
	}
	root := f.root()
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, nil, errors.Configf("%s: test file must be a YAML mapping", path)
	}

	var generic interface{}
	if err := root.Decode(&generic); err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to decode test file")
	}
	if err := schema.ValidateTest(generic); err != nil {
		return nil, nil, errors.WrapConfig(err, path)
	}

	var tf TestFile
	if err := root.Decode(&tf); err != nil {
		return nil, nil, errors.WrapConfig(err, "failed to decode test file")
	}
	warnings := detectUnknownFields(root)

	top := resolve("", tf.Settings, Settings{})
	f.Name = tf.Name
	f.Enabled = top.Enabled
	f.Executable = top.Executable

	inputs := lookup(root, "Inputs")
	for i := 0; i+1 < len(inputs.Content); i += 2 {
		name := inputs.Content[i].Value
		scopeNode := resolveAlias(inputs.Content[i+1])

		var scope InputScope
		if scopeNode.Kind == yaml.MappingNode {
			if err := scopeNode.Decode(&scope); err != nil {
				return nil, nil, errors.WrapConfig(err, fmt.Sprintf("input %q", name))
			}
		}
		input := resolve(name, tf.Settings, scope.Settings)
		if err := validateInput(input); err != nil {
			return nil, nil, err
		}
		if m := lookup(scopeNode, "Matches"); m != nil {
			tree, err := ParseMatches(m, reg)
			if err != nil {
				return nil, nil, errors.WrapConfig(err, fmt.Sprintf("input %q", name))
			}
			input.Matches = tree
		}
		f.Inputs = append(f.Inputs, input)
	}
	return f, warnings, nil
}

// Encode renders the document, including any applied updates.
func (f *File) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&f.doc); err != nil {
		return nil, fmt.Errorf("encode test file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode test file: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the document to path, or to the file it was loaded from when
// path is empty.
func (f *File) Save(path string) error {
	if path == "" {
		path = f.Path
	}
	data, err := f.Encode()
	if err != nil {
		return errors.Wrap(err, "failed to save test file")
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.Wrap(err, "failed to save test file")
	}
	return nil
}

func (f *File) root() *yaml.Node {
	if f.doc.Kind != yaml.DocumentNode || len(f.doc.Content) == 0 {
		return nil
	}
	return resolveAlias(f.doc.Content[0])
}

// lookup returns the value node of key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolveAlias(m.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
