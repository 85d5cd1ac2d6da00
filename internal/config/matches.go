package config

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// Node is an entry of a match tree. A leaf holds a complete match
// definition; a group holds parameters inherited by its children.
type Node struct {
	Name     string
	Params   *match.Definition
	Children []*Node

	leaf bool
	node *yaml.Node
}

// IsLeaf reports whether n is a match rather than a group.
func (n *Node) IsLeaf() bool {
	return n.leaf
}

// Leaves returns the number of leaf matches below n, counting n itself.
func (n *Node) Leaves() int {
	if n.leaf {
		return 1
	}
	count := 0
	for _, c := range n.Children {
		count += c.Leaves()
	}
	return count
}

// ParseMatches parses a Matches mapping into a tree rooted at a group named
// "Matches". A mapping whose keys are all recognized parameter names is a
// leaf; otherwise recognized keys are group parameters and every other key
// names a child.
func ParseMatches(m *yaml.Node, reg *match.Registry) (*Node, error) {
	m = resolveAlias(m)
	if m.Kind == yaml.ScalarNode && m.ShortTag() == "!!null" {
		return &Node{Name: "Matches", Params: match.NewDefinition(), node: m}, nil
	}
	if m.Kind != yaml.MappingNode {
		return nil, errors.Configf("Matches must be a mapping (line %d)", m.Line)
	}
	root, err := parseNode("Matches", m, reg, false)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func parseNode(name string, m *yaml.Node, reg *match.Registry, allowLeaf bool) (*Node, error) {
	n := &Node{Name: name, Params: match.NewDefinition(), node: m}

	leaf := allowLeaf
	for i := 0; i+1 < len(m.Content); i += 2 {
		if !reg.Recognized(m.Content[i].Value) {
			leaf = false
			break
		}
	}
	n.leaf = leaf

	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		val := resolveAlias(m.Content[i+1])

		if reg.Recognized(key) {
			v, ok, err := DecodeValue(val)
			if err != nil {
				return nil, errors.Configf("match %q: parameter %q: %v", name, key, err)
			}
			if ok {
				n.Params.Set(key, v)
			}
			continue
		}

		if val.Kind != yaml.MappingNode {
			return nil, errors.Configf("match %q: %q is not a known parameter and its value is not a mapping (line %d)",
				name, key, m.Content[i].Line)
		}
		child, err := parseNode(key, val, reg, true)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// DecodeValue converts a YAML node to a parameter value. Nulls report false.
// Nested sequences and mappings are rejected.
func DecodeValue(n *yaml.Node) (match.Value, bool, error) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		items := make([]match.Value, 0, len(n.Content))
		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return match.Value{}, false, fmt.Errorf("list items must be scalars (line %d)", item.Line)
			}
			v, ok, err := decodeScalar(item)
			if err != nil {
				return match.Value{}, false, err
			}
			if !ok {
				return match.Value{}, false, fmt.Errorf("list items must not be null (line %d)", item.Line)
			}
			items = append(items, v)
		}
		return match.List(items...), true, nil
	default:
		return match.Value{}, false, fmt.Errorf("expected a scalar or a list of scalars (line %d)", n.Line)
	}
}

func decodeScalar(n *yaml.Node) (match.Value, bool, error) {
	switch n.ShortTag() {
	case "!!null":
		return match.Value{}, false, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return match.Value{}, false, err
		}
		return match.Int(i), true, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return match.Value{}, false, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return match.Float(f), true, nil
		}
		return match.FloatLiteral(n.Value, f), true, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return match.Value{}, false, err
		}
		return match.Bool(b), true, nil
	default:
		return match.String(n.Value), true, nil
	}
}
