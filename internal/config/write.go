package config

import (
	"math"

	"gopkg.in/yaml.v3"

	"github.com/pseudotest/pseudotest/pkg/match"
	"github.com/pseudotest/pseudotest/pkg/update"
)

// Apply writes a patch into the leaf's definition and into the YAML
// document it was parsed from. Replaced values keep their comments; a
// value that becomes a list is written in flow style.
func (n *Node) Apply(p update.Patch) {
	p.Apply(n.Params)
	for _, c := range p.Changes {
		setMappingValue(n.node, c.Key, EncodeValue(c.Value))
	}
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != key {
			continue
		}
		old := m.Content[i+1]
		value.HeadComment = old.HeadComment
		value.LineComment = old.LineComment
		value.FootComment = old.FootComment
		if old.Kind == yaml.SequenceNode && value.Kind == yaml.SequenceNode {
			value.Style = old.Style
		}
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// EncodeValue converts a parameter value to a YAML node.
func EncodeValue(v match.Value) *yaml.Node {
	switch v.Kind() {
	case match.KindList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range v.Items() {
			seq.Content = append(seq.Content, EncodeValue(item))
		}
		return seq
	case match.KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.String()}
	case match.KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: floatText(v)}
	case match.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.String()}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.String()}
	}
}

func floatText(v match.Value) string {
	f, _ := v.AsFloat()
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	if lit := v.Literal(); lit != "" {
		return lit
	}
	return match.FormatFloat(f)
}
