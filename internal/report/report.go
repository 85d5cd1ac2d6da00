// Package report writes YAML execution reports of test runs.
package report

import (
	"bytes"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pseudotest/pseudotest/internal/config"
	"github.com/pseudotest/pseudotest/internal/errors"
	"github.com/pseudotest/pseudotest/pkg/match"
)

// Keys added next to the match parameters.
const (
	KeyReference  = "reference"
	KeyCalculated = "calculated"
	KeyError      = "error"
)

// Report is the report of one test file.
type Report struct {
	TestFile   string
	Name       string
	Enabled    bool
	Executable string
	Inputs     []*Input
}

// Input is the report of one input.
type Input struct {
	Name            string
	InputMethod     string
	Processors      int
	ExpectedFailure bool
	Passed          bool
	Elapsed         time.Duration
	// Matches is nil when the matches were not evaluated.
	Matches *Group
}

// Group is an ordered set of named entries.
type Group struct {
	names   []string
	entries map[string]*yaml.Node
	groups  map[string]*Group
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{entries: map[string]*yaml.Node{}, groups: map[string]*Group{}}
}

// Group returns the child group called name, creating it if needed.
func (g *Group) Group(name string) *Group {
	if child, ok := g.groups[name]; ok {
		return child
	}
	child := NewGroup()
	g.names = append(g.names, name)
	g.groups[name] = child
	return child
}

// Add records the results of a leaf match. A broadcast match nests its
// elements under name; a single element is stored directly.
func (g *Group) Add(name string, results []match.Result, broadcast bool, reg *match.Registry) {
	if !broadcast && len(results) == 1 {
		g.set(name, Entry(results[0], reg))
		return
	}
	child := g.Group(name)
	for _, r := range results {
		child.set(r.Element.Label, Entry(r, reg))
	}
}

func (g *Group) set(name string, n *yaml.Node) {
	if _, ok := g.entries[name]; !ok {
		g.names = append(g.names, name)
	}
	g.entries[name] = n
}

// Node renders the group as a YAML mapping.
func (g *Group) Node() *yaml.Node {
	m := mapping()
	for _, name := range g.names {
		if child, ok := g.groups[name]; ok {
			appendPair(m, name, child.Node())
			continue
		}
		appendPair(m, name, g.entries[name])
	}
	return m
}

// Entry renders one evaluated element. The element's parameters are listed
// in definition order without internal keys. The reference key holds the
// calculated value cast to the reference's type and the original value
// moves to "reference". References that are never rewritten keep their
// value and the calculated value is listed under "calculated".
func Entry(r match.Result, reg *match.Registry) *yaml.Node {
	def := r.Element.Definition
	m := mapping()
	refKey := r.Extraction.ReferenceKey
	if r.Err != nil {
		refKey = ""
	}
	for _, key := range def.Keys() {
		if reg.IsInternal(key) {
			continue
		}
		v, _ := def.Get(key)
		if key != refKey {
			appendPair(m, key, config.EncodeValue(v))
			continue
		}
		calc := calculated(r)
		if !r.Registration.Updatable(key) {
			appendPair(m, key, config.EncodeValue(v))
			appendPair(m, KeyCalculated, calc)
			continue
		}
		appendPair(m, key, calc)
		appendPair(m, KeyReference, config.EncodeValue(v))
	}
	if r.Err != nil {
		appendPair(m, KeyError, scalar("!!str", r.Err.Error()))
	}
	return m
}

func calculated(r match.Result) *yaml.Node {
	if !r.Extraction.Extracted {
		return scalar("!!null", "null")
	}
	return config.EncodeValue(match.CastLike(r.Extraction.Calculated, r.Extraction.Reference))
}

// Node renders the report as a YAML document keyed by the test file path.
func (r *Report) Node() *yaml.Node {
	body := mapping()
	appendPair(body, "Name", scalar("!!str", r.Name))
	appendPair(body, "Enabled", boolNode(r.Enabled))
	appendPair(body, "Executable", scalar("!!str", r.Executable))
	inputs := mapping()
	for _, in := range r.Inputs {
		appendPair(inputs, in.Name, in.node())
	}
	appendPair(body, "Inputs", inputs)

	doc := mapping()
	appendPair(doc, strings.TrimPrefix(r.TestFile, "./"), body)
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}}
}

func (in *Input) node() *yaml.Node {
	m := mapping()
	appendPair(m, "InputMethod", scalar("!!str", in.InputMethod))
	appendPair(m, "Processors", scalar("!!int", strconv.Itoa(in.Processors)))
	appendPair(m, "ExpectedFailure", boolNode(in.ExpectedFailure))
	execution := "fail"
	if in.Passed {
		execution = "pass"
	}
	appendPair(m, "Execution", scalar("!!str", execution))
	elapsed := math.Round(in.Elapsed.Seconds()*1000) / 1000
	appendPair(m, "Elapsed time", scalar("!!float", strconv.FormatFloat(elapsed, 'f', 3, 64)))
	if in.Matches != nil {
		appendPair(m, "Matches", in.Matches.Node())
	}
	return m
}

// Encode renders the report as a YAML document starting with "---".
func (r *Report) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r.Node()); err != nil {
		return nil, errors.Wrap(err, "failed to encode report")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode report")
	}
	return buf.Bytes(), nil
}

// Append appends the report to the file at path, creating it if needed.
func (r *Report) Append(path string) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to open report file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write report")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	return nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func boolNode(b bool) *yaml.Node {
	return scalar("!!bool", strconv.FormatBool(b))
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar("!!str", key), value)
}
