package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// BenchmarkStage is the `benchmark:` key, a discriminated union of its two
// accepted shapes: a bare list of commands (the implicit stage named
// "time"), or a mapping of explicit stage name to command list. Decoding sets
// exactly one shape; a config with no benchmark commands at all is rejected
// by Validate unless it declares custom-metrics.
type BenchmarkStage struct {
	// Implicit holds the commands when the config gave a bare list.
	Implicit []string
	// Named holds stage name -> commands when the config gave a mapping.
	// Iterate via Names() for a stable order.
	Named map[string][]string
	names []string
}

// IsImplicit reports whether `benchmark:` was given as a bare command list.
func (b BenchmarkStage) IsImplicit() bool { return b.Implicit != nil }

// Names returns the declared stage names in declaration order. For an
// implicit stage this is a single synthetic name, "time".
func (b BenchmarkStage) Names() []string {
	if b.IsImplicit() {
		return []string{"time"}
	}
	return b.names
}

// Commands returns the command list for a stage name.
func (b BenchmarkStage) Commands(stage string) []string {
	if b.IsImplicit() {
		return b.Implicit
	}
	return b.Named[stage]
}

// Empty reports whether no benchmark commands were declared at all.
func (b BenchmarkStage) Empty() bool {
	return len(b.Implicit) == 0 && len(b.Named) == 0
}

// NewImplicitStage builds a BenchmarkStage from an already-expanded command
// list, used by the Plan Builder once template expansion is done.
func NewImplicitStage(cmds []string) BenchmarkStage {
	return BenchmarkStage{Implicit: cmds}
}

// NewNamedStage builds a BenchmarkStage from already-expanded per-stage
// command lists, preserving the given name order.
func NewNamedStage(named map[string][]string, names []string) BenchmarkStage {
	return BenchmarkStage{Named: named, names: names}
}

// MarshalYAML emits an implicit stage as a bare command list, or a named
// stage as a mapping node in declaration order.
func (b BenchmarkStage) MarshalYAML() (interface{}, error) {
	if b.IsImplicit() {
		return b.Implicit, nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range b.names {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(name); err != nil {
			return nil, err
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(b.Named[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

func (b *BenchmarkStage) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var cmds []string
		if err := n.Decode(&cmds); err != nil {
			return fmt.Errorf("benchmark: %w", err)
		}
		*b = BenchmarkStage{Implicit: cmds}
		return nil
	case yaml.MappingNode:
		named := make(map[string][]string, len(n.Content)/2)
		names := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			stage := n.Content[i].Value
			cmds, err := decodeCommandList(n.Content[i+1])
			if err != nil {
				return fmt.Errorf("benchmark.%s: %w", stage, err)
			}
			named[stage] = cmds
			names = append(names, stage)
		}
		*b = BenchmarkStage{Named: named, names: names}
		return nil
	case yaml.ScalarNode:
		// A bare scalar (including a YAML block scalar `|`) is one
		// multi-line command string, one logical invocation per §4.1's
		// Command definition.
		var s string
		if err := n.Decode(&s); err != nil {
			return fmt.Errorf("benchmark: %w", err)
		}
		*b = BenchmarkStage{Implicit: []string{s}}
		return nil
	default:
		return fmt.Errorf("benchmark: unexpected YAML node kind %v", n.Kind)
	}
}

// decodeCommandList accepts either a list of command strings or a single
// scalar command for one named benchmark stage, matching the scalar-or-list
// tolerance of the top-level benchmark key. setup/prepare/conclude/cleanup
// are plain lists and do not accept a scalar.
func decodeCommandList(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		var s string
		if err := n.Decode(&s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	var cmds []string
	if err := n.Decode(&cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

// Matrix is the `matrix:` key: a mapping from variable name to its value
// list, preserving declaration order because the Plan Builder's Cartesian
// product is defined in declaration order (§3 Matrix Point).
type Matrix struct {
	names  []string
	values map[string]VarList
}

// Names returns the matrix variable names in declaration order.
func (m Matrix) Names() []string { return m.names }

// Values returns the declared value list for a matrix variable.
func (m Matrix) Values(name string) VarList { return m.values[name] }

// Len returns the number of declared matrix variables.
func (m Matrix) Len() int { return len(m.names) }

// WithValues returns a copy of m with name's value list replaced by vl.
// Used by the --split utility to produce one partial matrix per value of
// the split variable.
func (m Matrix) WithValues(name string, vl VarList) Matrix {
	values := make(map[string]VarList, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	values[name] = vl
	names := m.names
	if _, ok := m.values[name]; !ok {
		names = append(append([]string(nil), m.names...), name)
	}
	return Matrix{names: names, values: values}
}

// MarshalYAML emits the matrix as a mapping node in declaration order,
// since plain map marshaling would otherwise sort keys alphabetically and
// scramble the Cartesian product's declared order on a round trip.
func (m Matrix) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range m.names {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(name); err != nil {
			return nil, err
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(m.values[name]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

func (m *Matrix) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("matrix: expected a mapping, got %v", n.Kind)
	}
	names := make([]string, 0, len(n.Content)/2)
	values := make(map[string]VarList, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		var vl VarList
		if err := n.Content[i+1].Decode(&vl); err != nil {
			return fmt.Errorf("matrix.%s: %w", name, err)
		}
		names = append(names, name)
		values[name] = vl
	}
	*m = Matrix{names: names, values: values}
	return nil
}

// CustomMetric is one entry of the `custom-metrics:` list: a single-entry
// mapping from metric name to the command that produces it.
type CustomMetric struct {
	Name    string
	Command string
}

// MarshalYAML emits a custom metric as its single-entry name-to-command
// mapping.
func (c CustomMetric) MarshalYAML() (interface{}, error) {
	return map[string]string{c.Name: c.Command}, nil
}

func (c *CustomMetric) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return fmt.Errorf("custom-metrics entry must be a single-entry mapping of name to command")
	}
	c.Name = n.Content[0].Value
	return n.Content[1].Decode(&c.Command)
}

// sortedKeys returns m's keys in sorted order. Nothing in the package calls
// it at present.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
