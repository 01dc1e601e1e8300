package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario drives a node graph through a list of container mutations and
// checks the resulting state of both sides of every relation.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TokenPrefix prefixes the deterministic propagation tokens.
	// Defaults to "prop".
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// SkipConsistency disables the final pairing check. Scenarios that seed
	// deliberately inconsistent state set it.
	SkipConsistency bool `yaml:"skip_consistency,omitempty"`

	// Nodes declares the graph before any step runs.
	Nodes []NodeSpec `yaml:"nodes"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Expect validates the final state of named nodes.
	Expect []Expectation `yaml:"expect"`
}

// NodeSpec declares one node.
type NodeSpec struct {
	Name string `yaml:"name"`

	// Lazy nodes start NotLoaded and materialize from the store.
	Lazy bool `yaml:"lazy,omitempty"`

	// Children seeds the children sequence. Each seeded child's parent is
	// restored to this node without propagation; duplicates are kept.
	Children []string `yaml:"children,omitempty"`

	// Links seeds the links set without touching the reciprocal side.
	Links []string `yaml:"links,omitempty"`
}

// Step is one mutation. Which of Target, Index, From and To are read
// depends on Op.
type Step struct {
	Op     string `yaml:"op"`
	Node   string `yaml:"node"`
	Target string `yaml:"target,omitempty"`
	Index  int    `yaml:"index,omitempty"`
	From   int    `yaml:"from,omitempty"`
	To     int    `yaml:"to,omitempty"`

	// Error is the expected error code, e.g. "OUT_OF_RANGE". Empty means
	// the step must succeed.
	Error string `yaml:"error,omitempty"`
}

// Expectation checks the final state of one node. Unset fields are not
// checked.
type Expectation struct {
	Node string `yaml:"node"`

	// Children is compared in order.
	Children []string `yaml:"children,omitempty"`

	// Links is compared ignoring order.
	Links []string `yaml:"links,omitempty"`

	// Parent is the expected parent name; "" expects no parent.
	Parent *string `yaml:"parent,omitempty"`

	// State is the expected LoadState of the children sequence.
	State string `yaml:"state,omitempty"`
}

// Step operations.
const (
	OpSetParent     = "set_parent"
	OpAddChild      = "add_child"
	OpInsertChild   = "insert_child"
	OpRemoveChild   = "remove_child"
	OpRemoveChildAt = "remove_child_at"
	OpMoveChild     = "move_child"
	OpClearChildren = "clear_children"
	OpLink          = "link"
	OpUnlink        = "unlink"
	OpClearLinks    = "clear_links"
	OpLoad          = "load"
)

// opsWithTarget lists the operations that require a target node.
// set_parent accepts an empty target to clear the parent.
var opsWithTarget = map[string]bool{
	OpSetParent:     false,
	OpAddChild:      true,
	OpInsertChild:   true,
	OpRemoveChild:   true,
	OpRemoveChildAt: false,
	OpMoveChild:     false,
	OpClearChildren: false,
	OpLink:          true,
	OpUnlink:        true,
	OpClearLinks:    false,
	OpLoad:          false,
}

// LoadScenario reads, validates and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario validates data against the scenario schema, then decodes
// it with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks cross references the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}

	declared := make(map[string]bool, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		if declared[n.Name] {
			return fmt.Errorf("nodes[%d]: duplicate node %q", i, n.Name)
		}
		declared[n.Name] = true
	}

	known := func(field, name string) error {
		if !declared[name] {
			return fmt.Errorf("%s: unknown node %q", field, name)
		}
		return nil
	}

	for i, n := range s.Nodes {
		for _, c := range n.Children {
			if err := known(fmt.Sprintf("nodes[%d].children", i), c); err != nil {
				return err
			}
		}
		for _, l := range n.Links {
			if err := known(fmt.Sprintf("nodes[%d].links", i), l); err != nil {
				return err
			}
		}
	}

	for i, step := range s.Steps {
		needsTarget, ok := opsWithTarget[step.Op]
		if !ok {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if err := known(fmt.Sprintf("steps[%d].node", i), step.Node); err != nil {
			return err
		}
		if needsTarget && step.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", i, step.Op)
		}
		if step.Target != "" {
			if err := known(fmt.Sprintf("steps[%d].target", i), step.Target); err != nil {
				return err
			}
		}
	}

	for i, e := range s.Expect {
		if err := known(fmt.Sprintf("expect[%d].node", i), e.Node); err != nil {
			return err
		}
		for _, c := range e.Children {
			if err := known(fmt.Sprintf("expect[%d].children", i), c); err != nil {
				return err
			}
		}
		if e.Parent != nil && *e.Parent != "" {
			if err := known(fmt.Sprintf("expect[%d].parent", i), *e.Parent); err != nil {
				return err
			}
		}
	}
	return nil
}
