package scenario

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tether/internal/observable"
)

// ExpectationError describes one failed expectation.
type ExpectationError struct {
	Node     string
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expect %s.%s: expected %s, actual %s", e.Node, e.Field, e.Expected, e.Actual)
}

// EvaluateExpectations checks every expectation against the graph and
// returns one message per mismatch, in expectation order.
func EvaluateExpectations(g *Graph, expectations []Expectation) []string {
	var errs []string
	for _, exp := range expectations {
		for _, err := range checkExpectation(g, exp) {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func checkExpectation(g *Graph, exp Expectation) []error {
	n, ok := g.Node(exp.Node)
	if !ok {
		return []error{fmt.Errorf("expect: unknown node %q", exp.Node)}
	}

	var errs []error
	mismatch := func(field, expected, actual string) {
		errs = append(errs, &ExpectationError{Node: exp.Node, Field: field, Expected: expected, Actual: actual})
	}

	if exp.State != "" {
		if got := n.children.LoadState().String(); got != exp.State {
			mismatch("state", exp.State, got)
		}
	}

	// Reading a lazy container would load it; only compare loaded ones.
	if exp.Children != nil {
		if n.children.LoadState() != observable.Loaded {
			mismatch("children", formatList(exp.Children), "unloaded")
		} else if got := nodeKeys(n.children.Items()); !slices.Equal(got, exp.Children) {
			mismatch("children", formatList(exp.Children), formatList(got))
		}
	}

	if exp.Links != nil {
		want := sortedCopy(exp.Links)
		if n.links.LoadState() != observable.Loaded {
			mismatch("links", formatList(want), "unloaded")
		} else if got := sortedCopy(nodeKeys(n.links.Items())); !slices.Equal(got, want) {
			mismatch("links", formatList(want), formatList(got))
		}
	}

	if exp.Parent != nil {
		if got := nodeKey(n.Parent()); got != *exp.Parent {
			mismatch("parent", fmt.Sprintf("%q", *exp.Parent), fmt.Sprintf("%q", got))
		}
	}
	return errs
}

func sortedCopy(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func formatList(s []string) string {
	return "[" + strings.Join(s, " ") + "]"
}
