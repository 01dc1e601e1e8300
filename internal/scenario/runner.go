package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tether/internal/observable"
	"github.com/roach88/tether/internal/relation"
	"github.com/roach88/tether/internal/store"
	"github.com/roach88/tether/internal/testutil"
)

// Option configures Run.
type Option func(*config)

type config struct {
	store    *store.Store
	logger   *slog.Logger
	observer relation.Observer
}

// WithStore persists the run into st instead of a fresh in-memory store.
func WithStore(st *store.Store) Option {
	return func(c *config) {
		c.store = st
	}
}

// WithLogger sets the logger handed to the sync engine. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver forwards sync engine events to o after they are traced.
func WithObserver(o relation.Observer) Option {
	return func(c *config) {
		c.observer = o
	}
}

// runner holds the per-run deterministic helpers.
type runner struct {
	graph  *Graph
	engine *relation.Engine
	clock  *testutil.TraceClock
	result *Result
	next   relation.Observer
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh engine, trace clock and token generator, so the
// same scenario produces a byte-identical trace. Unless WithStore is given
// the run persists into a fresh in-memory database.
//
// Execution flow:
//  1. Build the node graph, seeding the store
//  2. Execute steps, matching each against its expected error code
//  3. Check expectations and, unless skipped, pairing consistency
//  4. Replay the journal of every container against its membership
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	cfg := config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: relation.NoopObserver{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := cfg.store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	r := &runner{
		clock:  testutil.NewTraceClock(),
		result: NewResult(),
		next:   cfg.observer,
	}
	r.engine = relation.New(
		relation.WithLogger(cfg.logger),
		relation.WithObserver(r),
		relation.WithTokenGenerator(testutil.NewSequenceGenerator(s.TokenPrefix)),
	)
	r.graph = NewGraph(r.engine, st)
	defer r.graph.Close()

	startSeq, err := st.LastSeq(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.graph.Build(ctx, s.Nodes, r.recordChange); err != nil {
		return nil, err
	}

	for i, step := range s.Steps {
		r.runStep(i, step)
	}

	for _, msg := range EvaluateExpectations(r.graph, s.Expect) {
		r.result.AddError(msg)
	}
	if !s.SkipConsistency {
		for _, msg := range r.graph.Inconsistencies() {
			r.result.AddError("inconsistent pairing: " + msg)
		}
	}
	if err := r.graph.VerifyJournal(ctx); err != nil {
		r.result.AddError(err.Error())
	}

	endSeq, err := st.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	r.result.Journal = int(endSeq - startSeq)

	return r.result, nil
}

func (r *runner) runStep(i int, step Step) {
	r.emit(TraceEvent{
		Type:   EventStep,
		Op:     step.Op,
		Node:   step.Node,
		Target: step.Target,
	})

	err := r.execute(step)
	code := ""
	if err != nil {
		code = string(observable.CodeOf(err))
		if code == "" {
			code = "ERROR"
		}
		r.emit(TraceEvent{Type: EventError, Code: code, Message: err.Error()})
	}

	switch {
	case step.Error == "" && err != nil:
		r.result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
	case step.Error != "" && err == nil:
		r.result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", i, step.Op, step.Error))
	case step.Error != "" && code != step.Error:
		r.result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s", i, step.Op, step.Error, code))
	}
}

func (r *runner) execute(step Step) error {
	n, _ := r.graph.Node(step.Node)
	target, _ := r.graph.Node(step.Target)

	switch step.Op {
	case OpSetParent:
		return n.parent.Set(target)
	case OpAddChild:
		_, err := n.children.Add(target)
		return err
	case OpInsertChild:
		return n.children.Insert(step.Index, target)
	case OpRemoveChild:
		_, err := n.children.Remove(target)
		return err
	case OpRemoveChildAt:
		return n.children.RemoveAt(step.Index)
	case OpMoveChild:
		return n.children.Move(step.From, step.To)
	case OpClearChildren:
		return n.children.Clear()
	case OpLink:
		_, err := n.links.Add(target)
		return err
	case OpUnlink:
		_, err := n.links.Remove(target)
		return err
	case OpClearLinks:
		return n.links.Clear()
	case OpLoad:
		if err := n.children.Load(); err != nil {
			return err
		}
		return n.links.Load()
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func (r *runner) emit(e TraceEvent) {
	e.Seq = r.clock.Tick()
	if e.Propagation == "" {
		e.Propagation = r.engine.Token()
	}
	r.result.Trace = append(r.result.Trace, e)
}

// recordChange is the graph Subscriber.
func (r *runner) recordChange(n *Node, property string, c observable.Change[*Node]) {
	r.emit(TraceEvent{
		Type:     EventChange,
		Node:     n.Name,
		Property: property,
		Action:   c.Action.String(),
		NewItems: nodeKeys(c.NewItems),
		OldItems: nodeKeys(c.OldItems),
		NewIndex: c.NewIndex,
		OldIndex: c.OldIndex,
	})
}

// OnPropagate implements relation.Observer.
func (r *runner) OnPropagate(kind relation.Kind, property string, action observable.Action) {
	r.emit(TraceEvent{Type: EventPropagate, Relation: kind.String(), Property: property, Action: action.String()})
	r.next.OnPropagate(kind, property, action)
}

// OnSkip implements relation.Observer.
func (r *runner) OnSkip(kind relation.Kind, property string, reason relation.SkipReason) {
	r.emit(TraceEvent{Type: EventSkip, Relation: kind.String(), Property: property, Reason: string(reason)})
	r.next.OnSkip(kind, property, reason)
}

// OnViolation implements relation.Observer.
func (r *runner) OnViolation(kind relation.Kind, property string, err error) {
	r.emit(TraceEvent{Type: EventViolation, Relation: kind.String(), Property: property, Message: err.Error()})
	r.next.OnViolation(kind, property, err)
}

var _ relation.Observer = (*runner)(nil)
