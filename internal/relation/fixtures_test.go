package relation

import (
	"github.com/roach88/tether/internal/observable"
)

// parent and child exercise OneToMany through registered accessors.
type parent struct {
	name     string
	children *observable.Sequence[*child]
}

type child struct {
	name  string
	owner *BackRef[*parent, *child]
}

// tag exercises ManyToMany through the Navigator interface.
type tag struct {
	name    string
	related observable.Collection[*tag]
}

func (t *tag) Navigate(property string) (any, bool) {
	if property == "related" {
		return t.related, true
	}
	return nil, false
}

// recordingObserver captures engine events.
type recordingObserver struct {
	propagations []observable.Action
	skips        []SkipReason
	violations   []error
	onPropagate  func()
}

func (o *recordingObserver) OnPropagate(_ Kind, _ string, action observable.Action) {
	o.propagations = append(o.propagations, action)
	if o.onPropagate != nil {
		o.onPropagate()
	}
}

func (o *recordingObserver) OnSkip(_ Kind, _ string, reason SkipReason) {
	o.skips = append(o.skips, reason)
}

func (o *recordingObserver) OnViolation(_ Kind, _ string, err error) {
	o.violations = append(o.violations, err)
}

type family struct {
	engine *Engine
	rel    *OneToMany[*parent, *child]
	obs    *recordingObserver
}

func newFamily(opts ...Option) *family {
	obs := &recordingObserver{}
	engine := New(append([]Option{WithObserver(obs)}, opts...)...)
	rel := NewOneToMany[*parent, *child](engine, "children", "parent")

	r := engine.Resolver()
	RegisterCollection(r, "children", func(p *parent) observable.Collection[*child] {
		return p.children
	})
	RegisterReference(r, "parent",
		func(c *child) *parent { return c.owner.Get() },
		func(c *child, p *parent) error { return c.owner.Set(p) },
	)
	return &family{engine: engine, rel: rel, obs: obs}
}

// parent creates an attached parent. opts configure its children sequence.
func (f *family) parent(name string, opts ...observable.Option[*child]) (*parent, *Descriptor) {
	p := &parent{name: name, children: observable.NewSequence(opts...)}
	return p, f.rel.Attach(p, p.children)
}

func (f *family) child(name string) *child {
	c := &child{name: name}
	c.owner = NewBackRef(f.rel, c)
	return c
}

func newTag(name string, opts ...observable.Option[*tag]) *tag {
	return &tag{name: name, related: observable.NewSet(opts...)}
}
