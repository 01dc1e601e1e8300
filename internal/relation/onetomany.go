package relation

import (
	"slices"

	"github.com/roach88/tether/internal/observable"
)

// OneToMany keeps an owner's children collection and each child's
// single-valued back reference consistent.
//
// The owner P exposes childrenProperty (a Collection[C]); the child C exposes
// ownerProperty (a Reference[P]). The zero value of P means "no owner".
//
// Cycles terminate on "already contains" / "already equals" checks: setting
// a back reference adds the child to the owner's collection, whose change
// handler then finds the back reference already pointing at the owner.
type OneToMany[P, C comparable] struct {
	engine           *Engine
	childrenProperty string
	ownerProperty    string
	attached         []*Descriptor
}

// NewOneToMany creates a one-to-many relation on engine.
func NewOneToMany[P, C comparable](engine *Engine, childrenProperty, ownerProperty string) *OneToMany[P, C] {
	return &OneToMany[P, C]{
		engine:           engine,
		childrenProperty: childrenProperty,
		ownerProperty:    ownerProperty,
	}
}

// ChildrenProperty returns the owner-side collection property name.
func (r *OneToMany[P, C]) ChildrenProperty() string { return r.childrenProperty }

// OwnerProperty returns the child-side reference property name.
func (r *OneToMany[P, C]) OwnerProperty() string { return r.ownerProperty }

// UpdateOneSide reconciles owner collections after child's back reference
// changed from oldOwner to newOwner.
//
// The child is removed from oldOwner's children and added to newOwner's.
// Collections that are not materialized are left alone so the sync never
// forces a load. Fails with UNIQUENESS_VIOLATION when a children collection
// holds the child more than once.
func (r *OneToMany[P, C]) UpdateOneSide(child C, oldOwner, newOwner P) error {
	const op = "UpdateOneSide"
	release := r.engine.begin()
	defer release()

	var none P
	if oldOwner != none && oldOwner != newOwner {
		if children, ok := r.children(oldOwner); ok && children.Contains(child) {
			if _, err := children.Remove(child); err != nil {
				return err
			}
			if children.Contains(child) {
				return r.engine.violation(OneToManyKind, r.childrenProperty, op, child)
			}
		}
	}

	if newOwner != none {
		children, ok := r.children(newOwner)
		if !ok {
			return nil
		}
		if !children.Contains(child) {
			if _, err := children.Add(child); err != nil {
				return err
			}
		}
		if children.Count(child) > 1 {
			return r.engine.violation(OneToManyKind, r.childrenProperty, op, child)
		}
	}
	return nil
}

// UpdateManySide reconciles back references after parent's children
// collection raised change.
//
// Removed children that are no longer in the collection and still point at
// parent get their owner cleared; added children that are still in the
// collection and point elsewhere get parent as owner. A Reset carries no
// items and fails with INVALID_ARGUMENT; attached descriptors diff Reset
// against their snapshot instead.
func (r *OneToMany[P, C]) UpdateManySide(parent P, change observable.Change[C]) error {
	if change.Action == observable.ActionReset {
		return errResetWithoutSnapshot("UpdateManySide")
	}
	release := r.engine.begin()
	defer release()

	children, ok := ResolveCollection[C](r.engine.resolver, parent, r.childrenProperty)
	if !ok {
		r.engine.skip(OneToManyKind, r.childrenProperty, SkipUnresolved)
		return nil
	}
	r.engine.propagate(OneToManyKind, r.ownerProperty, change.Action)
	return r.updateManySide(parent, children, change.OldItems, change.NewItems)
}

func (r *OneToMany[P, C]) updateManySide(parent P, children observable.Collection[C], removed, added []C) error {
	var none P
	for _, child := range removed {
		if children.Contains(child) {
			continue
		}
		owner, ok := r.owner(child)
		if !ok || owner.Get() != parent {
			continue
		}
		if err := owner.Set(none); err != nil {
			return err
		}
	}
	// A batch flushes late: an added child may already be gone again.
	for _, child := range added {
		if !children.Contains(child) {
			continue
		}
		owner, ok := r.owner(child)
		if !ok || owner.Get() == parent {
			continue
		}
		if err := owner.Set(parent); err != nil {
			return err
		}
	}
	return nil
}

// Attach subscribes the relation to parent's children collection and
// returns the descriptor that owns the subscription.
func (r *OneToMany[P, C]) Attach(parent P, children observable.Collection[C]) *Descriptor {
	d := newDescriptor(OneToManyKind, parent, r.childrenProperty, r.ownerProperty)
	snap := newSnapshot(children)

	id := children.Subscribe(func(change observable.Change[C]) error {
		leave := d.enter()
		defer leave()
		release := r.engine.begin()
		defer release()

		r.engine.propagate(OneToManyKind, r.ownerProperty, change.Action)
		removed, added := snap.delta(change, children)
		snap.apply(change, children)
		return r.updateManySide(parent, children, removed, added)
	})
	d.detach = func() { children.Unsubscribe(id) }
	r.attached = append(r.attached, d)
	return d
}

// Teardown closes every descriptor attached through r and drops the
// resolver's cached accessors for both properties.
func (r *OneToMany[P, C]) Teardown() {
	for _, d := range r.attached {
		d.Close()
	}
	r.attached = nil
	r.engine.resolver.Invalidate(r.childrenProperty)
	r.engine.resolver.Invalidate(r.ownerProperty)
}

// children resolves owner's collection, reporting a skip when it is missing
// or not materialized.
func (r *OneToMany[P, C]) children(owner P) (observable.Collection[C], bool) {
	children, ok := ResolveCollection[C](r.engine.resolver, owner, r.childrenProperty)
	if !ok {
		r.engine.skip(OneToManyKind, r.childrenProperty, SkipUnresolved)
		return nil, false
	}
	if children.LoadState() != observable.Loaded {
		r.engine.skip(OneToManyKind, r.childrenProperty, SkipNotLoaded)
		return nil, false
	}
	return children, true
}

func (r *OneToMany[P, C]) owner(child C) (Reference[P], bool) {
	ref, ok := ResolveReference[P](r.engine.resolver, child, r.ownerProperty)
	if !ok {
		r.engine.skip(OneToManyKind, r.ownerProperty, SkipUnresolved)
	}
	return ref, ok
}

// snapshot tracks the contents a descriptor's handler has been told about,
// so a Reset can be expanded into removed and added items. It is replayed
// from each change rather than re-read, which keeps it correct when changes
// are flushed late from a batch. For a lazy collection it is retaken when
// the collection is materialized.
type snapshot[T comparable] struct {
	items []T
}

func newSnapshot[T comparable](c observable.Collection[T]) *snapshot[T] {
	s := &snapshot[T]{items: c.Items()}
	c.OnLoad(func() { s.items = c.Items() })
	return s
}

func (s *snapshot[T]) apply(change observable.Change[T], c observable.Collection[T]) {
	if change.Action == observable.ActionReset {
		s.items = c.Items()
		return
	}
	for _, item := range change.OldItems {
		if i := slices.Index(s.items, item); i >= 0 {
			s.items = slices.Delete(s.items, i, i+1)
		}
	}
	s.items = append(s.items, change.NewItems...)
}

// delta returns the items a change removed and added. For Reset it diffs
// the snapshot against the current contents.
func (s *snapshot[T]) delta(change observable.Change[T], c observable.Collection[T]) (removed, added []T) {
	if change.Action != observable.ActionReset {
		return change.OldItems, change.NewItems
	}
	current := c.Items()
	for _, item := range s.items {
		if !slices.Contains(current, item) {
			removed = append(removed, item)
		}
	}
	for _, item := range current {
		if !slices.Contains(s.items, item) {
			added = append(added, item)
		}
	}
	return removed, added
}
