package relation

import "github.com/roach88/tether/internal/observable"

// ManyToMany keeps A's collection of B and each B's reciprocal collection
// of A consistent: a ∈ b.reciprocal iff b ∈ a.property.
//
// One ManyToMany handles one direction. A self-referencing relation (A == B
// and property == reciprocalProperty) needs a single instance; otherwise
// build one per direction on the same Engine and attach both.
type ManyToMany[A, B comparable] struct {
	engine             *Engine
	property           string
	reciprocalProperty string
	attached           []*Descriptor
}

// NewManyToMany creates a many-to-many relation on engine.
func NewManyToMany[A, B comparable](engine *Engine, property, reciprocalProperty string) *ManyToMany[A, B] {
	return &ManyToMany[A, B]{
		engine:             engine,
		property:           property,
		reciprocalProperty: reciprocalProperty,
	}
}

// Property returns the observed collection property name.
func (r *ManyToMany[A, B]) Property() string { return r.property }

// ReciprocalProperty returns the property updated on the other side.
func (r *ManyToMany[A, B]) ReciprocalProperty() string { return r.reciprocalProperty }

// UpdateOtherSide mirrors change from owner's collection onto the
// reciprocal collections of the items involved.
//
// Added items gain owner in their reciprocal collection; removed items lose
// it. Reciprocal collections that are not materialized are skipped. Fails
// with UNIQUENESS_VIOLATION when a reciprocal collection holds owner more
// than once. A Reset carries no items and fails with INVALID_ARGUMENT;
// attached descriptors diff Reset against their snapshot instead.
func (r *ManyToMany[A, B]) UpdateOtherSide(owner A, change observable.Change[B]) error {
	if change.Action == observable.ActionReset {
		return errResetWithoutSnapshot("UpdateOtherSide")
	}
	release := r.engine.begin()
	defer release()

	coll, ok := ResolveCollection[B](r.engine.resolver, owner, r.property)
	if !ok {
		r.engine.skip(ManyToManyKind, r.property, SkipUnresolved)
		return nil
	}
	r.engine.propagate(ManyToManyKind, r.reciprocalProperty, change.Action)
	return r.updateOtherSide(owner, coll, change.OldItems, change.NewItems)
}

// updateOtherSide only mirrors items whose membership in coll still matches
// the change, so late batch flushes agree with the final contents.
func (r *ManyToMany[A, B]) updateOtherSide(owner A, coll observable.Collection[B], removed, added []B) error {
	const op = "UpdateOtherSide"
	for _, item := range removed {
		if coll.Contains(item) {
			continue
		}
		recip, ok := r.reciprocal(item)
		if !ok || !recip.Contains(owner) {
			continue
		}
		if _, err := recip.Remove(owner); err != nil {
			return err
		}
		if recip.Contains(owner) {
			return r.engine.violation(ManyToManyKind, r.reciprocalProperty, op, owner)
		}
	}
	for _, item := range added {
		if !coll.Contains(item) {
			continue
		}
		recip, ok := r.reciprocal(item)
		if !ok {
			continue
		}
		if !recip.Contains(owner) {
			if _, err := recip.Add(owner); err != nil {
				return err
			}
		}
		if recip.Count(owner) > 1 {
			return r.engine.violation(ManyToManyKind, r.reciprocalProperty, op, owner)
		}
	}
	return nil
}

// Attach subscribes the relation to owner's collection and returns the
// descriptor that owns the subscription.
func (r *ManyToMany[A, B]) Attach(owner A, coll observable.Collection[B]) *Descriptor {
	d := newDescriptor(ManyToManyKind, owner, r.property, r.reciprocalProperty)
	snap := newSnapshot(coll)

	id := coll.Subscribe(func(change observable.Change[B]) error {
		leave := d.enter()
		defer leave()
		release := r.engine.begin()
		defer release()

		r.engine.propagate(ManyToManyKind, r.reciprocalProperty, change.Action)
		removed, added := snap.delta(change, coll)
		snap.apply(change, coll)
		return r.updateOtherSide(owner, coll, removed, added)
	})
	d.detach = func() { coll.Unsubscribe(id) }
	r.attached = append(r.attached, d)
	return d
}

// Teardown closes every descriptor attached through r and drops the
// resolver's cached accessors for both properties.
func (r *ManyToMany[A, B]) Teardown() {
	for _, d := range r.attached {
		d.Close()
	}
	r.attached = nil
	r.engine.resolver.Invalidate(r.property)
	r.engine.resolver.Invalidate(r.reciprocalProperty)
}

func (r *ManyToMany[A, B]) reciprocal(item B) (observable.Collection[A], bool) {
	recip, ok := ResolveCollection[A](r.engine.resolver, item, r.reciprocalProperty)
	if !ok {
		r.engine.skip(ManyToManyKind, r.reciprocalProperty, SkipUnresolved)
		return nil, false
	}
	if recip.LoadState() != observable.Loaded {
		r.engine.skip(ManyToManyKind, r.reciprocalProperty, SkipNotLoaded)
		return nil, false
	}
	return recip, true
}
