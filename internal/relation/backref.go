package relation

// BackRef is the child-side slot of a one-to-many relation: a single
// reference to the owner that keeps the owner's collection in step.
//
// BackRef implements Reference[P], so entities can hand it to the Resolver
// directly.
type BackRef[P, C comparable] struct {
	rel   *OneToMany[P, C]
	child C
	owner P
}

var _ Reference[int] = (*BackRef[int, string])(nil)

// NewBackRef creates an empty slot for child.
func NewBackRef[P, C comparable](rel *OneToMany[P, C], child C) *BackRef[P, C] {
	return &BackRef[P, C]{rel: rel, child: child}
}

// Get returns the current owner, or the zero value.
func (b *BackRef[P, C]) Get() P {
	return b.owner
}

// Set stores owner and moves the child between owner collections. Setting
// the current owner again is a no-op.
func (b *BackRef[P, C]) Set(owner P) error {
	if owner == b.owner {
		return nil
	}
	old := b.owner
	b.owner = owner
	return b.rel.UpdateOneSide(b.child, old, owner)
}

// Restore stores owner without touching any collection. Used when both
// sides are rebuilt from persisted state.
func (b *BackRef[P, C]) Restore(owner P) {
	b.owner = owner
}
