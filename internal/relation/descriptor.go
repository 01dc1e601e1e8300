package relation

// Kind identifies the shape of a relation.
type Kind int

const (
	OneToManyKind Kind = iota + 1
	ManyToManyKind
)

func (k Kind) String() string {
	switch k {
	case OneToManyKind:
		return "one_to_many"
	case ManyToManyKind:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// State is the per-descriptor propagation state.
type State int

const (
	Idle State = iota
	Propagating
)

func (s State) String() string {
	if s == Propagating {
		return "propagating"
	}
	return "idle"
}

// Descriptor connects one owning entity's collection to a relation.
//
// It is created by Attach and lives as long as the owner; Close detaches it.
// The descriptor is Propagating only while its change handler runs.
type Descriptor struct {
	// Kind is the relation shape.
	Kind Kind

	// Owner is the entity whose collection is observed.
	Owner any

	// Property is the observed collection's property name.
	Property string

	// OtherProperty is the property updated on the other side.
	OtherProperty string

	busy   int
	detach func()
}

func newDescriptor(kind Kind, owner any, property, other string) *Descriptor {
	return &Descriptor{
		Kind:          kind,
		Owner:         owner,
		Property:      property,
		OtherProperty: other,
	}
}

// State reports whether the descriptor's handler is running.
func (d *Descriptor) State() State {
	if d.busy > 0 {
		return Propagating
	}
	return Idle
}

// Close unsubscribes the descriptor from its collection. Safe to call twice.
func (d *Descriptor) Close() {
	if d.detach == nil {
		return
	}
	d.detach()
	d.detach = nil
}

// Closed reports whether Close has been called.
func (d *Descriptor) Closed() bool {
	return d.detach == nil
}

func (d *Descriptor) enter() func() {
	d.busy++
	return func() { d.busy-- }
}
