package observable

// Collection is the surface shared by Sequence and Set. The sync engine and
// the persistence collaborator depend on it rather than on either type.
type Collection[T comparable] interface {
	Len() int
	Items() []T
	Contains(item T) bool
	Count(item T) int

	// Add reports false when the container declined the item (Set only).
	Add(item T) (bool, error)
	// Remove reports false when the item was not present.
	Remove(item T) (bool, error)

	LoadState() LoadState
	Load() error
	OnLoad(fn func())

	Subscribe(h Handler[T]) SubscriptionID
	Unsubscribe(id SubscriptionID) bool
}
