package observable

// Action tags the kind of structural change a Change describes.
type Action int

const (
	// ActionAdd reports items inserted starting at NewIndex.
	ActionAdd Action = iota + 1
	// ActionRemove reports items removed starting at OldIndex.
	ActionRemove
	// ActionReplace reports OldItems replaced by NewItems at the same index.
	ActionReplace
	// ActionMove reports one item moved from OldIndex to NewIndex.
	ActionMove
	// ActionReset reports that positional information is no longer valid.
	// Consumers must discard what they know and re-read the container.
	ActionReset
)

// String returns the lower-case action name used in logs and traces.
func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionReplace:
		return "replace"
	case ActionMove:
		return "move"
	case ActionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change describes the effect of one container mutation.
//
// Index fields are -1 whenever they carry no meaning: unused sides of the
// descriptor, every Set notification, and Reset.
type Change[T any] struct {
	Action   Action
	NewItems []T
	OldItems []T
	NewIndex int
	OldIndex int
}

// AddChange describes items inserted at index.
func AddChange[T any](items []T, index int) Change[T] {
	return Change[T]{Action: ActionAdd, NewItems: items, NewIndex: index, OldIndex: -1}
}

// RemoveChange describes items removed from index.
func RemoveChange[T any](items []T, index int) Change[T] {
	return Change[T]{Action: ActionRemove, OldItems: items, NewIndex: -1, OldIndex: index}
}

// ReplaceChange describes oldItem replaced by newItem at index.
func ReplaceChange[T any](newItem, oldItem T, index int) Change[T] {
	return Change[T]{
		Action:   ActionReplace,
		NewItems: []T{newItem},
		OldItems: []T{oldItem},
		NewIndex: index,
		OldIndex: index,
	}
}

// MoveChange describes item moved from oldIndex to newIndex.
func MoveChange[T any](item T, oldIndex, newIndex int) Change[T] {
	return Change[T]{
		Action:   ActionMove,
		NewItems: []T{item},
		OldItems: []T{item},
		NewIndex: newIndex,
		OldIndex: oldIndex,
	}
}

// ResetChange describes a change with no item detail.
func ResetChange[T any]() Change[T] {
	return Change[T]{Action: ActionReset, NewIndex: -1, OldIndex: -1}
}

// Handler receives change notifications. A returned error stops dispatch to
// the remaining subscribers and is returned from the mutating call.
type Handler[T any] func(Change[T]) error

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64
