package observable

import (
	"errors"
	"iter"
	"slices"
)

// Sequence is an ordered, index-addressable container that raises a Change
// for every structural mutation.
//
// Range operations raise one descriptor for the whole range rather than one
// per item. Removal by value coalesces descriptors into contiguous runs.
// Any mutation that empties the container through a range removal raises
// Reset, since positions no longer mean anything.
//
// INVARIANTS:
//   - Descriptors are raised after the backing slice has been updated.
//   - Subscribers are called in registration order.
//   - While a descriptor is dispatched to two or more subscribers, every
//     mutator fails with REENTRANCY_VIOLATION.
//
// Sequence is not safe for concurrent use.
type Sequence[T comparable] struct {
	items []T
	subs  subscribers[T]
	guard Guard
	lazy  lazy[T]

	// Batch support: descriptors raised while depth > 0 are buffered.
	deferDepth int
	pending    []Change[T]
}

var _ Collection[int] = (*Sequence[int])(nil)

// NewSequence creates a Sequence. With WithLoader the sequence starts
// NotLoaded and loaded items replace any WithItems seed.
func NewSequence[T comparable](opts ...Option[T]) *Sequence[T] {
	o := buildOptions(opts)
	return &Sequence[T]{
		items: slices.Clone(o.items),
		lazy:  newLazy(o.loader),
	}
}

// Subscribe registers h and returns its id.
func (s *Sequence[T]) Subscribe(h Handler[T]) SubscriptionID {
	return s.subs.add(h)
}

// Unsubscribe removes a handler. Returns false if id is unknown.
func (s *Sequence[T]) Unsubscribe(id SubscriptionID) bool {
	return s.subs.remove(id)
}

// Subscribers returns the number of registered handlers.
func (s *Sequence[T]) Subscribers() int {
	return s.subs.len()
}

// LoadState reports whether the contents have been materialized.
func (s *Sequence[T]) LoadState() LoadState {
	return s.lazy.state
}

// Load materializes a lazy sequence. Loaded items do not raise descriptors.
func (s *Sequence[T]) Load() error {
	return s.lazy.materialize(func(items []T) {
		s.items = slices.Clone(items)
	})
}

// OnLoad registers fn to run once when a lazy sequence is materialized.
// It is never called for a sequence that is already loaded.
func (s *Sequence[T]) OnLoad(fn func()) {
	s.lazy.onLoad(fn)
}

// Len returns the number of items.
func (s *Sequence[T]) Len() int {
	return len(s.items)
}

// At returns the item at index.
func (s *Sequence[T]) At(index int) (T, error) {
	if index < 0 || index >= len(s.items) {
		var zero T
		return zero, NewOutOfRangeError("At", index, len(s.items))
	}
	return s.items[index], nil
}

// Items returns a copy of the contents.
func (s *Sequence[T]) Items() []T {
	return slices.Clone(s.items)
}

// All iterates over index/item pairs of the current contents.
func (s *Sequence[T]) All() iter.Seq2[int, T] {
	return slices.All(slices.Clone(s.items))
}

// IndexOf returns the index of the first occurrence of item, or -1.
func (s *Sequence[T]) IndexOf(item T) int {
	return slices.Index(s.items, item)
}

// Contains reports whether item is present.
func (s *Sequence[T]) Contains(item T) bool {
	return slices.Contains(s.items, item)
}

// Count returns the number of occurrences of item.
func (s *Sequence[T]) Count(item T) int {
	n := 0
	for _, v := range s.items {
		if v == item {
			n++
		}
	}
	return n
}

// Add appends item. It always reports true on success; the bool keeps the
// signature shared with Set.
func (s *Sequence[T]) Add(item T) (bool, error) {
	const op = "Add"
	if err := s.begin(op); err != nil {
		return false, err
	}
	index := len(s.items)
	s.items = append(s.items, item)
	return true, s.notify(AddChange([]T{item}, index))
}

// Insert places item at index, which must be in [0, Len].
func (s *Sequence[T]) Insert(index int, item T) error {
	const op = "Insert"
	if err := s.begin(op); err != nil {
		return err
	}
	if index < 0 || index > len(s.items) {
		return NewOutOfRangeError(op, index, len(s.items))
	}
	s.items = slices.Insert(s.items, index, item)
	return s.notify(AddChange([]T{item}, index))
}

// RemoveAt removes the item at index, which must be in [0, Len).
func (s *Sequence[T]) RemoveAt(index int) error {
	const op = "RemoveAt"
	if err := s.begin(op); err != nil {
		return err
	}
	if index < 0 || index >= len(s.items) {
		return NewOutOfRangeError(op, index, len(s.items))
	}
	item := s.items[index]
	s.items = slices.Delete(s.items, index, index+1)
	return s.notify(RemoveChange([]T{item}, index))
}

// Remove removes the first occurrence of item. Returns false without raising
// anything if item is absent.
func (s *Sequence[T]) Remove(item T) (bool, error) {
	const op = "Remove"
	if err := s.begin(op); err != nil {
		return false, err
	}
	index := slices.Index(s.items, item)
	if index < 0 {
		return false, nil
	}
	s.items = slices.Delete(s.items, index, index+1)
	return true, s.notify(RemoveChange([]T{item}, index))
}

// SetAt replaces the item at index, which must be in [0, Len).
func (s *Sequence[T]) SetAt(index int, item T) error {
	const op = "SetAt"
	if err := s.begin(op); err != nil {
		return err
	}
	if index < 0 || index >= len(s.items) {
		return NewOutOfRangeError(op, index, len(s.items))
	}
	old := s.items[index]
	s.items[index] = item
	return s.notify(ReplaceChange(item, old, index))
}

// AddRange appends items and raises one Add descriptor. A nil slice is an
// INVALID_ARGUMENT; an empty one is a no-op.
func (s *Sequence[T]) AddRange(items []T) error {
	const op = "AddRange"
	if items == nil {
		return NewInvalidArgumentError(op, "items")
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.begin(op); err != nil {
		return err
	}
	return s.insertRange(len(s.items), items)
}

// InsertRange inserts items starting at index, which must be in [0, Len],
// and raises one Add descriptor. A nil slice is an INVALID_ARGUMENT; an
// empty one is a no-op.
func (s *Sequence[T]) InsertRange(index int, items []T) error {
	const op = "InsertRange"
	if items == nil {
		return NewInvalidArgumentError(op, "items")
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.begin(op); err != nil {
		return err
	}
	if index < 0 || index > len(s.items) {
		return NewOutOfRangeError(op, index, len(s.items))
	}
	return s.insertRange(index, items)
}

func (s *Sequence[T]) insertRange(index int, items []T) error {
	added := slices.Clone(items)
	s.items = slices.Insert(s.items, index, added...)
	return s.notify(AddChange(added, index))
}

// RemoveRange removes count items starting at index. Raises Reset if the
// sequence ends up empty, otherwise one Remove descriptor.
func (s *Sequence[T]) RemoveRange(index, count int) error {
	const op = "RemoveRange"
	if err := s.begin(op); err != nil {
		return err
	}
	if index < 0 || index > len(s.items) {
		return NewOutOfRangeError(op, index, len(s.items))
	}
	if count < 0 || index+count > len(s.items) {
		return NewOutOfRangeError(op, index+count, len(s.items))
	}
	if count == 0 {
		return nil
	}
	removed := slices.Clone(s.items[index : index+count])
	s.items = slices.Delete(s.items, index, index+count)
	if len(s.items) == 0 {
		return s.notify(ResetChange[T]())
	}
	return s.notify(RemoveChange(removed, index))
}

// RemoveItems removes the first remaining occurrence of each of items, one
// at a time. Descriptors are coalesced by contiguous runs: an item found at
// the index the previous removal vacated extends that run. Items that are
// not present are skipped. If the sequence ends up empty a single Reset is
// raised instead.
func (s *Sequence[T]) RemoveItems(items []T) error {
	const op = "RemoveItems"
	if items == nil {
		return NewInvalidArgumentError(op, "items")
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.begin(op); err != nil {
		return err
	}

	type run struct {
		index int
		items []T
	}
	var runs []run
	last := -1
	for _, item := range items {
		index := slices.Index(s.items, item)
		if index < 0 {
			continue
		}
		s.items = slices.Delete(s.items, index, index+1)
		if len(runs) > 0 && index == last {
			runs[len(runs)-1].items = append(runs[len(runs)-1].items, item)
		} else {
			runs = append(runs, run{index: index, items: []T{item}})
		}
		last = index
	}

	if len(runs) == 0 {
		return nil
	}
	if len(s.items) == 0 {
		return s.notify(ResetChange[T]())
	}
	for _, r := range runs {
		if err := s.notify(RemoveChange(r.items, r.index)); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRange removes count items at index and inserts items in their
// place. It is RemoveRange followed by InsertRange, so the Remove (or Reset)
// descriptor is raised before the Add descriptor.
func (s *Sequence[T]) ReplaceRange(index, count int, items []T) error {
	if items == nil {
		return NewInvalidArgumentError("ReplaceRange", "items")
	}
	if err := s.RemoveRange(index, count); err != nil {
		return err
	}
	return s.InsertRange(index, items)
}

// Move relocates the item at oldIndex to newIndex. Both must be in [0, Len).
func (s *Sequence[T]) Move(oldIndex, newIndex int) error {
	const op = "Move"
	if err := s.begin(op); err != nil {
		return err
	}
	if oldIndex < 0 || oldIndex >= len(s.items) {
		return NewOutOfRangeError(op, oldIndex, len(s.items))
	}
	if newIndex < 0 || newIndex >= len(s.items) {
		return NewOutOfRangeError(op, newIndex, len(s.items))
	}
	item := s.items[oldIndex]
	s.items = slices.Delete(s.items, oldIndex, oldIndex+1)
	s.items = slices.Insert(s.items, newIndex, item)
	return s.notify(MoveChange(item, oldIndex, newIndex))
}

// Clear removes everything and raises Reset.
func (s *Sequence[T]) Clear() error {
	const op = "Clear"
	if err := s.begin(op); err != nil {
		return err
	}
	clear(s.items)
	s.items = s.items[:0]
	return s.notify(ResetChange[T]())
}

// Batch runs fn with notifications deferred. Every descriptor raised inside
// fn is buffered and flushed, in order, when the outermost Batch returns.
// Buffered descriptors are flushed even when fn fails; both errors are
// returned joined.
func (s *Sequence[T]) Batch(fn func() error) error {
	s.deferDepth++
	done := false
	defer func() {
		if done {
			return
		}
		// fn panicked: unwind without flushing.
		s.deferDepth--
		if s.deferDepth == 0 {
			s.pending = nil
		}
	}()

	err := fn()
	done = true
	s.deferDepth--
	if s.deferDepth > 0 {
		return err
	}

	pending := s.pending
	s.pending = nil
	for _, change := range pending {
		if flushErr := s.subs.dispatch(&s.guard, change); flushErr != nil {
			return errors.Join(err, flushErr)
		}
	}
	return err
}

// begin runs the checks shared by every mutator: reentrancy first, then
// materialization of a lazy sequence.
func (s *Sequence[T]) begin(op string) error {
	if err := s.guard.Check(op, s.subs.len()); err != nil {
		return err
	}
	return s.Load()
}

func (s *Sequence[T]) notify(change Change[T]) error {
	if s.deferDepth > 0 {
		s.pending = append(s.pending, change)
		return nil
	}
	return s.subs.dispatch(&s.guard, change)
}
