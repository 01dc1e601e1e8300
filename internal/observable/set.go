package observable

import (
	"iter"
	"slices"
)

// Set is an unordered container of unique items that raises a Change for
// every structural mutation.
//
// Membership lives in a map; a shadow slice keeps a stable enumeration order
// (insertion order). Positions carry no meaning for a set, so every
// item-level descriptor uses index -1. Set algebra raises Reset because the
// map operations do not report which members changed.
//
// INVARIANT: len(shadow) == len(members) after every mutation. A violation
// is a bug in Set and panics with INTERNAL_CONSISTENCY_FAULT.
type Set[T comparable] struct {
	members map[T]struct{}
	shadow  []T
	subs    subscribers[T]
	guard   Guard
	lazy    lazy[T]
}

var _ Collection[int] = (*Set[int])(nil)

// NewSet creates a Set. Duplicate seed items are dropped.
func NewSet[T comparable](opts ...Option[T]) *Set[T] {
	o := buildOptions(opts)
	s := &Set[T]{
		members: make(map[T]struct{}, len(o.items)),
		lazy:    newLazy(o.loader),
	}
	s.fill(o.items)
	return s
}

func (s *Set[T]) fill(items []T) {
	clear(s.members)
	s.shadow = s.shadow[:0]
	for _, item := range items {
		if _, ok := s.members[item]; ok {
			continue
		}
		s.members[item] = struct{}{}
		s.shadow = append(s.shadow, item)
	}
}

// Subscribe registers h and returns its id.
func (s *Set[T]) Subscribe(h Handler[T]) SubscriptionID {
	return s.subs.add(h)
}

// Unsubscribe removes a handler. Returns false if id is unknown.
func (s *Set[T]) Unsubscribe(id SubscriptionID) bool {
	return s.subs.remove(id)
}

// Subscribers returns the number of registered handlers.
func (s *Set[T]) Subscribers() int {
	return s.subs.len()
}

// LoadState reports whether the contents have been materialized.
func (s *Set[T]) LoadState() LoadState {
	return s.lazy.state
}

// Load materializes a lazy set without raising descriptors.
func (s *Set[T]) Load() error {
	return s.lazy.materialize(s.fill)
}

// OnLoad registers fn to run once when a lazy set is materialized.
// It is never called for a set that is already loaded.
func (s *Set[T]) OnLoad(fn func()) {
	s.lazy.onLoad(fn)
}

// Len returns the number of members.
func (s *Set[T]) Len() int {
	return len(s.shadow)
}

// Items returns the members in enumeration order.
func (s *Set[T]) Items() []T {
	return slices.Clone(s.shadow)
}

// All iterates over the members in enumeration order.
func (s *Set[T]) All() iter.Seq[T] {
	return slices.Values(slices.Clone(s.shadow))
}

// Contains reports whether item is a member.
func (s *Set[T]) Contains(item T) bool {
	_, ok := s.members[item]
	return ok
}

// Count returns 1 for a member and 0 otherwise.
func (s *Set[T]) Count(item T) int {
	if s.Contains(item) {
		return 1
	}
	return 0
}

// Add inserts item. Returns false, raising nothing, if it is already present.
func (s *Set[T]) Add(item T) (bool, error) {
	const op = "Add"
	if err := s.begin(op); err != nil {
		return false, err
	}
	if !s.insert(item) {
		return false, nil
	}
	s.checkConsistency(op)
	return true, s.notify(AddChange([]T{item}, -1))
}

// Remove deletes item. Returns false, raising nothing, if it is absent.
func (s *Set[T]) Remove(item T) (bool, error) {
	const op = "Remove"
	if err := s.begin(op); err != nil {
		return false, err
	}
	if !s.delete(item) {
		return false, nil
	}
	s.checkConsistency(op)
	return true, s.notify(RemoveChange([]T{item}, -1))
}

// AddRange inserts every item not already present and raises one Add
// descriptor listing them. Nothing is raised if nothing was added.
func (s *Set[T]) AddRange(items []T) error {
	const op = "AddRange"
	if items == nil {
		return NewInvalidArgumentError(op, "items")
	}
	if err := s.begin(op); err != nil {
		return err
	}
	var added []T
	for _, item := range items {
		if s.insert(item) {
			added = append(added, item)
		}
	}
	s.checkConsistency(op)
	if len(added) == 0 {
		return nil
	}
	return s.notify(AddChange(added, -1))
}

// RemoveRange deletes every item present and raises one Remove descriptor
// listing them. Nothing is raised if nothing was removed.
func (s *Set[T]) RemoveRange(items []T) error {
	const op = "RemoveRange"
	if items == nil {
		return NewInvalidArgumentError(op, "items")
	}
	if err := s.begin(op); err != nil {
		return err
	}
	var removed []T
	for _, item := range items {
		if s.delete(item) {
			removed = append(removed, item)
		}
	}
	s.checkConsistency(op)
	if len(removed) == 0 {
		return nil
	}
	return s.notify(RemoveChange(removed, -1))
}

// UnionWith adds every item of other and raises Reset.
func (s *Set[T]) UnionWith(other []T) error {
	return s.algebra("UnionWith", other, func(keep map[T]struct{}) {
		for item := range keep {
			s.members[item] = struct{}{}
		}
	})
}

// IntersectWith keeps only members also in other and raises Reset.
func (s *Set[T]) IntersectWith(other []T) error {
	return s.algebra("IntersectWith", other, func(keep map[T]struct{}) {
		for item := range s.members {
			if _, ok := keep[item]; !ok {
				delete(s.members, item)
			}
		}
	})
}

// ExceptWith removes every item of other and raises Reset.
func (s *Set[T]) ExceptWith(other []T) error {
	return s.algebra("ExceptWith", other, func(drop map[T]struct{}) {
		for item := range drop {
			delete(s.members, item)
		}
	})
}

// SymmetricExceptWith keeps members in exactly one of the set and other and
// raises Reset.
func (s *Set[T]) SymmetricExceptWith(other []T) error {
	return s.algebra("SymmetricExceptWith", other, func(toggle map[T]struct{}) {
		for item := range toggle {
			if _, ok := s.members[item]; ok {
				delete(s.members, item)
			} else {
				s.members[item] = struct{}{}
			}
		}
	})
}

// Clear removes every member and raises Reset.
func (s *Set[T]) Clear() error {
	const op = "Clear"
	if err := s.begin(op); err != nil {
		return err
	}
	clear(s.members)
	clear(s.shadow)
	s.shadow = s.shadow[:0]
	s.checkConsistency(op)
	return s.notify(ResetChange[T]())
}

// algebra applies a set operation to the membership map, rebuilds the
// shadow list and raises Reset unconditionally.
func (s *Set[T]) algebra(op string, other []T, apply func(map[T]struct{})) error {
	if other == nil {
		return NewInvalidArgumentError(op, "other")
	}
	if err := s.begin(op); err != nil {
		return err
	}
	arg := make(map[T]struct{}, len(other))
	for _, item := range other {
		arg[item] = struct{}{}
	}
	apply(arg)
	s.rebuildShadow(other)
	s.checkConsistency(op)
	return s.notify(ResetChange[T]())
}

// rebuildShadow keeps surviving members in their previous order and appends
// newcomers in the order they appear in candidates.
func (s *Set[T]) rebuildShadow(candidates []T) {
	shadow := make([]T, 0, len(s.members))
	seen := make(map[T]struct{}, len(s.members))
	keep := func(item T) {
		if _, member := s.members[item]; !member {
			return
		}
		if _, dup := seen[item]; dup {
			return
		}
		seen[item] = struct{}{}
		shadow = append(shadow, item)
	}
	for _, item := range s.shadow {
		keep(item)
	}
	for _, item := range candidates {
		keep(item)
	}
	s.shadow = shadow
}

func (s *Set[T]) insert(item T) bool {
	if _, ok := s.members[item]; ok {
		return false
	}
	s.members[item] = struct{}{}
	s.shadow = append(s.shadow, item)
	return true
}

func (s *Set[T]) delete(item T) bool {
	if _, ok := s.members[item]; !ok {
		return false
	}
	delete(s.members, item)
	if i := slices.Index(s.shadow, item); i >= 0 {
		s.shadow = slices.Delete(s.shadow, i, i+1)
	}
	return true
}

func (s *Set[T]) checkConsistency(op string) {
	if len(s.members) != len(s.shadow) {
		panic(newConsistencyFault(op, len(s.members), len(s.shadow)))
	}
}

func (s *Set[T]) begin(op string) error {
	if err := s.guard.Check(op, s.subs.len()); err != nil {
		return err
	}
	return s.Load()
}

func (s *Set[T]) notify(change Change[T]) error {
	return s.subs.dispatch(&s.guard, change)
}
