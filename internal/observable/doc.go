// Package observable implements containers that report every structural
// mutation to their subscribers.
//
// Two containers are provided:
// - Sequence: ordered, index-addressable, duplicates allowed
// - Set: unique members with a stable enumeration order
//
// Both raise a Change after the mutation has been applied. Range operations
// raise one Change for the whole range; Reset is raised whenever positional
// information is no longer meaningful.
//
// EXECUTION MODEL:
//
// Single-threaded and synchronous. Subscribers run on the caller's goroutine
// before the mutating call returns, in registration order. A subscriber may
// mutate the container it is observing only when it is the sole subscriber;
// otherwise the mutator fails with REENTRANCY_VIOLATION (see Guard).
//
// LAZY CONTAINERS:
//
// A container built WithLoader starts NotLoaded. Reads see the empty
// placeholder; Load or the first mutation materializes it. Materialization
// never raises a Change.
package observable
