// Package relation keeps both sides of a bidirectional association
// consistent by subscribing to observable container changes.
//
// Two relation shapes are supported:
// - OneToMany: an owner's children collection and each child's BackRef
// - ManyToMany: two collections that must mirror each other
//
// Entities are never wired to each other directly. A relation is external
// to both sides and reaches them through the Resolver, which maps
// (runtime type, property name) to a typed accessor registered at setup
// time or exposed through the Navigator interface.
//
// PROPAGATION:
//
// Sync is synchronous and runs inside the container's dispatch. Each step
// checks "already contains" / "already equals" before mutating, so a pair
// of collections reaches a fixed point in at most one round trip per item.
// Collections that are not materialized are skipped rather than loaded.
//
// All steps caused by one caller-level mutation share a propagation token:
// the outermost step generates it, nested steps inherit it. The token is
// attached to every log record.
//
// Failures: a collection found to hold an item twice after a step is
// reported as UNIQUENESS_VIOLATION. Nothing is rolled back.
package relation
