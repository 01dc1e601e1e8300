// Package scenario runs YAML scenarios against a demo node graph to check
// that both sides of every relation stay paired.
//
// # Scenario Format
//
//	name: adopt_and_move
//	description: "Reassigning a child updates both parents"
//	token_prefix: prop          # optional, deterministic propagation tokens
//	nodes:
//	  - name: p1
//	  - name: lazy
//	    lazy: true              # materialized from the store on first use
//	    children: [c]           # seeded without propagation
//	    links: [p1]
//	steps:
//	  - op: set_parent
//	    node: c
//	    target: p1
//	  - op: remove_child_at
//	    node: p1
//	    index: 5
//	    error: OUT_OF_RANGE     # expected error code
//	expect:
//	  - node: p1
//	    children: [c]           # ordered
//	    links: []               # unordered
//	    parent: ""              # "" expects no parent
//	    state: loaded
//
// Files are validated against an embedded CUE schema and then decoded with
// strict field checking.
//
// # Demo Graph
//
// Every node owns a children sequence paired one-to-many with each child's
// parent reference, and a links set paired many-to-many with itself. Every
// container is tracked by a store, so each run also leaves a journal that
// must replay to the stored membership.
//
// # Determinism
//
// Each run uses a fresh TraceClock and SequenceGenerator, so traces are
// byte-identical across runs and can be compared against golden files.
package scenario
