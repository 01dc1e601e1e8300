// Package store provides SQLite-backed persistence for observable collections.
//
// The store keeps two things per tracked collection, keyed by a relation name
// and an owner key:
//   - Memberships: the current contents, one row per position
//   - Changes: an append-only journal of change descriptors
//
// Loader materializes a lazy container from its membership rows, and Track
// subscribes to a container so every change it raises is journaled and its
// membership rewritten. Replay rebuilds a collection from the journal alone,
// which Verify compares against the stored membership.
//
// # Ordering
//
// The journal is ordered by seq, an AUTOINCREMENT logical clock. Timestamps
// are never stored, so a journal written by a deterministic run is itself
// deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
