package relation

import "github.com/google/uuid"

// TokenGenerator produces propagation tokens.
//
// A propagation token ties together every sync step caused by one
// caller-level mutation. The outermost handler generates it; nested steps
// inherit it.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 propagation tokens.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
//
// Panics if UUID generation fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
