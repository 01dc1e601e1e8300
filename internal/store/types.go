package store

// Entry is one journaled change descriptor. Items are member keys.
type Entry struct {
	Seq         int64
	Relation    string
	Owner       string
	Action      string
	NewItems    []string
	OldItems    []string
	NewIndex    int
	OldIndex    int
	Propagation string
}

// Filter narrows a journal read. Empty fields match everything.
type Filter struct {
	Relation string
	Owner    string
}
