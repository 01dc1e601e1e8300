package observable

// Guard blocks structural mutation while a change from the same container is
// being dispatched to more than one subscriber.
//
// It is a counter, not a lock: the model is single-threaded reentry, where a
// subscriber's callback mutates the container before the original mutation
// returns. A single subscriber may do so freely; with several subscribers a
// later one would be handed a descriptor the reentrant mutation already
// invalidated.
//
// The zero value is ready to use.
type Guard struct {
	busy int
}

// Enter marks the start of a dispatch and returns the matching release.
// Callers defer the release so the count is restored on error or panic.
func (g *Guard) Enter() (release func()) {
	g.busy++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.busy--
	}
}

// Busy reports whether a dispatch is in progress.
func (g *Guard) Busy() bool {
	return g.busy > 0
}

// Check fails with REENTRANCY_VIOLATION when a dispatch is in progress and
// more than one subscriber is registered.
func (g *Guard) Check(op string, subscribers int) error {
	if g.busy > 0 && subscribers > 1 {
		return NewReentrancyError(op, subscribers)
	}
	return nil
}
